package sinks

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Outcome filters accepted in SinkConfig.On.
const (
	OnAlways  = "always"
	OnSuccess = "success"
	OnFailure = "failure"
)

// Builder creates a Sink from its config entry.
type Builder func(ctx context.Context, cfg SinkConfig, log Logger) (Sink, error)

// Builders maps a sink type to its constructor.
type Builders map[string]Builder

// DefaultBuilders returns constructors for every built-in sink type.
func DefaultBuilders() Builders {
	return Builders{
		TypeConsole: newConsoleSinkFromConfig,
		TypeHTTP:    newHTTPSink,
		TypeSQS:     newSQSSink,
		TypeSNS:     newSNSSink,
		TypePubSub:  newPubSubSink,
	}
}

// Types lists the registered sink types in sorted order.
func (b Builders) Types() []string {
	out := make([]string, 0, len(b))
	for typ := range b {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}

// Build constructs the sink for cfg. Sinks limited to one outcome are wrapped
// so runs with the other outcome are skipped silently.
func (b Builders) Build(ctx context.Context, cfg SinkConfig, log Logger) (Sink, error) {
	typ := strings.ToLower(strings.TrimSpace(cfg.Type))
	if typ == "" {
		return nil, fmt.Errorf("sink %q has no type configured", cfg.ID)
	}
	builder := b[typ]
	if builder == nil {
		return nil, fmt.Errorf("no sink registered for type %q (known: %s)", cfg.Type, strings.Join(b.Types(), ", "))
	}

	s, err := builder(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	switch on := strings.ToLower(strings.TrimSpace(cfg.On)); on {
	case "", OnAlways:
		return s, nil
	case OnSuccess, OnFailure:
		return &outcomeSink{Sink: s, on: on}, nil
	default:
		closeSink(s)
		return nil, fmt.Errorf("sink %q: unknown outcome filter %q", cfg.ID, cfg.On)
	}
}

// BuildAll instantiates sinks for cfgs. Sinks built before a failure are closed.
func BuildAll(ctx context.Context, b Builders, cfgs []SinkConfig, log Logger) ([]Sink, error) {
	if b == nil || len(cfgs) == 0 {
		return nil, nil
	}

	var out []Sink
	for _, cfg := range cfgs {
		s, err := b.Build(ctx, cfg, log)
		if err != nil {
			_ = NewFanout(out).Close()
			return nil, fmt.Errorf("build sink %q: %w", cfg.ID, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// outcomeSink forwards only runs whose outcome matches on.
type outcomeSink struct {
	Sink
	on string
}

func (o *outcomeSink) Deliver(ctx context.Context, evt Event) error {
	if evt.outcome() != o.on {
		return nil
	}
	return o.Sink.Deliver(ctx, evt)
}

func (o *outcomeSink) Close() error {
	if c, ok := o.Sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func closeSink(s Sink) {
	if c, ok := s.(io.Closer); ok {
		_ = c.Close()
	}
}
