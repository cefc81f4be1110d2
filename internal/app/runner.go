package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/Adda-Baaj/handshake/internal/config"
	"github.com/Adda-Baaj/handshake/internal/domain"
	"github.com/Adda-Baaj/handshake/internal/handshake"
	"github.com/Adda-Baaj/handshake/internal/logger"
	"github.com/Adda-Baaj/handshake/internal/storage"
	"github.com/Adda-Baaj/handshake/pkg/httpclient"
	"github.com/Adda-Baaj/handshake/pkg/sinks"
	"github.com/google/uuid"
)

// Runner is the handshake runtime shared by the CLI and the web server. It owns
// the run history store, the outcome sinks and one HTTP client per timeout;
// every Run gets its own transport and observers on top of those clients.
type Runner struct {
	log      logger.Logger
	store    storage.Store
	fanout   *sinks.Fanout
	traceOut io.Writer
	extra    []sinks.Sink

	mu      sync.Mutex
	clients map[time.Duration]*httpclient.RestyClient
}

// Option customizes a Runner.
type Option func(*Runner)

// WithSinks adds sinks that are not declared in the sinks file (e.g. the terminal).
func WithSinks(extra ...sinks.Sink) Option {
	return func(r *Runner) {
		r.extra = append(r.extra, extra...)
	}
}

// WithTraceWriter redirects verbose exchange traces. Defaults to stderr.
func WithTraceWriter(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.traceOut = w
		}
	}
}

// NewRunner builds the runtime from config: history store plus sinks.
func NewRunner(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	r := &Runner{
		log:      log,
		traceOut: os.Stderr,
		clients:  make(map[time.Duration]*httpclient.RestyClient),
	}
	for _, opt := range opts {
		opt(r)
	}

	var configured []sinks.Sink
	if cfg.SinksFile != "" {
		reg, err := sinks.LoadRegistry(cfg.SinksFile)
		if err != nil {
			return nil, fmt.Errorf("load sinks registry: %w", err)
		}
		enabled := reg.Enabled()
		configured, err = sinks.BuildAll(ctx, sinks.DefaultBuilders(), enabled, log)
		if err != nil {
			return nil, fmt.Errorf("build sinks: %w", err)
		}
		summaries := make([]map[string]string, 0, len(enabled))
		for _, sc := range enabled {
			summaries = append(summaries, map[string]string{
				"id":   sc.ID,
				"type": sc.Type,
			})
		}
		log.InfoObj("sinks registry loaded", "sinks_meta", map[string]any{
			"count": len(summaries),
			"sinks": summaries,
		})
	}
	r.fanout = sinks.NewFanout(configured).With(r.extra...)

	store, err := storage.NewStore(cfg.HistoryType, cfg.HistoryPath, storage.Options{
		RunTTL:          cfg.HistoryTTL,
		CleanupInterval: cfg.HistoryCleanupInterval,
	})
	switch {
	case errors.Is(err, storage.ErrInvalidBackend):
		_ = r.fanout.Close()
		return nil, fmt.Errorf("init history: %w", err)
	case err != nil:
		// A locked or unreadable database must not block the handshake itself.
		log.WarnObj("history unavailable, runs will not be recorded", "history_error", map[string]any{
			"type":  cfg.HistoryType,
			"path":  cfg.HistoryPath,
			"error": err.Error(),
		})
		store = storage.Noop()
	}
	r.store = store
	log.DebugObj("history initialized", "history_config", map[string]any{
		"type":                     cfg.HistoryType,
		"path":                     cfg.HistoryPath,
		"ttl_seconds":              int(cfg.HistoryTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.HistoryCleanupInterval.Seconds()),
	})

	return r, nil
}

// Run performs one handshake with cfg and reports the outcome to history and
// sinks. source names the caller ("cli", "server"). History and sink failures
// are logged and never change the returned outcome.
func (r *Runner) Run(ctx context.Context, cfg *config.Config, source string) domain.Run {
	run := domain.Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Endpoint:  cfg.Endpoint,
		Msg:       cfg.Msg,
		URI:       cfg.URI,
	}

	workflow := handshake.New(r.transport(cfg), r.log)
	res, err := workflow.Run(ctx, handshake.Input{
		Endpoint: cfg.Endpoint,
		Msg:      cfg.Msg,
		URI:      cfg.URI,
	})

	run.FinishedAt = time.Now().UTC()
	run.NextURL = res.NextURL
	run.Code = res.Code
	run.Stage = res.Stage.String()
	if err != nil {
		run.Error = err.Error()
	} else {
		run.Success = true
		run.Message = res.Message
	}

	r.log.InfoObj("handshake finished", "handshake_run", map[string]any{
		"run_id":      run.ID,
		"source":      source,
		"success":     run.Success,
		"stage":       run.Stage,
		"elapsed_ms":  run.Duration().Milliseconds(),
		"next_url":    run.NextURL,
		"error":       run.Error,
		"sinks_count": r.fanout.Size(),
	})

	if err := r.store.Record(run); err != nil {
		r.log.ErrorObj("history record failed", "error", err.Error())
	}
	if delivered, err := r.fanout.Deliver(ctx, sinks.NewEvent(source, run)); err != nil {
		r.log.ErrorObj("sink delivery failed", "sink_delivery", map[string]any{
			"run_id":    run.ID,
			"delivered": delivered,
			"error":     err.Error(),
		})
	}
	return run
}

// Close releases the history store and sinks.
func (r *Runner) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	for timeout, c := range r.clients {
		_ = c.Close()
		delete(r.clients, timeout)
	}
	r.mu.Unlock()

	var firstErr error
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			firstErr = fmt.Errorf("close history: %w", err)
		}
	}
	if err := r.fanout.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close sinks: %w", err)
	}
	return firstErr
}

// transport builds a per-run transport so concurrent server requests never
// share trace settings. The underlying client is reused for equal timeouts.
func (r *Runner) transport(cfg *config.Config) *handshake.Transport {
	client := r.client(cfg.Timeout)

	observer := traceLogger(r.log)
	if cfg.Verbose {
		observer = handshake.MultiObserver(handshake.WriterObserver(r.traceOut), observer)
	}
	return handshake.NewTransport(client, observer)
}

// client returns the shared resty client for timeout, creating it on first use.
func (r *Runner) client(timeout time.Duration) *httpclient.RestyClient {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[timeout]; ok {
		return c
	}
	var opts []httpclient.Option
	if logger.S != nil {
		opts = append(opts, httpclient.WithLogger(logger.S))
	}
	c := httpclient.NewRestyClient(timeout, opts...)
	r.clients[timeout] = c
	return c
}

func traceLogger(log logger.Logger) handshake.Observer {
	return handshake.ObserverFunc(func(t handshake.Trace) {
		fields := map[string]any{
			"method":     t.Method,
			"url":        t.URL,
			"status":     t.Status,
			"elapsed_ms": t.Elapsed.Milliseconds(),
		}
		if t.Err != nil {
			fields["error"] = t.Err.Error()
		}
		log.DebugObj("http exchange", "http_trace", fields)
	})
}
