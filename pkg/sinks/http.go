package sinks

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Adda-Baaj/handshake/pkg/httpclient"
	"github.com/go-resty/resty/v2"
)

// Run headers attached to every webhook delivery.
const (
	HeaderRunID          = "X-Handshake-Run-Id"
	HeaderOutcome        = "X-Handshake-Outcome"
	HeaderSource         = "X-Handshake-Source"
	HeaderIdempotencyKey = "Idempotency-Key"
)

var runHeaderNames = map[string]string{
	"run_id":  HeaderRunID,
	"outcome": HeaderOutcome,
	"source":  HeaderSource,
}

// webhookSink posts the run event as JSON to a user supplied URL.
type webhookSink struct {
	id      string
	method  string
	url     string
	headers map[string]string
	client  *resty.Client
	log     Logger
}

func newHTTPSink(_ context.Context, cfg SinkConfig, log Logger) (Sink, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("sink %q missing http configuration", cfg.ID)
	}
	method := strings.ToUpper(strings.TrimSpace(cfg.HTTP.Method))
	if method == "" {
		method = http.MethodPost
	}

	return &webhookSink{
		id:      cfg.ID,
		method:  method,
		url:     cfg.HTTP.URL,
		headers: cfg.HTTP.Headers,
		client:  httpclient.NewRestyHTTPClient(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second),
		log:     ensureLogger(log),
	}, nil
}

func (w *webhookSink) ID() string   { return w.id }
func (w *webhookSink) Type() string { return TypeHTTP }

// Deliver sends the event. Configured headers go first so the run headers
// always describe the run being delivered.
func (w *webhookSink) Deliver(ctx context.Context, evt Event) error {
	req := w.client.R().
		SetContext(ctx).
		SetHeaders(w.headers).
		SetHeaders(runHeaders(evt)).
		SetHeader("Content-Type", "application/json").
		SetBody(evt)

	resp, err := req.Execute(w.method, w.url)
	if err != nil {
		w.logFailure(evt, 0, err.Error())
		return fmt.Errorf("webhook request: %w", err)
	}
	if resp.IsError() {
		snippet := readBodySnippet(resp.Body())
		w.logFailure(evt, resp.StatusCode(), snippet)
		return fmt.Errorf("webhook responded with HTTP %d: %s", resp.StatusCode(), snippet)
	}
	w.log.DebugObj("webhook sink delivered run", "sink_http_delivery", map[string]any{
		"sink_id": w.id,
		"run_id":  evt.Run.ID,
		"status":  resp.StatusCode(),
	})
	return nil
}

// Close drops idle connections held by the webhook client.
func (w *webhookSink) Close() error {
	w.client.GetClient().CloseIdleConnections()
	return nil
}

func (w *webhookSink) logFailure(evt Event, status int, detail string) {
	w.log.ErrorObj("webhook sink delivery failed", "sink_http_error", map[string]any{
		"sink_id": w.id,
		"run_id":  evt.Run.ID,
		"status":  status,
		"error":   detail,
	})
}

func runHeaders(evt Event) map[string]string {
	out := make(map[string]string, len(runHeaderNames)+1)
	for attr, v := range runAttributes(evt) {
		if name, ok := runHeaderNames[attr]; ok && v != "" {
			out[name] = v
		}
	}
	if evt.Run.ID != "" {
		out[HeaderIdempotencyKey] = evt.Run.ID
	}
	return out
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
