package handshake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Adda-Baaj/handshake/pkg/httpclient"
)

const (
	contentTypeJSON = "application/json"
	acceptAny       = "application/json, text/plain, */*"
)

// Response is the raw outcome of one exchange.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Trace describes one finished exchange for verbose observers.
type Trace struct {
	Method  string
	URL     string
	Payload string
	Status  int
	Err     error
	Elapsed time.Duration
}

// Observer receives a Trace after every exchange. It must not block for long
// and cannot influence the exchange result.
type Observer interface {
	Observe(Trace)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(Trace)

func (f ObserverFunc) Observe(t Trace) { f(t) }

// WriterObserver prints traces in the plain diagnostic format:
//
//	POST https://host/path
//	Payload: {"msg":"hi"}
//	HTTP 200
func WriterObserver(w io.Writer) Observer {
	return ObserverFunc(func(t Trace) {
		var buf bytes.Buffer
		fmt.Fprintf(&buf, "%s %s\n", t.Method, t.URL)
		if t.Method == http.MethodPost {
			fmt.Fprintf(&buf, "Payload: %s\n", t.Payload)
		}
		fmt.Fprintf(&buf, "HTTP %d\n", t.Status)
		if t.Err != nil {
			fmt.Fprintf(&buf, "Error: %v\n", t.Err)
		}
		buf.WriteString("\n")
		_, _ = w.Write(buf.Bytes())
	})
}

// MultiObserver fans a trace out to several observers, skipping nils.
func MultiObserver(observers ...Observer) Observer {
	return ObserverFunc(func(t Trace) {
		for _, o := range observers {
			if o != nil {
				o.Observe(t)
			}
		}
	})
}

// Transport issues the JSON POST and plain GET requests of the handshake.
// It never judges status codes.
type Transport struct {
	client   httpclient.Client
	observer Observer
}

// NewTransport wraps client. observer may be nil.
func NewTransport(client httpclient.Client, observer Observer) *Transport {
	return &Transport{client: client, observer: observer}
}

// PostJSON encodes payload as JSON (no HTML escaping) and posts it to url.
func (t *Transport) PostJSON(ctx context.Context, url string, payload any) (Response, error) {
	body, err := encodeJSON(payload)
	if err != nil {
		return Response{}, fmt.Errorf("encode payload: %w", err)
	}

	start := time.Now()
	resp, err := t.client.Post(ctx, url, body, map[string]string{
		"Content-Type": contentTypeJSON,
		"Accept":       acceptAny,
	})
	return t.finish(http.MethodPost, url, string(body), start, resp, err)
}

// Get fetches url.
func (t *Transport) Get(ctx context.Context, url string) (Response, error) {
	start := time.Now()
	resp, err := t.client.Get(ctx, url, map[string]string{
		"Accept": acceptAny,
	})
	return t.finish(http.MethodGet, url, "", start, resp, err)
}

func (t *Transport) finish(method, url, payload string, start time.Time, resp httpclient.Response, err error) (Response, error) {
	var out Response
	if err == nil && resp != nil {
		out = Response{StatusCode: resp.StatusCode(), Body: resp.Body()}
	}

	if t.observer != nil {
		t.observer.Observe(Trace{
			Method:  method,
			URL:     url,
			Payload: payload,
			Status:  out.StatusCode,
			Err:     err,
			Elapsed: time.Since(start),
		})
	}

	if err != nil {
		return Response{}, &TransportError{Method: method, URL: url, Err: err}
	}
	return out, nil
}

func encodeJSON(payload any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
