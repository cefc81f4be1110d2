package sinks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Adda-Baaj/handshake/internal/domain"
)

func TestHTTPSinkSuccess(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if h := r.Header.Get("X-Test"); h != "1" {
			t.Errorf("missing header, got %s", h)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink, err := newHTTPSink(context.Background(), SinkConfig{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPSinkConfig{
			URL:            srv.URL,
			Method:         http.MethodPut,
			Headers:        map[string]string{"X-Test": "1"},
			TimeoutSeconds: 2,
		},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPSink: %v", err)
	}

	evt := NewEvent("cli", domain.Run{ID: "run-1", Success: true, Message: "welcome"})
	if err := sink.Deliver(context.Background(), evt); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if got.Source != "cli" || got.Run.ID != "run-1" || got.Run.Message != "welcome" {
		t.Fatalf("server received %#v", got)
	}
}

func TestHTTPSinkRunHeaders(t *testing.T) {
	var headers []http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = append(headers, r.Header.Clone())
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink, err := newHTTPSink(context.Background(), SinkConfig{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPSinkConfig{
			URL:            srv.URL,
			Headers:        map[string]string{HeaderOutcome: "spoofed", "Authorization": "Bearer t"},
			TimeoutSeconds: 2,
		},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPSink: %v", err)
	}
	defer sink.(io.Closer).Close()

	events := []Event{
		NewEvent("cli", domain.Run{ID: "run-ok", Success: true, Message: "welcome"}),
		NewEvent("server", domain.Run{ID: "run-bad", Error: "First POST failed with HTTP 500. Body: oops"}),
	}
	for _, evt := range events {
		if err := sink.Deliver(context.Background(), evt); err != nil {
			t.Fatalf("Deliver %s: %v", evt.Run.ID, err)
		}
	}

	want := []map[string]string{
		{HeaderRunID: "run-ok", HeaderOutcome: "success", HeaderSource: "cli", HeaderIdempotencyKey: "run-ok"},
		{HeaderRunID: "run-bad", HeaderOutcome: "failure", HeaderSource: "server", HeaderIdempotencyKey: "run-bad"},
	}
	if len(headers) != len(want) {
		t.Fatalf("server saw %d requests, want %d", len(headers), len(want))
	}
	for i, h := range headers {
		for name, v := range want[i] {
			if got := h.Get(name); got != v {
				t.Errorf("request %d header %s = %q, want %q", i, name, got, v)
			}
		}
		if got := h.Get("Authorization"); got != "Bearer t" {
			t.Errorf("request %d lost configured header, got %q", i, got)
		}
	}
}

func TestHTTPSinkErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	sink, err := newHTTPSink(context.Background(), SinkConfig{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPSinkConfig{
			URL:            srv.URL,
			Method:         http.MethodPost,
			TimeoutSeconds: 1,
		},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPSink: %v", err)
	}

	if err := sink.Deliver(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error on non-2xx response")
	}
}
