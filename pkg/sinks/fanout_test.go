package sinks

import (
	"context"
	"errors"
	"testing"
)

type stubSink struct {
	id     string
	typ    string
	err    error
	calls  int
	closed bool
}

func (s *stubSink) ID() string   { return s.id }
func (s *stubSink) Type() string { return s.typ }
func (s *stubSink) Deliver(context.Context, Event) error {
	s.calls++
	return s.err
}

type closingSink struct {
	stubSink
}

func (c *closingSink) Close() error {
	c.closed = true
	return nil
}

func TestFanoutDeliverAggregatesErrors(t *testing.T) {
	fanout := NewFanout([]Sink{
		&stubSink{id: "ok", typ: "http"},
		&stubSink{id: "bad", typ: "http", err: errors.New("failed")},
	})

	count, err := fanout.Deliver(context.Background(), Event{})
	if count != 1 {
		t.Fatalf("expected 1 success, got %d", count)
	}
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
}

func TestFanoutWithAddsSinksAndSkipsNil(t *testing.T) {
	base := NewFanout([]Sink{nil, &stubSink{id: "a", typ: "http"}})
	extra := &stubSink{id: "b", typ: "console"}

	all := base.With(extra, nil)
	if base.Size() != 1 || all.Size() != 2 {
		t.Fatalf("sizes base=%d all=%d", base.Size(), all.Size())
	}
	if _, err := all.Deliver(context.Background(), Event{}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if extra.calls != 1 {
		t.Fatalf("extra sink calls = %d", extra.calls)
	}
}

func TestFanoutCloseClosesClosers(t *testing.T) {
	c := &closingSink{stubSink{id: "c", typ: "pubsub"}}
	if err := NewFanout([]Sink{&stubSink{id: "s"}, c}).Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !c.closed {
		t.Fatalf("closer sink was not closed")
	}
}

func TestNilFanoutIsInert(t *testing.T) {
	var f *Fanout
	if n, err := f.Deliver(context.Background(), Event{}); n != 0 || err != nil {
		t.Fatalf("nil fanout Deliver = %d, %v", n, err)
	}
	if f.With(&stubSink{id: "x"}).Size() != 1 {
		t.Fatalf("With on nil fanout should still add sinks")
	}
}
