package sinks

import (
	"context"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/Adda-Baaj/handshake/internal/domain"
)

func TestPubSubSinkPublishes(t *testing.T) {
	// Use the in-memory Pub/Sub emulator.
	server := pstest.NewServer()
	defer server.Close()
	t.Setenv("PUBSUB_EMULATOR_HOST", server.Addr)

	ctx := context.Background()
	client, err := pubsub.NewClient(ctx, "test-project")
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	defer client.Close()
	if _, err := client.CreateTopic(ctx, "runs"); err != nil {
		t.Fatalf("create topic: %v", err)
	}

	sink, err := newPubSubSink(ctx, SinkConfig{
		ID:     "gcp",
		Type:   TypePubSub,
		PubSub: &PubSubSinkConfig{ProjectID: "test-project", Topic: "runs"},
	}, nil)
	if err != nil {
		t.Fatalf("newPubSubSink: %v", err)
	}
	defer sink.(*pubsubSink).Close()

	if err := sink.Deliver(ctx, NewEvent("cli", domain.Run{ID: "run-1", Success: true})); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	msgs := server.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(msgs))
	}
	if msgs[0].Attributes["run_id"] != "run-1" || msgs[0].Attributes["outcome"] != "success" {
		t.Fatalf("attributes = %#v", msgs[0].Attributes)
	}
}
