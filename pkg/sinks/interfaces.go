package sinks

import (
	"context"

	"github.com/Adda-Baaj/handshake/internal/logger"
)

// Sink receives the outcome of a handshake run (console, webhook, queue, topic).
type Sink interface {
	ID() string
	Type() string
	Deliver(ctx context.Context, evt Event) error
}

// Logger is the structured logger sinks report delivery results to.
type Logger = logger.Logger

func ensureLogger(log Logger) Logger {
	if log == nil {
		return logger.NopLogger{}
	}
	return log
}
