package sinks

import (
	"time"

	"github.com/Adda-Baaj/handshake/internal/domain"
)

// Event represents the payload delivered downstream.
type Event struct {
	Source    string     `json:"source"`
	Run       domain.Run `json:"run"`
	EmittedAt time.Time  `json:"emitted_at"`
}

// NewEvent constructs an Event for the given caller (cli, server) and run.
func NewEvent(source string, run domain.Run) Event {
	return Event{
		Source:    source,
		Run:       run,
		EmittedAt: time.Now().UTC(),
	}
}

// outcome is the short label used in message attributes.
func (e Event) outcome() string {
	if e.Run.Success {
		return "success"
	}
	return "failure"
}
