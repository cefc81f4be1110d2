package domain

import "time"

// Run is the recorded outcome of one handshake.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Endpoint   string    `json:"endpoint"`
	Msg        string    `json:"msg"`
	URI        string    `json:"uri"`
	NextURL    string    `json:"next_url,omitempty"`
	Code       string    `json:"code,omitempty"`
	Stage      string    `json:"stage"`
	Success    bool      `json:"success"`
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Duration is the wall-clock time the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Display is the single line a presentation sink shows for the run.
func (r Run) Display() string {
	if r.Success {
		return r.Message
	}
	return "Error: " + r.Error
}
