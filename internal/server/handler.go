// Package server exposes the handshake to web callers.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Adda-Baaj/handshake/internal/config"
	"github.com/Adda-Baaj/handshake/internal/domain"
)

const sourceServer = "server"

// Runner performs one handshake for the given configuration.
type Runner interface {
	Run(ctx context.Context, cfg *config.Config, source string) domain.Run
}

// Handler answers handshake requests using a base config overridden per request.
type Handler struct {
	base   config.Config
	runner Runner
}

// NewHandler returns a handler that runs handshakes with runner.
func NewHandler(base config.Config, runner Runner) *Handler {
	return &Handler{base: base, runner: runner}
}

// Handshake runs the handshake with endpoint, msg, uri, timeout and verbose taken
// from the query string or form. Success is 200 with the final message; any
// failure is 500 with the error description.
func (h *Handler) Handshake(w http.ResponseWriter, r *http.Request) {
	// ParseForm only fills PostForm for POST/PUT/PATCH bodies.
	if err := r.ParseForm(); err != nil {
		writeText(w, http.StatusInternalServerError, fmt.Sprintf("Error: parse request: %v", err))
		return
	}

	cfg, err := config.WithRequestParams(h.base, r.URL.Query(), r.PostForm)
	if err != nil {
		writeText(w, http.StatusInternalServerError, "Error: "+err.Error())
		return
	}

	run := h.runner.Run(r.Context(), cfg, sourceServer)
	if !run.Success {
		writeText(w, http.StatusInternalServerError, run.Display())
		return
	}
	writeText(w, http.StatusOK, "Final message:\n"+run.Display())
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "ok")
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
