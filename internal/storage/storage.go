// Package storage keeps a local history of handshake runs.
package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Adda-Baaj/handshake/internal/domain"
)

// Store records run outcomes.
type Store interface {
	Close() error
	Record(run domain.Run) error
	Recent(limit int) ([]domain.Run, error)
}

// ErrInvalidBackend marks a history configuration that can never work
// (unknown type, missing path), as opposed to a store that failed to open.
var ErrInvalidBackend = errors.New("invalid storage backend")

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	RunTTL          time.Duration
	CleanupInterval time.Duration
}

const (
	defaultRunTTL          = 7 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return Noop(), nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("%w: bbolt storage requires a path", ErrInvalidBackend)
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("%w: unsupported storage type %q", ErrInvalidBackend, typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.RunTTL <= 0 {
		opts.RunTTL = defaultRunTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

// Noop returns a store that records nothing.
func Noop() Store { return noopStore{} }

type noopStore struct{}

func (noopStore) Close() error                     { return nil }
func (noopStore) Record(domain.Run) error          { return nil }
func (noopStore) Recent(int) ([]domain.Run, error) { return nil, nil }
