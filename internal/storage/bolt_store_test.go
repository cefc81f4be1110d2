package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Adda-Baaj/handshake/internal/domain"
)

func TestBoltStoreRecordsAndExpiresRuns(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		RunTTL:          1 * time.Second,
		CleanupInterval: 1 * time.Second,
	}

	storeRaw, err := openBolt(dir+"/history.db", opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	runs, err := store.Recent(10)
	if err != nil || len(runs) != 0 {
		t.Fatalf("expected empty history, runs=%v err=%v", runs, err)
	}

	if err := store.Record(domain.Run{ID: "r1", StartedAt: time.Now(), Success: true, Message: "OK"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	runs, err = store.Recent(10)
	if err != nil || len(runs) != 1 || runs[0].Message != "OK" {
		t.Fatalf("expected recorded run, got runs=%v err=%v", runs, err)
	}

	// Fast-forward cleanup cadence and trigger expiry.
	store.lastCleanup.Store(time.Now().Add(-2 * time.Second).Unix())
	time.Sleep(1100 * time.Millisecond)

	if err := store.Record(domain.Run{ID: "r2", StartedAt: time.Now()}); err != nil {
		t.Fatalf("Record after expiry: %v", err)
	}
	runs, err = store.Recent(0)
	if err != nil {
		t.Fatalf("Recent after expiry: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "r2" {
		t.Fatalf("expected only r2 to survive, got %#v", runs)
	}
}

func TestBoltStoreRecentIsNewestFirstAndLimited(t *testing.T) {
	storeRaw, err := openBolt(t.TempDir()+"/nested/history.db", Options{RunTTL: time.Hour, CleanupInterval: time.Hour})
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer storeRaw.Close()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := storeRaw.Record(domain.Run{ID: id, StartedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("Record %s: %v", id, err)
		}
	}

	runs, err := storeRaw.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("unexpected order %#v", runs)
	}
}

func TestBoltStoreRejectsEmptyID(t *testing.T) {
	store, err := NewStore("bbolt", t.TempDir()+"/h.db", Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	if err := store.Record(domain.Run{}); err == nil {
		t.Fatalf("expected error for run without id")
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.Record(domain.Run{ID: "x"}); err != nil {
		t.Fatalf("noop store Record: %v", err)
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "", Options{}); !errors.Is(err, ErrInvalidBackend) {
		t.Fatalf("expected ErrInvalidBackend for unsupported type, got %v", err)
	}
	if _, err := NewStore("bbolt", " ", Options{}); !errors.Is(err, ErrInvalidBackend) {
		t.Fatalf("expected ErrInvalidBackend for missing path, got %v", err)
	}
}

func TestNewStoreLockedDatabaseIsNotInvalidBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	holder, err := NewStore("bbolt", path, Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer holder.Close()

	_, err = NewStore("bbolt", path, Options{})
	if err == nil {
		t.Fatalf("expected error opening a locked database")
	}
	if errors.Is(err, ErrInvalidBackend) {
		t.Fatalf("lock timeout should not be reported as invalid backend: %v", err)
	}
}
