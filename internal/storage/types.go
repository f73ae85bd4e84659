package storage

import (
	"errors"
	"time"
)

// ErrUnavailable marks transient infrastructure failures reaching the store.
// Callers may retry with backoff; this layer never does.
var ErrUnavailable = errors.New("store unavailable")

// ErrCorrupt marks a stored row that cannot be decoded. Not transient, not
// retried; the wrapped detail locates the bad record.
var ErrCorrupt = errors.New("store corrupt")

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file (default)
//   - "file": dependency-free JSONL quote file
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}
