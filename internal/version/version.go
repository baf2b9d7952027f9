// Package version issues the per-write Version labels a leader
// attaches to every Store.Set, either a strictly increasing counter or
// a wall-clock timestamp.
package version

import (
	"sync/atomic"
	"time"

	"github.com/kvlab/leaderfollower/internal/types"
)

// Source issues the next version for a write.
type Source interface {
	Next() types.Version
}

// Counter is a strictly increasing VersionSource: every call returns a
// value one greater than the last, starting at 1. Safe for concurrent
// use by many writer goroutines.
type Counter struct {
	n atomic.Uint64
}

// NewCounter returns a Counter whose first Next returns 1.
func NewCounter() *Counter {
	return &Counter{}
}

// Next returns fetch-and-add(1); the result is unique across all
// callers in the process and strictly greater than every prior return.
func (c *Counter) Next() types.Version {
	return types.Version(c.n.Add(1))
}

// Timestamp is the non-monotone-safe VersionSource: it returns the
// current wall-clock in milliseconds since the epoch. Two calls within
// the same millisecond collide, and clock skew or reordering between
// concurrent writers can hand a stale value a newer-looking timestamp
// than a genuinely newer write. Never the default policy.
type Timestamp struct{}

// NewTimestamp returns a Timestamp VersionSource.
func NewTimestamp() *Timestamp {
	return &Timestamp{}
}

// Next returns time.Now().UnixMilli() cast to Version. No uniqueness
// guarantee.
func (Timestamp) Next() types.Version {
	return types.Version(time.Now().UnixMilli())
}
