// Package omv provides a JSON-RPC HTTP client for the OpenMediaVault
// management API.
package omv

import (
	"context"
	"time"
)

// Client defines the interface for talking to an OpenMediaVault server.
type Client interface {
	// Login authenticates against the session service and stores the
	// resulting session cookie on the client for subsequent calls.
	Login(ctx context.Context) error

	// SystemInformation fetches the System.getInformation RPC and returns
	// the parsed snapshot.
	SystemInformation(ctx context.Context) (*Snapshot, error)
}

// Snapshot holds the fields of one successful System.getInformation call.
// Field keys are normalized to lowercase with spaces replaced by
// underscores (e.g. "CPU usage" becomes "cpu_usage"); OMV progress values
// keep their numeric part under the field key and their display text under
// "<key>_text". A Snapshot is immutable once returned by the client.
type Snapshot struct {
	Fields    map[string]any
	FetchedAt time.Time
}

// Value returns the field stored under key and whether it was present.
func (s *Snapshot) Value(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.Fields[key]
	return v, ok
}

// Age reports how long ago the snapshot was fetched.
func (s *Snapshot) Age() time.Duration {
	if s == nil {
		return 0
	}
	return time.Since(s.FetchedAt)
}
