package storage

import (
	"context"

	"github.com/derekmerck/storytangl/pkg/effect"
)

// Repository is the §4.5/§6 persistence contract every backend must
// satisfy: load the latest snapshot, append committed patches to an
// append-only log keyed by graph id, and periodically checkpoint a fresh
// snapshot.
type Repository interface {
	// LoadLatestSnapshot returns the most recently saved snapshot for
	// graphID and its version, or ok=false if none exists yet.
	LoadLatestSnapshot(ctx context.Context, graphID string) (version uint64, data []byte, ok bool, err error)

	// AppendPatch appends patch to graphID's event log, failing with
	// tangerr.VersionConflict if expectedVersion does not match the log's
	// current head. If idemKey is non-empty and matches the key recorded
	// on the log's last append, AppendPatch returns the previously
	// recorded new version without re-applying (§4.5 "Idempotency").
	AppendPatch(ctx context.Context, graphID string, expectedVersion uint64, patch *effect.Patch, idemKey string) (newVersion uint64, err error)

	// SaveSnapshot records data as graphID's latest snapshot at version.
	SaveSnapshot(ctx context.Context, graphID string, version uint64, data []byte) error

	// LoadPatch returns the committed patch at graphID's given version, or
	// ok=false if no such version was ever appended.
	LoadPatch(ctx context.Context, graphID string, version uint64) (patch *effect.Patch, ok bool, err error)

	// Close releases any resources the repository holds open.
	Close() error
}
