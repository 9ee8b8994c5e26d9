package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/derekmerck/storytangl/pkg/effect"
	"github.com/derekmerck/storytangl/pkg/tangerr"
)

var (
	eventsBucket    = []byte("events")
	snapshotsBucket = []byte("snapshots")
	headBucket      = []byte("heads") // graph_id -> last committed version + idempotency key
)

// BoltRepository is the reference Repository backend: a single embedded
// bbolt file with an append-only events bucket keyed by
// "graph_id||version", a snapshots bucket keyed by graph_id, and a heads
// bucket recording each graph's current version and last idempotency key,
// grounded on rohankatakam-coderisk's bolt.DB cache-bucket usage.
type BoltRepository struct {
	db *bolt.DB
}

// head is the per-graph pointer record stored in headBucket.
type head struct {
	Version        uint64 `json:"version"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// OpenBoltRepository opens (creating if absent) a bbolt file at path and
// ensures its three buckets exist.
func OpenBoltRepository(path string) (*BoltRepository, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: opening bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{eventsBucket, snapshotsBucket, headBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: initializing buckets: %w", err)
	}
	return &BoltRepository{db: db}, nil
}

func (r *BoltRepository) Close() error { return r.db.Close() }

func eventKey(graphID string, version uint64) []byte {
	buf := make([]byte, len(graphID)+8)
	copy(buf, graphID)
	binary.BigEndian.PutUint64(buf[len(graphID):], version)
	return buf
}

func (r *BoltRepository) LoadLatestSnapshot(_ context.Context, graphID string) (uint64, []byte, bool, error) {
	var version uint64
	var data []byte
	var ok bool
	err := r.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(snapshotsBucket)
		raw := bucket.Get([]byte(graphID))
		if raw == nil {
			return nil
		}
		var stored struct {
			Version uint64 `json:"version"`
			Data    []byte `json:"data"`
		}
		if err := json.Unmarshal(raw, &stored); err != nil {
			return err
		}
		version, data, ok = stored.Version, stored.Data, true
		return nil
	})
	if err != nil {
		return 0, nil, false, err
	}
	return version, data, ok, nil
}

func (r *BoltRepository) SaveSnapshot(_ context.Context, graphID string, version uint64, data []byte) error {
	payload, err := json.Marshal(struct {
		Version uint64 `json:"version"`
		Data    []byte `json:"data"`
	}{version, data})
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(snapshotsBucket).Put([]byte(graphID), payload)
	})
}

// LoadPatch reads back the patch appended at graphID's given version.
func (r *BoltRepository) LoadPatch(_ context.Context, graphID string, version uint64) (*effect.Patch, bool, error) {
	var patch *effect.Patch
	err := r.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(eventsBucket).Get(eventKey(graphID, version))
		if raw == nil {
			return nil
		}
		var p effect.Patch
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		patch = &p
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return patch, patch != nil, nil
}

// AppendPatch implements §4.5's optimistic-concurrency append: the caller's
// expectedVersion must match the graph's recorded head version, or the
// append fails with VersionConflict and the second of two concurrent
// callers loses (§4.5 "Concurrent appends ... serialize at the
// repository").
func (r *BoltRepository) AppendPatch(_ context.Context, graphID string, expectedVersion uint64, patch *effect.Patch, idemKey string) (uint64, error) {
	var newVersion uint64
	err := r.db.Update(func(tx *bolt.Tx) error {
		heads := tx.Bucket(headBucket)
		events := tx.Bucket(eventsBucket)

		var h head
		if raw := heads.Get([]byte(graphID)); raw != nil {
			if err := json.Unmarshal(raw, &h); err != nil {
				return err
			}
		}

		if idemKey != "" && idemKey == h.IdempotencyKey {
			newVersion = h.Version
			return nil
		}

		if h.Version != expectedVersion {
			return tangerr.New(tangerr.VersionConflict, fmt.Sprintf("graph %s at version %d, caller expected %d", graphID, h.Version, expectedVersion))
		}

		data, err := json.Marshal(patch)
		if err != nil {
			return err
		}
		newVersion = h.Version + 1
		if err := events.Put(eventKey(graphID, newVersion), data); err != nil {
			return err
		}
		h.Version = newVersion
		h.IdempotencyKey = idemKey
		payload, err := json.Marshal(h)
		if err != nil {
			return err
		}
		return heads.Put([]byte(graphID), payload)
	})
	if err != nil {
		return 0, err
	}
	return newVersion, nil
}
