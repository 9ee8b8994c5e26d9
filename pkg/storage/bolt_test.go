package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/derekmerck/storytangl/pkg/effect"
	"github.com/derekmerck/storytangl/pkg/graph"
	"github.com/derekmerck/storytangl/pkg/tangerr"
)

func openTestRepo(t *testing.T) *BoltRepository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storytangl.db")
	repo, err := OpenBoltRepository(path)
	if err != nil {
		t.Fatalf("OpenBoltRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestAppendPatchAdvancesVersion(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	patch := &effect.Patch{TickID: uuid.New(), BaseVersion: 0, RngSeed: 1}

	v, err := repo.AppendPatch(ctx, "g1", 0, patch, "")
	if err != nil {
		t.Fatalf("AppendPatch: %v", err)
	}
	if v != 1 {
		t.Errorf("version = %d, want 1", v)
	}
}

func TestAppendPatchDetectsVersionConflict(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	patch := &effect.Patch{TickID: uuid.New(), BaseVersion: 0, RngSeed: 1}

	if _, err := repo.AppendPatch(ctx, "g1", 0, patch, ""); err != nil {
		t.Fatalf("first append: %v", err)
	}
	_, err := repo.AppendPatch(ctx, "g1", 0, patch, "")
	var terr *tangerr.Error
	if err == nil {
		t.Fatal("want VersionConflict on stale expectedVersion")
	}
	if ok := asTangerr(err, &terr); !ok || terr.Kind != tangerr.VersionConflict {
		t.Errorf("err = %v, want VersionConflict", err)
	}
}

func TestAppendPatchIsIdempotent(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	patch := &effect.Patch{TickID: uuid.New(), BaseVersion: 0, RngSeed: 1}

	first, err := repo.AppendPatch(ctx, "g1", 0, patch, "retry-key")
	if err != nil {
		t.Fatalf("first append: %v", err)
	}
	second, err := repo.AppendPatch(ctx, "g1", 0, patch, "retry-key")
	if err != nil {
		t.Fatalf("retried append: %v", err)
	}
	if second != first {
		t.Errorf("retried append returned version %d, want %d", second, first)
	}
}

func TestLoadPatchReturnsAppendedPatch(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	patch := &effect.Patch{TickID: uuid.New(), BaseVersion: 0, RngSeed: 7}

	v, err := repo.AppendPatch(ctx, "g1", 0, patch, "")
	if err != nil {
		t.Fatalf("AppendPatch: %v", err)
	}

	loaded, ok, err := repo.LoadPatch(ctx, "g1", v)
	if err != nil || !ok {
		t.Fatalf("LoadPatch: ok=%v err=%v", ok, err)
	}
	if loaded.RngSeed != 7 {
		t.Errorf("RngSeed = %d, want 7", loaded.RngSeed)
	}

	_, ok, err = repo.LoadPatch(ctx, "g1", 99)
	if err != nil {
		t.Fatalf("LoadPatch missing version: %v", err)
	}
	if ok {
		t.Error("want ok=false for a version never appended")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	g := graph.New()
	b := graph.NewNode(graph.KindBlock, "start")
	if err := g.AddNode(b); err != nil {
		t.Fatal(err)
	}
	initial := b.UID
	g.InitialCursorID = &initial
	g.Version = 3

	data, err := MarshalSnapshotCompact(g)
	if err != nil {
		t.Fatalf("MarshalSnapshotCompact: %v", err)
	}
	if err := repo.SaveSnapshot(ctx, "g1", g.Version, data); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	version, loaded, ok, err := repo.LoadLatestSnapshot(ctx, "g1")
	if err != nil || !ok {
		t.Fatalf("LoadLatestSnapshot: ok=%v err=%v", ok, err)
	}
	if version != 3 {
		t.Errorf("version = %d, want 3", version)
	}

	restored, err := UnmarshalSnapshot(loaded)
	if err != nil {
		t.Fatalf("UnmarshalSnapshot: %v", err)
	}
	if restored.InitialCursorID == nil || *restored.InitialCursorID != b.UID {
		t.Errorf("restored InitialCursorID = %v, want %v", restored.InitialCursorID, b.UID)
	}
	got, err := restored.GetNode(b.UID)
	if err != nil || got.Label != "start" {
		t.Fatalf("restored node = %+v, err %v", got, err)
	}
}

func asTangerr(err error, target **tangerr.Error) bool {
	for err != nil {
		if te, ok := err.(*tangerr.Error); ok {
			*target = te
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
