package effect

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/derekmerck/storytangl/pkg/graph"
	"github.com/derekmerck/storytangl/pkg/journal"
	"github.com/derekmerck/storytangl/pkg/rng"
	"github.com/derekmerck/storytangl/pkg/tangerr"
)

// Buffer accumulates effects and journal fragments for one tick (§4.5).
type Buffer struct {
	base        *graph.Graph
	baseVersion uint64
	tickID      uuid.UUID
	rngSeed     uint64

	allocRNG   *rng.RNG
	journalRNG *rng.RNG
	effects    []Effect
	journal    []journal.Fragment

	preview *graph.Graph
	dirty   bool
}

// NewBuffer constructs a Buffer over base at its current version, deriving
// a tick id and a uid-allocation RNG from rngSeed (§4.5, §8 "Determinism").
func NewBuffer(base *graph.Graph, rngSeed uint64) *Buffer {
	var salt [8]byte
	binary.BigEndian.PutUint64(salt[:], base.Tick)
	tickSeedRNG := rng.NewRNG(rngSeed, "tick_id", salt[:])
	var tickBytes [16]byte
	binary.BigEndian.PutUint64(tickBytes[0:8], tickSeedRNG.Uint64())
	binary.BigEndian.PutUint64(tickBytes[8:16], tickSeedRNG.Uint64())
	tickID := deriveUUID(tickBytes)

	return &Buffer{
		base:        base,
		baseVersion: base.Version,
		tickID:      tickID,
		rngSeed:     rngSeed,
		allocRNG:    rng.NewRNG(rngSeed, "effect_uid_allocator", tickID[:]),
		journalRNG:  rng.NewRNG(rngSeed, "journal_fragment_allocator", tickID[:]),
		preview:     base,
	}
}

// deriveUUID stamps RFC 4122 version/variant bits onto 16 deterministic
// bytes so allocated uids remain valid v4-shaped uuids while staying a
// pure function of the tick's seed.
func deriveUUID(b [16]byte) uuid.UUID {
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return uuid.UUID(b)
}

// allocUID mints the next deterministic uid for this tick.
func (b *Buffer) allocUID() uuid.UUID {
	var raw [16]byte
	binary.BigEndian.PutUint64(raw[0:8], b.allocRNG.Uint64())
	binary.BigEndian.PutUint64(raw[8:16], b.allocRNG.Uint64())
	return deriveUUID(raw)
}

// AllocFragmentUID mints the next deterministic uid for a JOURNAL fragment,
// drawn from a pool independent of allocUID's node/edge uids so composing
// the journal never perturbs graph-mutation uid sequencing. Patch.Journal
// is part of the committed Patch (§3); two Step calls with an identical
// (graph, choice, seed) must mint identical fragment uids (§8 Determinism).
func (b *Buffer) AllocFragmentUID() uuid.UUID {
	var raw [16]byte
	binary.BigEndian.PutUint64(raw[0:8], b.journalRNG.Uint64())
	binary.BigEndian.PutUint64(raw[8:16], b.journalRNG.Uint64())
	return deriveUUID(raw)
}

// TickID returns the tick id this buffer was constructed for.
func (b *Buffer) TickID() uuid.UUID { return b.tickID }

// emit appends e with its sequence stamped and invalidates the preview.
func (b *Buffer) emit(e Effect) {
	e.seq = len(b.effects)
	b.effects = append(b.effects, e)
	b.dirty = true
}

// Say appends a journal fragment to the buffer, whether produced by the
// JOURNAL phase's own composition pass or narrated mid-tick by a Game
// handler's side effect. Every fragment committed to this tick's Patch
// passes through Say, so Patch.Journal reflects emission order.
func (b *Buffer) Say(f journal.Fragment) {
	b.journal = append(b.journal, f)
}

// JournalFragments returns the fragments recorded via Say, in emission order.
func (b *Buffer) JournalFragments() []journal.Fragment {
	return append([]journal.Fragment(nil), b.journal...)
}

// EffectCount returns the number of effects emitted so far, before
// canonicalization. Used by dispatch to compute a handler's
// ProducedEffectCount for its Receipt.
func (b *Buffer) EffectCount() int {
	return len(b.effects)
}

// CreateNode allocates a uid and emits a CreateNode effect, returning the
// new node's uid for use by subsequent effects in the same buffer.
func (b *Buffer) CreateNode(kind graph.Kind, label, content string) uuid.UUID {
	nodeUID := b.allocUID()
	b.emit(Effect{Kind: KindCreateNode, NodeUID: nodeUID, NodeKind: kind, NodeLabel: label, NodeContent: content})
	return nodeUID
}

// AddEdge allocates a uid and emits an AddEdge effect.
func (b *Buffer) AddEdge(kind graph.Kind, src uuid.UUID, dst *uuid.UUID, label string) uuid.UUID {
	edgeUID := b.allocUID()
	b.emit(Effect{Kind: KindAddEdge, EdgeUID: edgeUID, EdgeKind: kind, SourceUID: src, DestUID: dst, EdgeLabel: label})
	return edgeUID
}

// DelEdge emits a DelEdge effect for an existing edge uid.
func (b *Buffer) DelEdge(edgeUID uuid.UUID) {
	b.emit(Effect{Kind: KindDelEdge, EdgeUID: edgeUID})
}

// SetAttr emits a SetAttr effect against a node's label/content/tags/locals.
func (b *Buffer) SetAttr(nodeUID uuid.UUID, path string, value any) {
	b.emit(Effect{Kind: KindSetAttr, AttrUID: nodeUID, Path: path, Value: value})
}

// SetCursor emits a SetCursor effect, moving the graph's cursor at commit.
func (b *Buffer) SetCursor(nodeUID uuid.UUID) {
	b.emit(Effect{Kind: KindSetCursor, CursorUID: nodeUID})
}

// PushFrame emits a PushFrame effect for a subroutine jump.
func (b *Buffer) PushFrame(f graph.StackFrame) {
	b.emit(Effect{Kind: KindPushFrame, Frame: f})
}

// PopFrame emits a PopFrame effect, unwinding a subroutine return.
func (b *Buffer) PopFrame() {
	b.emit(Effect{Kind: KindPopFrame})
}

// Preview returns a read-your-writes view of the graph with every effect
// emitted so far applied on top of the base version. The clone is cached
// and only rebuilt when new effects have been emitted since the last call
// (§4.5 "copy-on-write overlay").
func (b *Buffer) Preview() (*graph.Graph, error) {
	if !b.dirty && b.preview != nil {
		return b.preview, nil
	}
	clone := b.base.Clone()
	if err := apply(clone, canonicalize(b.effects)); err != nil {
		return nil, err
	}
	b.preview = clone
	b.dirty = false
	return b.preview, nil
}

// ToPatch canonicalizes the accumulated effects into a Patch ready for
// commit (§3).
func (b *Buffer) ToPatch() *Patch {
	return &Patch{
		TickID:      b.tickID,
		BaseVersion: b.baseVersion,
		RngSeed:     b.rngSeed,
		Effects:     canonicalize(b.effects),
		Journal:     append([]journal.Fragment(nil), b.journal...),
	}
}

// Commit canonicalizes and applies the buffer's effects directly to base,
// bumping its version, and returns the resulting Patch. It fails with
// tangerr.VersionConflict if base has advanced past the buffer's recorded
// base version since construction (§4.5 "Commit").
func (b *Buffer) Commit() (*Patch, error) {
	if b.base.Version != b.baseVersion {
		return nil, tangerr.New(tangerr.VersionConflict, fmt.Sprintf("base graph at version %d, buffer expected %d", b.base.Version, b.baseVersion))
	}
	patch := b.ToPatch()
	if err := Commit(b.base, patch); err != nil {
		return nil, err
	}
	return patch, nil
}
