package storage

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/derekmerck/storytangl/pkg/graph"
)

// Snapshot is the JSON-serializable form of a Graph's full state, written
// to the snapshots bucket and read back to seed a fresh in-memory Graph
// without replaying its entire event log.
type Snapshot struct {
	Version         uint64              `json:"version"`
	Tick            uint64              `json:"tick"`
	InitialCursorID *uuid.UUID          `json:"initial_cursor_id,omitempty"`
	CursorID        *uuid.UUID          `json:"cursor_id,omitempty"`
	CursorHistory   []uuid.UUID         `json:"cursor_history,omitempty"`
	CallStack       []graph.StackFrame  `json:"call_stack,omitempty"`
	Nodes           []*graph.Node       `json:"nodes"`
	Edges           []*graph.Edge       `json:"edges"`
}

// MarshalSnapshot captures g's full state as an indented JSON document,
// mirroring pkg/export/json.go's ExportJSON.
func MarshalSnapshot(g *graph.Graph) ([]byte, error) {
	return json.MarshalIndent(toSnapshot(g), "", "  ")
}

// MarshalSnapshotCompact captures g's full state as compact JSON,
// mirroring pkg/export/json.go's ExportJSONCompact.
func MarshalSnapshotCompact(g *graph.Graph) ([]byte, error) {
	return json.Marshal(toSnapshot(g))
}

func toSnapshot(g *graph.Graph) *Snapshot {
	return &Snapshot{
		Version:         g.Version,
		Tick:            g.Tick,
		InitialCursorID: g.InitialCursorID,
		CursorID:        g.CursorID,
		CursorHistory:   g.CursorHistory,
		CallStack:       g.CallStack,
		Nodes:           g.FindAllNodes(graph.FindFilter{}),
		Edges:           g.FindAllEdges(graph.FindFilter{}),
	}
}

// UnmarshalSnapshot rebuilds a Graph from a snapshot document produced by
// MarshalSnapshot/MarshalSnapshotCompact.
func UnmarshalSnapshot(data []byte) (*graph.Graph, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	g := graph.New()
	for _, n := range snap.Nodes {
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, e := range snap.Edges {
		if err := g.AddEdge(e); err != nil {
			return nil, err
		}
	}
	g.Version = snap.Version
	g.Tick = snap.Tick
	g.InitialCursorID = snap.InitialCursorID
	g.CursorID = snap.CursorID
	g.CursorHistory = snap.CursorHistory
	g.CallStack = snap.CallStack
	return g, nil
}
