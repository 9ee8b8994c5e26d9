package effect

import (
	"github.com/google/uuid"

	"github.com/derekmerck/storytangl/pkg/graph"
)

// Kind discriminates the variant of an Effect (§3).
type Kind string

const (
	KindCreateNode Kind = "CreateNode"
	KindAddEdge    Kind = "AddEdge"
	KindDelEdge    Kind = "DelEdge"
	KindSetAttr    Kind = "SetAttr"
	KindSetCursor  Kind = "SetCursor"
	KindPushFrame  Kind = "PushFrame"
	KindPopFrame   Kind = "PopFrame"
)

// Effect is a single tagged mutation emitted by a handler. Only the fields
// relevant to Kind are populated; the rest are zero.
type Effect struct {
	Kind Kind `json:"kind"`

	// CreateNode
	NodeUID     uuid.UUID    `json:"node_uid,omitempty"`
	NodeKind    graph.Kind   `json:"node_kind,omitempty"`
	NodeLabel   string       `json:"node_label,omitempty"`
	NodeContent string       `json:"node_content,omitempty"`

	// AddEdge / DelEdge
	EdgeUID       uuid.UUID      `json:"edge_uid,omitempty"`
	EdgeKind      graph.Kind     `json:"edge_kind,omitempty"`
	SourceUID     uuid.UUID      `json:"source_uid,omitempty"`
	DestUID       *uuid.UUID     `json:"dest_uid,omitempty"`
	EdgeLabel     string         `json:"edge_label,omitempty"`
	Predicate     string         `json:"predicate,omitempty"`
	Requirement   *graph.Requirement `json:"requirement,omitempty"`

	// SetAttr: Path is one of "label", "content", "tags.<name>",
	// "locals.<name>".
	AttrUID  uuid.UUID `json:"attr_uid,omitempty"`
	Path     string    `json:"path,omitempty"`
	Value    any       `json:"value,omitempty"`

	// SetCursor
	CursorUID uuid.UUID `json:"cursor_uid,omitempty"`

	// PushFrame / PopFrame
	Frame graph.StackFrame `json:"frame,omitempty"`

	// seq records emission order; used for canonicalization tie-breaking
	// and is not part of the committed Patch representation.
	seq int
}
