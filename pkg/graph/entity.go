package graph

import "github.com/google/uuid"

// Value is anything that can live in an entity's locals namespace frame or
// flow through the expression evaluator: strings, numbers, bools, nested
// maps/slices, or nil.
type Value = any

// Kind discriminates Node and Edge subtypes for the {kind -> constructor}
// deserialization registry and for index buckets.
type Kind string

// Node kinds.
const (
	KindBlock    Kind = "Block"
	KindConcept  Kind = "Concept"
	KindActor    Kind = "Actor"
	KindLocation Kind = "Location"
	KindRole     Kind = "Role"
	KindScene    Kind = "Scene"
	KindGame     Kind = "Game"
	KindSource   Kind = "Source"
	KindSink     Kind = "Sink"
)

// Edge kinds.
const (
	KindChild       Kind = "Child"
	KindChoice      Kind = "Choice"
	KindDependency  Kind = "Dependency"
	KindAffordance  Kind = "Affordance"
	KindMediaDep    Kind = "MediaDep"
	KindAction      Kind = "Action"
	KindAssociation Kind = "Association"
)

// nodeKinds and edgeKinds let callers ask "is this uid a node or an edge"
// without a type switch at every call site.
var nodeKinds = map[Kind]bool{
	KindBlock: true, KindConcept: true, KindActor: true, KindLocation: true,
	KindRole: true, KindScene: true, KindGame: true, KindSource: true, KindSink: true,
}

var edgeKinds = map[Kind]bool{
	KindChild: true, KindChoice: true, KindDependency: true, KindAffordance: true,
	KindMediaDep: true, KindAction: true, KindAssociation: true,
}

// IsNodeKind reports whether k identifies a Node subtype.
func IsNodeKind(k Kind) bool { return nodeKinds[k] }

// IsEdgeKind reports whether k identifies an Edge subtype.
func IsEdgeKind(k Kind) bool { return edgeKinds[k] }

// provisionableKinds identifies edge kinds allowed a null destination (I1).
var provisionableKinds = map[Kind]bool{
	KindDependency: true,
	KindAffordance: true,
}

// NewUID allocates a fresh random entity identifier. The deterministic,
// seed-derived allocator used inside a tick lives in pkg/effect; this one
// is for entities created outside the tick boundary (e.g. IR compilation).
func NewUID() uuid.UUID {
	return uuid.New()
}
