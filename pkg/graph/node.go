package graph

import (
	"fmt"

	"github.com/google/uuid"
)

// Node is an entity owned by exactly one Graph at a time. UID is immutable;
// Tags, Locals, and Label are mutable only through effects once a Node is
// committed to a graph (§3 Ownership).
type Node struct {
	UID     uuid.UUID        `json:"uid"`
	Kind    Kind             `json:"kind"`
	Label   string           `json:"label,omitempty"`
	Tags    map[string]bool  `json:"tags,omitempty"`
	Locals  map[string]Value `json:"locals,omitempty"`
	// Content is the authored text/template source for Block and Concept
	// nodes; unused by other kinds.
	Content string `json:"content,omitempty"`
}

// NewNode constructs a Node of the given kind with a fresh uid.
func NewNode(kind Kind, label string) *Node {
	return &Node{
		UID:    NewUID(),
		Kind:   kind,
		Label:  label,
		Tags:   make(map[string]bool),
		Locals: make(map[string]Value),
	}
}

// Validate checks that the node is well-formed in isolation (kind is a
// known node kind, uid is set). Graph-level invariants (I1-I5) are checked
// by Graph.AddNode.
func (n *Node) Validate() error {
	if n.UID == uuid.Nil {
		return fmt.Errorf("node: uid cannot be nil")
	}
	if !IsNodeKind(n.Kind) {
		return fmt.Errorf("node %s: %q is not a node kind", n.UID, n.Kind)
	}
	return nil
}

// HasTag reports whether the node carries the given tag.
func (n *Node) HasTag(tag string) bool { return n.Tags[tag] }

// String returns a human-readable representation of the Node.
func (n *Node) String() string {
	return fmt.Sprintf("Node[%s %s %q]", n.Kind, n.UID, n.Label)
}
