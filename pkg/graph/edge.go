package graph

import (
	"fmt"

	"github.com/google/uuid"
)

// Policy is a provisioning policy attached to a Requirement (§3).
type Policy string

const (
	PolicyAny            Policy = "ANY"
	PolicyCreate         Policy = "CREATE"
	PolicyCreateTemplate Policy = "CREATE_TEMPLATE"
	PolicyClone          Policy = "CLONE"
	PolicyUpdate         Policy = "UPDATE"
	PolicyNoop           Policy = "NOOP"
)

// Requirement describes what a provisionable edge needs before it can be
// traversed. A nil ProviderID means unsatisfied.
type Requirement struct {
	Identifier      string         `json:"identifier,omitempty"`
	TemplateRef     string         `json:"template_ref,omitempty"`
	AssetRef        string         `json:"asset_ref,omitempty"`
	Criteria        map[string]any `json:"criteria,omitempty"`
	Policy          Policy         `json:"policy"`
	HardRequirement bool           `json:"hard_requirement"`
	ProviderID      *uuid.UUID     `json:"provider_id,omitempty"`
	// IsUnresolvable is set by PLANNING when a hard requirement found no
	// accepting offer; POSTREQS fails the tick when this remains true.
	IsUnresolvable bool `json:"is_unresolvable,omitempty"`
}

// Satisfied reports whether a provider has been bound.
func (r *Requirement) Satisfied() bool { return r != nil && r.ProviderID != nil }

// Edge is a directed, polymorphic reference from SourceUID to
// DestinationUID. DestinationUID may be nil only for an unresolved
// Dependency or Affordance edge (I1).
type Edge struct {
	UID            uuid.UUID    `json:"uid"`
	Kind           Kind         `json:"kind"`
	SourceUID      uuid.UUID    `json:"source_uid"`
	DestinationUID *uuid.UUID   `json:"destination_uid,omitempty"`
	Label          string       `json:"label,omitempty"`
	TriggerPhase   string       `json:"trigger_phase,omitempty"` // for ChoiceEdge: "PREREQS" or "POSTREQS"
	Predicate      string       `json:"predicate,omitempty"`
	Effects        []string     `json:"effects,omitempty"`
	Requirement    *Requirement `json:"requirement,omitempty"`
	// JumpKind distinguishes subroutine-jump Choice edges; empty for a
	// regular choice. One of "" | "JumpAndReturn" | "JumpReturn".
	JumpKind string `json:"jump_kind,omitempty"`
}

// NewEdge constructs an Edge of the given kind with a fresh uid.
func NewEdge(kind Kind, src uuid.UUID, dst *uuid.UUID) *Edge {
	return &Edge{
		UID:            NewUID(),
		Kind:           kind,
		SourceUID:      src,
		DestinationUID: dst,
	}
}

// Validate checks the edge is well-formed in isolation. Graph-level
// endpoint existence (I2) is checked by Graph.AddEdge.
func (e *Edge) Validate() error {
	if e.UID == uuid.Nil {
		return fmt.Errorf("edge: uid cannot be nil")
	}
	if !IsEdgeKind(e.Kind) {
		return fmt.Errorf("edge %s: %q is not an edge kind", e.UID, e.Kind)
	}
	if e.SourceUID == uuid.Nil {
		return fmt.Errorf("edge %s: source_uid cannot be nil", e.UID)
	}
	if e.DestinationUID == nil && !provisionableKinds[e.Kind] {
		return fmt.Errorf("edge %s: destination_uid may only be null for Dependency/Affordance, got kind %s", e.UID, e.Kind)
	}
	return nil
}

// String returns a human-readable representation of the Edge.
func (e *Edge) String() string {
	dst := "?"
	if e.DestinationUID != nil {
		dst = e.DestinationUID.String()
	}
	return fmt.Sprintf("Edge[%s %s %s->%s]", e.Kind, e.UID, e.SourceUID, dst)
}
