package vm

import (
	"github.com/google/uuid"

	"github.com/derekmerck/storytangl/pkg/graph"
)

// TraversableDomain bounds a section of the graph for softlock detection
// (§4.6, §9 "Softlock detection"). MemberIDs is the section's membership;
// ExitNodeIDs are the nodes has_forward_progress must be able to reach.
// Unlike the wiring it is grounded on, it does not materialize synthetic
// source/sink nodes in the graph — membership and exits are enough to
// bound a reachability check without mutating the story graph.
type TraversableDomain struct {
	Label        string
	MemberIDs    []uuid.UUID
	EntryNodeIDs []uuid.UUID
	ExitNodeIDs  []uuid.UUID
}

// NewTraversableDomain builds a domain over members, defaulting entry to
// the first member and exit to the last when not given explicitly.
func NewTraversableDomain(label string, members []uuid.UUID) *TraversableDomain {
	d := &TraversableDomain{Label: label, MemberIDs: members}
	if len(members) > 0 {
		d.EntryNodeIDs = []uuid.UUID{members[0]}
		d.ExitNodeIDs = []uuid.UUID{members[len(members)-1]}
	}
	return d
}

// PredicateEvaluator checks whether a ChoiceEdge's predicate is currently
// satisfied against ns; nil is treated as always-true.
type PredicateEvaluator func(edge *graph.Edge, ns map[string]any) (bool, error)

// HasForwardProgress reports whether from can still reach one of the
// domain's exit nodes using only Choice edges whose destination stays
// within the domain and whose requirement/predicate is satisfied (§4.6).
// The search is a plain BFS restricted to MemberIDs, exactly as the
// bounded-section reachability check it is grounded on.
func (d *TraversableDomain) HasForwardProgress(g *graph.Graph, from uuid.UUID, ns map[string]any, eval PredicateEvaluator) (bool, error) {
	allowed := make(map[uuid.UUID]bool, len(d.MemberIDs))
	for _, m := range d.MemberIDs {
		allowed[m] = true
	}
	exits := make(map[uuid.UUID]bool, len(d.ExitNodeIDs))
	for _, e := range d.ExitNodeIDs {
		exits[e] = true
	}

	visited := map[uuid.UUID]bool{}
	queue := []uuid.UUID{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true

		if exits[cur] {
			return true, nil
		}

		for _, edge := range g.EdgesOut(cur, graph.KindChoice) {
			if edge.DestinationUID == nil || !allowed[*edge.DestinationUID] {
				continue
			}
			if edge.Requirement != nil && edge.Requirement.HardRequirement && !edge.Requirement.Satisfied() {
				continue
			}
			if eval != nil {
				ok, err := eval(edge, ns)
				if err != nil {
					return false, err
				}
				if !ok {
					continue
				}
			}
			queue = append(queue, *edge.DestinationUID)
		}
	}
	return false, nil
}
