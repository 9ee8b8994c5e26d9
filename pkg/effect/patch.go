package effect

import (
	"strings"

	"github.com/google/uuid"

	"github.com/derekmerck/storytangl/pkg/graph"
	"github.com/derekmerck/storytangl/pkg/journal"
	"github.com/derekmerck/storytangl/pkg/tangerr"
)

// Patch is the canonicalized, committable record of one tick's effects
// (§3). It is the unit persisted by pkg/storage and replayed for audit.
type Patch struct {
	TickID         uuid.UUID          `json:"tick_id"`
	BaseVersion    uint64             `json:"base_version"`
	RngSeed        uint64             `json:"rng_seed"`
	Effects        []Effect           `json:"effects"`
	Journal        []journal.Fragment `json:"journal"`
	IdempotencyKey string             `json:"idempotency_key,omitempty"`
}

// canonicalize reduces a raw emission-ordered effect list to its committed
// form (§4.5 "Canonicalization"):
//   - multiple SetAttr on the same (uid, path) coalesce to one, keeping the
//     first effect's position but the last effect's value;
//   - multiple CreateNode/AddEdge sharing a uid (a handler re-emitting the
//     same creation) dedupe to the first occurrence.
func canonicalize(effects []Effect) []Effect {
	lastSetAttr := map[string]any{}
	for _, e := range effects {
		if e.Kind == KindSetAttr {
			lastSetAttr[setAttrKey(e)] = e.Value
		}
	}

	seenNode := map[uuid.UUID]bool{}
	seenEdge := map[uuid.UUID]bool{}
	seenSetAttr := map[string]bool{}

	out := make([]Effect, 0, len(effects))
	for _, e := range effects {
		switch e.Kind {
		case KindCreateNode:
			if seenNode[e.NodeUID] {
				continue
			}
			seenNode[e.NodeUID] = true
		case KindAddEdge:
			if seenEdge[e.EdgeUID] {
				continue
			}
			seenEdge[e.EdgeUID] = true
		case KindSetAttr:
			key := setAttrKey(e)
			if seenSetAttr[key] {
				continue
			}
			seenSetAttr[key] = true
			e.Value = lastSetAttr[key]
		}
		out = append(out, e)
	}
	return out
}

func setAttrKey(e Effect) string {
	var b strings.Builder
	b.WriteString(e.AttrUID.String())
	b.WriteByte('\x00')
	b.WriteString(e.Path)
	return b.String()
}

// apply mutates g in place according to effects, in order. Called both to
// build a Preview (against a clone) and to Commit (against the live base).
func apply(g *graph.Graph, effects []Effect) error {
	for _, e := range effects {
		if err := applyOne(g, e); err != nil {
			return err
		}
	}
	return nil
}

func applyOne(g *graph.Graph, e Effect) error {
	switch e.Kind {
	case KindCreateNode:
		n := &graph.Node{
			UID:     e.NodeUID,
			Kind:    e.NodeKind,
			Label:   e.NodeLabel,
			Content: e.NodeContent,
			Tags:    make(map[string]bool),
			Locals:  make(map[string]graph.Value),
		}
		return g.AddNode(n)

	case KindAddEdge:
		edge := &graph.Edge{
			UID:            e.EdgeUID,
			Kind:           e.EdgeKind,
			SourceUID:      e.SourceUID,
			DestinationUID: e.DestUID,
			Label:          e.EdgeLabel,
			Predicate:      e.Predicate,
			Requirement:    e.Requirement,
		}
		return g.AddEdge(edge)

	case KindDelEdge:
		return g.RemoveEdge(e.EdgeUID)

	case KindSetAttr:
		if strings.HasPrefix(e.Path, "requirement.") {
			return applyEdgeSetAttr(g, e)
		}
		return applySetAttr(g, e)

	case KindSetCursor:
		if _, err := g.GetNode(e.CursorUID); err != nil {
			return err
		}
		cursor := e.CursorUID
		g.CursorHistory = append(g.CursorHistory, cursor)
		g.CursorID = &cursor
		return nil

	case KindPushFrame:
		g.CallStack = append(g.CallStack, e.Frame)
		return nil

	case KindPopFrame:
		if len(g.CallStack) > 0 {
			g.CallStack = g.CallStack[:len(g.CallStack)-1]
		}
		return nil

	default:
		return tangerr.New(tangerr.UnknownOperation, string(e.Kind))
	}
}

func applySetAttr(g *graph.Graph, e Effect) error {
	n, err := g.GetNode(e.AttrUID)
	if err != nil {
		return err
	}
	switch {
	case e.Path == "label":
		if s, ok := e.Value.(string); ok {
			n.Label = s
		}
	case e.Path == "content":
		if s, ok := e.Value.(string); ok {
			n.Content = s
		}
	case strings.HasPrefix(e.Path, "tags."):
		name := strings.TrimPrefix(e.Path, "tags.")
		if b, ok := e.Value.(bool); ok {
			if n.Tags == nil {
				n.Tags = make(map[string]bool)
			}
			if b {
				n.Tags[name] = true
			} else {
				delete(n.Tags, name)
			}
		}
	case strings.HasPrefix(e.Path, "locals."):
		name := strings.TrimPrefix(e.Path, "locals.")
		if n.Locals == nil {
			n.Locals = make(map[string]graph.Value)
		}
		n.Locals[name] = e.Value
	default:
		return tangerr.New(tangerr.NotFound, "unknown attr path "+e.Path)
	}
	return nil
}

// applyEdgeSetAttr handles SetAttr effects targeting an Edge's Requirement,
// the one place the otherwise node-only SetAttr variant addresses an edge
// (§4.4 "bind requirement.provider_id = provider.uid").
func applyEdgeSetAttr(g *graph.Graph, e Effect) error {
	edge, err := g.GetEdge(e.AttrUID)
	if err != nil {
		return err
	}
	if edge.Requirement == nil {
		return tangerr.New(tangerr.NotFound, "edge has no requirement: "+e.AttrUID.String())
	}
	switch e.Path {
	case "requirement.provider_id":
		id, ok := e.Value.(uuid.UUID)
		if !ok {
			return tangerr.New(tangerr.NotFound, "requirement.provider_id value is not a uuid")
		}
		edge.Requirement.ProviderID = &id
		edge.Requirement.IsUnresolvable = false
	case "requirement.is_unresolvable":
		b, _ := e.Value.(bool)
		edge.Requirement.IsUnresolvable = b
	default:
		return tangerr.New(tangerr.NotFound, "unknown requirement attr path "+e.Path)
	}
	return nil
}

// Commit applies patch's effects to g and advances its version, failing
// with tangerr.VersionConflict if g is not at patch's expected base
// version (§4.5 "Commit").
func Commit(g *graph.Graph, patch *Patch) error {
	if g.Version != patch.BaseVersion {
		return tangerr.New(tangerr.VersionConflict, "graph has moved past the patch's base version")
	}
	if err := apply(g, patch.Effects); err != nil {
		return err
	}
	g.Version++
	g.Tick++
	return nil
}
