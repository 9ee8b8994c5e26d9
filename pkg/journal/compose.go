package journal

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/derekmerck/storytangl/pkg/graph"
)

// MaxConceptDepth bounds recursive Concept expansion (§9 design notes).
const MaxConceptDepth = 8

// Expander evaluates a restricted template string against an environment
// of namespace values, implementing the safe built-ins/filters subset of
// §4.9. Supplied by pkg/expr so this package stays independent of the
// expression compiler and its cache.
type Expander func(source string, env map[string]any) (string, error)

// Input bundles everything Compose needs, gathered by the JOURNAL phase
// handler in pkg/vm from the live Context.
type Input struct {
	Graph *graph.Graph
	Cursor *graph.Node

	// GameContent, when HasGameContent is true, is the content returned by
	// an active Game handler via the gather_content dispatch (§4.7 step 1);
	// it wins over the cursor's own Content.
	GameContent    string
	HasGameContent bool

	// NSOverrides/Locals supply additional names for template expansion,
	// merged under concept-derived names (concepts take precedence per
	// scenario 2: a Concept child shadows a plain local of the same name
	// only when both resolve the same placeholder; ambiguity is resolved
	// by preferring the structural Concept binding).
	Env map[string]any

	Expand Expander

	// ActionEdges are the cursor's currently available Action edges, one
	// Choice fragment is emitted per edge (§4.7 step 5).
	ActionEdges []*graph.Edge

	// AllocUID mints each emitted fragment's uid. The caller supplies the
	// tick's seeded allocator (pkg/effect.Buffer.AllocFragmentUID) so
	// Compose stays a pure function of its inputs (§8 Determinism).
	AllocUID func() uuid.UUID
}

var placeholderRE = regexp.MustCompile(`\{\{\s*([A-Za-z_][\w.]*)\s*\}\}`)

// Compose implements steps 1-5 of the JOURNAL composition pipeline of
// §4.7 and returns the fragments; appending them to the tick's journal
// (step 6) is left to the caller.
func Compose(in Input) ([]Fragment, error) {
	var frags []Fragment

	// Step 1: resolve cursor content.
	content := in.Cursor.Content
	if in.HasGameContent {
		content = in.GameContent
	}

	// Step 4 feeds step 2: build an environment where Concept-kind Child
	// nodes referenced by name resolve to their own (recursively expanded)
	// content, shadowing plain env entries of the same name.
	env := map[string]any{}
	for k, v := range in.Env {
		env[k] = v
	}
	conceptNames := placeholderRE.FindAllStringSubmatch(content, -1)
	boundConcepts := map[string]bool{}
	for _, m := range conceptNames {
		name := m[1]
		if boundConcepts[name] {
			continue
		}
		if txt, ok := expandConceptByLabel(in.Graph, in.Cursor.UID, name, in.Expand, env, MaxConceptDepth); ok {
			env[name] = txt
			boundConcepts[name] = true
		}
	}

	// Step 2: expand templates in the resolved content string.
	expanded := content
	if in.Expand != nil {
		out, err := in.Expand(content, env)
		if err != nil {
			return nil, fmt.Errorf("expanding content template: %w", err)
		}
		expanded = out
	}

	// Step 3: parse dialog blocks; plain paragraphs become narration.
	frags = append(frags, ParseDialog(expanded, in.AllocUID)...)

	// Step 5: one Choice fragment per currently available Action edge.
	for _, e := range in.ActionEdges {
		frags = append(frags, NewChoice(in.AllocUID(), e.Label, e.UID))
	}

	return frags, nil
}

// expandConceptByLabel finds a Concept-kind node reachable from cursor via
// a Child edge whose label matches name, and returns its own content,
// recursively expanding any concept references it contains up to depth.
func expandConceptByLabel(g *graph.Graph, cursor uuid.UUID, name string, expand Expander, env map[string]any, depth int) (string, bool) {
	if depth <= 0 {
		return "", false
	}
	for _, e := range g.EdgesOut(cursor, graph.KindChild) {
		if e.DestinationUID == nil {
			continue
		}
		child, err := g.GetNode(*e.DestinationUID)
		if err != nil || child.Kind != graph.KindConcept || child.Label != name {
			continue
		}
		text := child.Content
		if expand != nil {
			nested := map[string]any{}
			for k, v := range env {
				nested[k] = v
			}
			for _, m := range placeholderRE.FindAllStringSubmatch(text, -1) {
				if sub, ok := expandConceptByLabel(g, child.UID, m[1], expand, nested, depth-1); ok {
					nested[m[1]] = sub
				}
			}
			if out, err := expand(text, nested); err == nil {
				text = out
			}
		}
		return text, true
	}
	return "", false
}
