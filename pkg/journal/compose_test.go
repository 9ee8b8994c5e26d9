package journal

import (
	"testing"

	"github.com/google/uuid"

	"github.com/derekmerck/storytangl/pkg/graph"
)

// sequentialUID hands out deterministic, strictly increasing uids for tests
// that don't care about the real tick-seeded allocator's exact sequence,
// only that fragments carry distinct, reproducible uids.
func sequentialUID() func() uuid.UUID {
	var n uint64
	return func() uuid.UUID {
		n++
		var b [16]byte
		b[15] = byte(n)
		return uuid.UUID(b)
	}
}

func identityExpand(source string, env map[string]any) (string, error) {
	return placeholderRE.ReplaceAllStringFunc(source, func(m string) string {
		name := placeholderRE.FindStringSubmatch(m)[1]
		if v, ok := env[name]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return m
	}), nil
}

func TestComposeStaticBlockEmitsTextAndChoice(t *testing.T) {
	g := graph.New()
	b := graph.NewNode(graph.KindBlock, "B")
	b.Content = "You are in a room."
	e := graph.NewNode(graph.KindBlock, "E")
	if err := g.AddNode(b); err != nil {
		t.Fatal(err)
	}
	if err := g.AddNode(e); err != nil {
		t.Fatal(err)
	}
	action := graph.NewEdge(graph.KindAction, b.UID, &e.UID)
	action.Label = "Leave"
	if err := g.AddEdge(action); err != nil {
		t.Fatal(err)
	}

	frags, err := Compose(Input{
		Graph:       g,
		Cursor:      b,
		Expand:      identityExpand,
		ActionEdges: g.EdgesOut(b.UID, graph.KindAction),
		AllocUID:    sequentialUID(),
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(frags) != 2 {
		t.Fatalf("want 2 fragments (text+choice), got %d: %+v", len(frags), frags)
	}
	if frags[0].Variant != VariantText || frags[0].Content != "You are in a room." {
		t.Errorf("frags[0] = %+v; want Text %q", frags[0], "You are in a room.")
	}
	if frags[1].Variant != VariantChoice || frags[1].Content != "Leave" {
		t.Errorf("frags[1] = %+v; want Choice %q", frags[1], "Leave")
	}
}

func TestComposeExpandsConceptInline(t *testing.T) {
	g := graph.New()
	b := graph.NewNode(graph.KindBlock, "B")
	b.Content = "You see {{ dragon }}."
	dragon := graph.NewNode(graph.KindConcept, "dragon")
	dragon.Content = "a red dragon"
	if err := g.AddNode(b); err != nil {
		t.Fatal(err)
	}
	if err := g.AddNode(dragon); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(graph.NewEdge(graph.KindChild, b.UID, &dragon.UID)); err != nil {
		t.Fatal(err)
	}

	frags, err := Compose(Input{Graph: g, Cursor: b, Expand: identityExpand, AllocUID: sequentialUID()})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(frags) != 1 || frags[0].Variant != VariantText {
		t.Fatalf("want a single Text fragment, got %+v", frags)
	}
	if frags[0].Content != "You see a red dragon." {
		t.Errorf("frags[0].Content = %q; want %q", frags[0].Content, "You see a red dragon.")
	}
}

func TestParseDialogBlock(t *testing.T) {
	frags := ParseDialog("> [!dialog] Guard\n> Stop right there!", sequentialUID())
	if len(frags) != 1 {
		t.Fatalf("want 1 fragment, got %d", len(frags))
	}
	if frags[0].Variant != VariantAttributed || frags[0].Speaker != "Guard" || frags[0].Content != "Stop right there!" {
		t.Errorf("got %+v", frags[0])
	}
}
