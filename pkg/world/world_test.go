package world

import (
	"context"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/derekmerck/storytangl/pkg/expr"
	"github.com/derekmerck/storytangl/pkg/graph"
	"github.com/derekmerck/storytangl/pkg/vm"
)

func TestRolesUnmarshalSequenceShorthand(t *testing.T) {
	var roles Roles
	if err := yaml.Unmarshal([]byte(`["vendor", "guard"]`), &roles); err != nil {
		t.Fatal(err)
	}
	if len(roles) != 2 || roles["vendor"].ActorRef != "vendor" || roles["guard"].ActorRef != "guard" {
		t.Errorf("roles = %+v", roles)
	}
}

func TestRolesUnmarshalMapShorthand(t *testing.T) {
	var roles Roles
	if err := yaml.Unmarshal([]byte(`vendor: merchant_01`), &roles); err != nil {
		t.Fatal(err)
	}
	if roles["vendor"].ActorRef != "merchant_01" {
		t.Errorf("roles = %+v", roles)
	}
}

func TestRolesUnmarshalExpandedForm(t *testing.T) {
	var roles Roles
	if err := yaml.Unmarshal([]byte("vendor:\n  actor_ref: merchant_01\n"), &roles); err != nil {
		t.Fatal(err)
	}
	if roles["vendor"].ActorRef != "merchant_01" {
		t.Errorf("roles = %+v", roles)
	}
}

func newTestScript() *Script {
	return &Script{
		Label:    "market",
		Metadata: map[string]string{"difficulty": "easy"},
		Scenes: map[string]Scene{
			"plaza": {
				Label: "plaza",
				Blocks: map[string]Block{
					"entry": {
						Content: "You step into the plaza.",
						Actions: []Action{{Text: "Approach the stall", Successor: "stall"}},
					},
					"stall": {
						Content: "A merchant eyes you.",
						Roles:   Roles{"vendor": {ActorRef: "merchant"}},
						Effects: []string{"visited_stall = true"},
					},
				},
			},
		},
	}
}

func TestCompileScriptProducesTraversableGraph(t *testing.T) {
	script := newTestScript()
	if err := script.Validate(); err != nil {
		t.Fatal(err)
	}

	g, templates, err := CompileScript(script)
	if err != nil {
		t.Fatalf("CompileScript: %v", err)
	}
	if len(templates) != 0 {
		t.Errorf("want no templates, got %d", len(templates))
	}
	if g.InitialCursorID == nil {
		t.Fatal("InitialCursorID not set")
	}

	entry, err := g.GetNode(*g.InitialCursorID)
	if err != nil || entry.Label != "entry" {
		t.Fatalf("initial cursor = %+v, err %v", entry, err)
	}

	globals, err := g.GetByLabel(GlobalsLabel)
	if err != nil {
		t.Fatalf("GetByLabel(globals): %v", err)
	}
	if globals.Locals["difficulty"] != "easy" {
		t.Errorf("globals.Locals = %+v", globals.Locals)
	}

	actions := g.EdgesOut(entry.UID, graph.KindAction)
	if len(actions) != 1 {
		t.Fatalf("want 1 action out of entry, got %d", len(actions))
	}
	if len(actions[0].Effects) != 1 || actions[0].Effects[0] != "visited_stall = true" {
		t.Errorf("traversal edge effects = %+v, want stall's authored effects", actions[0].Effects)
	}

	stall, err := g.GetNode(*actions[0].DestinationUID)
	if err != nil || stall.Label != "stall" {
		t.Fatalf("stall node = %+v, err %v", stall, err)
	}
	deps := g.EdgesOut(stall.UID, graph.KindDependency)
	if len(deps) != 1 || deps[0].Requirement.TemplateRef != "merchant" {
		t.Errorf("role dependency edges = %+v", deps)
	}
}

func TestCompileScriptStepsThroughEngine(t *testing.T) {
	g, _, err := CompileScript(newTestScript())
	if err != nil {
		t.Fatal(err)
	}

	e := vm.NewEngine()
	e.Expr = expr.NewEvaluator()
	e.GlobalsLabel = GlobalsLabel

	_, frags, err := e.Step(context.Background(), g, nil, 1)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(frags) == 0 {
		t.Fatal("want at least one journal fragment")
	}
}
