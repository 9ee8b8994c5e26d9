package template

import (
	"testing"

	"github.com/derekmerck/storytangl/pkg/graph"
	"github.com/derekmerck/storytangl/pkg/tangerr"
)

func TestFindTemplateQualifiedMustMatchExactly(t *testing.T) {
	r := NewRegistry()
	r.Register(&Template{Label: "scene.block.guard", Kind: graph.KindActor})

	if _, err := r.FindTemplate("scene.block.guard", nil); err != nil {
		t.Fatalf("exact qualified match: %v", err)
	}
	if _, err := r.FindTemplate("block.guard", nil); err == nil {
		t.Fatalf("want NoTemplateInScope for a non-matching qualified ref, got nil")
	} else if !errorIsKind(err, tangerr.NoTemplateInScope) {
		t.Errorf("err = %v, want NoTemplateInScope", err)
	}
}

func TestFindTemplateUnqualifiedMatchesByTail(t *testing.T) {
	r := NewRegistry()
	r.Register(&Template{Label: "scene.block.guard", Kind: graph.KindActor})

	tmpl, err := r.FindTemplate("guard", nil)
	if err != nil {
		t.Fatalf("FindTemplate: %v", err)
	}
	if tmpl.Label != "scene.block.guard" {
		t.Errorf("Label = %q, want scene.block.guard", tmpl.Label)
	}
}

func TestFindTemplatePrefersMoreSpecificScope(t *testing.T) {
	r := NewRegistry()
	r.Register(&Template{Label: "global.guard", Kind: graph.KindActor, Content: "generic"})
	r.Register(&Template{Label: "scene.guard", Kind: graph.KindActor, Content: "scene-specific",
		Scope: ScopeSelector{SourceLabel: "throne_room"}})
	r.Register(&Template{Label: "block.guard", Kind: graph.KindActor, Content: "block-specific",
		Scope: ScopeSelector{ParentLabel: "entryway"}})

	ancestry := []*graph.Node{
		{Label: "entryway", Kind: graph.KindBlock},
		{Label: "throne_room", Kind: graph.KindScene},
	}
	tmpl, err := r.FindTemplate("guard", ancestry)
	if err != nil {
		t.Fatalf("FindTemplate: %v", err)
	}
	if tmpl.Content != "block-specific" {
		t.Errorf("Content = %q, want block-specific (most specific scope)", tmpl.Content)
	}
}

func errorIsKind(err error, kind tangerr.Kind) bool {
	var e *tangerr.Error
	for err != nil {
		if te, ok := err.(*tangerr.Error); ok {
			e = te
			break
		}
		break
	}
	return e != nil && e.Kind == kind
}
