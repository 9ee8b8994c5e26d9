package world

import (
	"fmt"

	"github.com/derekmerck/storytangl/pkg/graph"
	"github.com/derekmerck/storytangl/pkg/template"
)

// Finding is one validation result, hard or soft.
type Finding struct {
	Severity string // "hard" or "soft"
	Kind     string
	Subject  string // node/edge label or uid this finding concerns
	Details  string
}

// Report collects the findings produced by Validate. Passed is false when
// any hard finding was recorded.
type Report struct {
	Passed   bool
	Findings []Finding
}

func (r *Report) addHard(kind, subject, details string) {
	r.Passed = false
	r.Findings = append(r.Findings, Finding{Severity: "hard", Kind: kind, Subject: subject, Details: details})
}

func (r *Report) addSoft(kind, subject, details string) {
	r.Findings = append(r.Findings, Finding{Severity: "soft", Kind: kind, Subject: subject, Details: details})
}

// Validate runs structural checks over a compiled graph before it is
// accepted as a story's starting state. An InitialCursorID is the one hard
// requirement; a dangling Action destination or an unreferenced block is a
// soft finding, since dead ends and scenes entered only from an external
// jump are both legitimate authored content.
func Validate(g *graph.Graph, reg *template.Registry) *Report {
	report := &Report{Passed: true}

	if g.InitialCursorID == nil {
		report.addHard("NoInitialCursor", "", "compiled graph has no InitialCursorID")
		return report
	}

	nodes := g.FindAllNodes(graph.FindFilter{})
	blocks := make(map[string]bool, len(nodes))
	reached := map[string]bool{g.InitialCursorID.String(): true}
	for _, n := range nodes {
		if n.Kind == graph.KindBlock {
			blocks[n.UID.String()] = true
		}
	}

	edges := g.FindAllEdges(graph.FindFilter{})
	for _, e := range edges {
		if e.Kind != graph.KindAction {
			continue
		}
		if e.DestinationUID == nil {
			report.addSoft("DanglingAction", e.UID.String(), "action edge has no destination")
			continue
		}
		reached[e.DestinationUID.String()] = true
	}
	for uid := range blocks {
		if !reached[uid] {
			report.addSoft("UnreachableBlock", uid, "no action edge or initial cursor reaches this block")
		}
	}

	if reg != nil {
		for _, e := range edges {
			if e.Kind != graph.KindDependency || e.Requirement == nil || e.Requirement.TemplateRef == "" {
				continue
			}
			if _, err := reg.FindTemplate(e.Requirement.TemplateRef, nil); err != nil {
				report.addSoft("TemplateRefUnresolved", e.Requirement.TemplateRef,
					fmt.Sprintf("no global-scope template matches %q (scoped templates are not checked statically)", e.Requirement.TemplateRef))
			}
		}
	}

	return report
}
