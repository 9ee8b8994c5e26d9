package template

import (
	"strings"
	"sync"

	"github.com/derekmerck/storytangl/pkg/graph"
	"github.com/derekmerck/storytangl/pkg/tangerr"
)

// ScopeSelector restricts a Template to cursors descending from a given
// parent or source scene (§4.8).
type ScopeSelector struct {
	ParentLabel string
	SourceLabel string
}

func (s ScopeSelector) isGlobal() bool { return s.ParentLabel == "" && s.SourceLabel == "" }

// specificity ranks a selector: block-level (ParentLabel) > scene-level
// (SourceLabel) > global, per §4.8 "block > scene > global".
func (s ScopeSelector) specificity() int {
	switch {
	case s.ParentLabel != "":
		return 2
	case s.SourceLabel != "":
		return 1
	default:
		return 0
	}
}

// Template is a typed IR fragment the Template Registry resolves by label.
type Template struct {
	Label   string // dotted path, e.g. "scene.block.actor"
	Kind    graph.Kind
	Content string
	Scope   ScopeSelector
}

func (t *Template) tail() string {
	parts := strings.Split(t.Label, ".")
	return parts[len(parts)-1]
}

// Registry indexes templates by normalized label and serves scope-ranked
// lookups.
type Registry struct {
	mu      sync.RWMutex
	byLabel map[string][]*Template
	byTail  map[string][]*Template
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byLabel: make(map[string][]*Template),
		byTail:  make(map[string][]*Template),
	}
}

// Register indexes t by its full label and its tail segment.
func (r *Registry) Register(t *Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	label := normalize(t.Label)
	r.byLabel[label] = append(r.byLabel[label], t)
	tail := normalize(t.tail())
	r.byTail[tail] = append(r.byTail[tail], t)
}

func normalize(ref string) string {
	return strings.ToLower(strings.TrimSpace(ref))
}

// FindTemplate resolves ref against ancestry, the cursor's ancestor chain
// nearest-first (§4.8). Qualified references (containing a ".") must match
// a template's full label exactly; unqualified references may match any
// in-scope template by its tail segment. Among candidates, the most
// specific scope selector satisfied by ancestry wins; ties break by
// registration order.
func (r *Registry) FindTemplate(ref string, ancestry []*graph.Node) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	normalized := normalize(ref)
	var candidates []*Template
	if strings.Contains(normalized, ".") {
		candidates = r.byLabel[normalized]
	} else {
		candidates = r.byTail[normalized]
	}

	var best *Template
	bestRank := -1
	for _, t := range candidates {
		if !scopeSatisfied(t.Scope, ancestry) {
			continue
		}
		rank := t.Scope.specificity()
		if rank > bestRank {
			best = t
			bestRank = rank
		}
	}
	if best == nil {
		return nil, tangerr.New(tangerr.NoTemplateInScope, ref)
	}
	return best, nil
}

func scopeSatisfied(s ScopeSelector, ancestry []*graph.Node) bool {
	if s.isGlobal() {
		return true
	}
	if s.ParentLabel != "" {
		if len(ancestry) == 0 || ancestry[0].Label != s.ParentLabel {
			return false
		}
	}
	if s.SourceLabel != "" {
		found := false
		for _, a := range ancestry {
			if a.Label == s.SourceLabel {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
