package dispatch

import (
	"sync"

	"github.com/derekmerck/storytangl/pkg/graph"
	"github.com/derekmerck/storytangl/pkg/vmctx"
)

// Layer is one of the five handler layers of §4.2.
type Layer string

const (
	LayerLocal       Layer = "LOCAL"
	LayerScope       Layer = "SCOPE"
	LayerDomain      Layer = "DOMAIN"
	LayerGlobal      Layer = "GLOBAL"
	LayerApplication Layer = "APPLICATION"
)

// layerRank orders layers innermost-first for execution (§4.2 "innermost
// first at execution"): LOCAL runs before SCOPE before DOMAIN before
// GLOBAL before APPLICATION when priorities tie.
var layerRank = map[Layer]int{
	LayerLocal:       0,
	LayerScope:       1,
	LayerDomain:      2,
	LayerGlobal:      3,
	LayerApplication: 4,
}

// HandlerFunc is the body a registered handler runs. It is structurally
// identical to vmctx.LocalHandlerFunc by design, so LOCAL handlers convert
// between the two without either package importing the other.
type HandlerFunc func(caller *graph.Node, ctx *vmctx.Context, args []any, kwargs map[string]any) (any, error)

// Selector narrows which (caller, task) pairs a Handler applies to. A zero
// value field means "any".
type Selector struct {
	Kind graph.Kind
	Tags []string
	Task string
}

func (s Selector) matches(caller *graph.Node, task string) bool {
	if s.Task != "" && s.Task != task {
		return false
	}
	if s.Kind != "" && (caller == nil || caller.Kind != s.Kind) {
		return false
	}
	for _, t := range s.Tags {
		if caller == nil || !caller.HasTag(t) {
			return false
		}
	}
	return true
}

// Handler is one registered dispatch target (§4.2).
type Handler struct {
	ID       string
	Layer    Layer
	Priority int
	Selector Selector
	Fn       HandlerFunc

	insertionSeq int
}

// Registry holds handlers for one layer instance: a DOMAIN registry (one
// per named domain), the APPLICATION registry (one per world), or a SCOPE
// registry (one per node/graph a story script installs handlers on).
type Registry struct {
	mu       sync.RWMutex
	handlers []Handler
	seq      int
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds h to the registry, stamping it with the next insertion
// sequence number for tie-breaking.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h.insertionSeq = r.seq
	r.seq++
	r.handlers = append(r.handlers, h)
}

// List returns every handler registered, in insertion order.
func (r *Registry) List() []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Handler(nil), r.handlers...)
}

func (r *Registry) eligible(caller *graph.Node, task string) []Handler {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Handler
	for _, h := range r.handlers {
		if h.Selector.matches(caller, task) {
			out = append(out, h)
		}
	}
	return out
}

// globalRegistry backs the process-wide GLOBAL layer, mirroring the
// package-level Register/Get/List registry idiom used for graph
// synthesizers: a single mutex-protected instance.
var globalRegistry = NewRegistry()

// RegisterGlobal adds h to the process-wide GLOBAL layer.
func RegisterGlobal(h Handler) {
	h.Layer = LayerGlobal
	globalRegistry.Register(h)
}

// GlobalHandlers returns every GLOBAL-layer handler, in insertion order.
func GlobalHandlers() []Handler {
	return globalRegistry.List()
}
