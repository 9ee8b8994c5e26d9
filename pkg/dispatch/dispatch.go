package dispatch

import (
	"sort"

	"github.com/google/uuid"

	"github.com/derekmerck/storytangl/pkg/graph"
	"github.com/derekmerck/storytangl/pkg/tangerr"
	"github.com/derekmerck/storytangl/pkg/vmctx"
)

// Strategy is the aggregation mode a dispatch task declares for combining
// handler results (§4.2 "Aggregation strategies").
type Strategy string

const (
	StrategyFirst    Strategy = "first"
	StrategyPipeline Strategy = "pipeline"
	StrategyMerge    Strategy = "merge"
	StrategyAll      Strategy = "all"
)

// Options configures one Dispatch call.
type Options struct {
	// Scope supplies SCOPE-layer registries keyed by the node/graph uid
	// they were installed on; Dispatch consults caller's own uid and, by
	// convention, uuid.Nil for the graph-wide scope. Ancestors are reached
	// through ScopedDispatch, which re-dispatches with each one as caller.
	Scope map[uuid.UUID]*Registry
	Domain      *Registry
	Application *Registry
	Args        []any
	Kwargs      map[string]any
	Strategy    Strategy
}

// Dispatch gathers every handler across LOCAL, SCOPE, DOMAIN, GLOBAL, and
// APPLICATION layers whose selector matches (caller, task), sorts by
// (priority, layer rank, insertion), and invokes each in turn, threading
// ctx.CallReceipts so later handlers can read earlier ones (§4.2).
func Dispatch(caller *graph.Node, ctx *vmctx.Context, task string, opts Options) ([]vmctx.Receipt, error) {
	handlers := gather(caller, ctx, task, opts)
	sortHandlers(handlers)

	var receipts []vmctx.Receipt
	for _, h := range handlers {
		if ctx.Cancelled() {
			break
		}
		before := ctx.Effects.EffectCount()
		result, err := h.Fn(caller, ctx, opts.Args, opts.Kwargs)
		after := ctx.Effects.EffectCount()

		r := vmctx.Receipt{
			HandlerID:           h.ID,
			Result:              result,
			Priority:            h.Priority,
			Layer:               string(h.Layer),
			ProducedEffectCount: after - before,
			Raised:              err,
		}
		receipts = append(receipts, r)
		ctx.CallReceipts = append(ctx.CallReceipts, r)

		if opts.Strategy == StrategyFirst && err == nil && result != nil {
			break
		}
	}
	return receipts, nil
}

// ScopedDispatch widens caller to (caller, ancestor1, ..., graph) and
// dispatches task against each successive value as the SCOPE layer's
// caller, per §4.2 "Scoped dispatch".
func ScopedDispatch(caller *graph.Node, ctx *vmctx.Context, task string, opts Options) ([]vmctx.Receipt, error) {
	var all []vmctx.Receipt
	chain := append([]*graph.Node{caller}, ctx.Graph.Ancestors(caller.UID)...)
	for _, n := range chain {
		r, err := Dispatch(n, ctx, task, opts)
		if err != nil {
			return all, err
		}
		all = append(all, r...)
		if ctx.Cancelled() {
			break
		}
	}
	return all, nil
}

func gather(caller *graph.Node, ctx *vmctx.Context, task string, opts Options) []Handler {
	var out []Handler

	for _, lh := range ctx.LocalHandlers {
		sel := Selector{Task: lh.Task}
		if !sel.matches(caller, task) {
			continue
		}
		out = append(out, Handler{
			ID: lh.ID, Layer: LayerLocal, Priority: lh.Priority,
			Selector: sel, Fn: HandlerFunc(lh.Fn),
		})
	}

	if opts.Scope != nil {
		keys := []uuid.UUID{uuid.Nil}
		if caller != nil {
			keys = append(keys, caller.UID)
		}
		for _, k := range keys {
			for _, h := range opts.Scope[k].eligible(caller, task) {
				h.Layer = LayerScope
				out = append(out, h)
			}
		}
	}

	for _, h := range opts.Domain.eligible(caller, task) {
		h.Layer = LayerDomain
		out = append(out, h)
	}
	for _, h := range globalRegistry.eligible(caller, task) {
		h.Layer = LayerGlobal
		out = append(out, h)
	}
	for _, h := range opts.Application.eligible(caller, task) {
		h.Layer = LayerApplication
		out = append(out, h)
	}

	return out
}

func sortHandlers(hs []Handler) {
	sort.SliceStable(hs, func(i, j int) bool {
		if hs[i].Priority != hs[j].Priority {
			return hs[i].Priority < hs[j].Priority
		}
		ri, rj := layerRank[hs[i].Layer], layerRank[hs[j].Layer]
		if ri != rj {
			return ri < rj
		}
		return hs[i].insertionSeq < hs[j].insertionSeq
	})
}

// Aggregate combines receipts according to strategy (§4.2). pipeline and
// merge operate on the non-nil results of receipts in sorted execution
// order and return the first error a receipt raised.
func Aggregate(receipts []vmctx.Receipt, strategy Strategy) (any, error) {
	switch strategy {
	case StrategyFirst:
		for _, r := range receipts {
			if r.Raised == nil && r.Result != nil {
				return r.Result, nil
			}
		}
		return nil, nil

	case StrategyPipeline:
		var cur any
		for _, r := range receipts {
			if r.Raised != nil {
				return nil, r.Raised
			}
			if r.Result != nil {
				cur = r.Result
			}
		}
		return cur, nil

	case StrategyMerge:
		merged := map[string]any{}
		for _, r := range receipts {
			if r.Raised != nil {
				return nil, r.Raised
			}
			m, ok := r.Result.(map[string]any)
			if !ok {
				continue
			}
			for k, v := range m {
				merged[k] = v
			}
		}
		return merged, nil

	case StrategyAll, "":
		var all []any
		for _, r := range receipts {
			all = append(all, r.Result)
		}
		return all, nil

	default:
		return nil, tangerr.New(tangerr.UnknownOperation, string(strategy))
	}
}
