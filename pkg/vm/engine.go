package vm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/derekmerck/storytangl/pkg/dispatch"
	"github.com/derekmerck/storytangl/pkg/effect"
	"github.com/derekmerck/storytangl/pkg/expr"
	"github.com/derekmerck/storytangl/pkg/graph"
	"github.com/derekmerck/storytangl/pkg/journal"
	"github.com/derekmerck/storytangl/pkg/provisioning"
	"github.com/derekmerck/storytangl/pkg/tangerr"
	"github.com/derekmerck/storytangl/pkg/telemetry"
	"github.com/derekmerck/storytangl/pkg/vmctx"
)

// DomainLookup resolves the bounding TraversableDomain for a cursor, when
// one applies. Softlock detection is skipped for cursors with no domain.
type DomainLookup func(cursorUID uuid.UUID) (*TraversableDomain, bool)

// Engine drives the seven-phase tick loop of §4.6. It is stateless across
// ticks: every field is shared configuration, and all per-tick state lives
// on the vmctx.Context that Step constructs.
type Engine struct {
	Provisioners []provisioning.Provisioner
	Expr         *expr.Evaluator
	MediaResolver journal.MediaResolver

	// Domain and Application are the process- and world-scoped dispatch
	// registries consulted on every phase (§4.2). Scope supplies the
	// SCOPE-layer registries keyed by node/graph uid.
	Domain      *dispatch.Registry
	Application *dispatch.Registry
	Scope       map[uuid.UUID]*dispatch.Registry

	// Domains resolves the TraversableDomain bounding a cursor for
	// softlock detection; nil disables the lookup for that cursor.
	Domains DomainLookup
	// SoftlockCheck gates the whole check, opt-in per the source's own
	// treatment of softlock detection as optional and per-domain.
	SoftlockCheck bool

	// GlobalsLabel names the node whose locals populate the "graph
	// globals" tier of namespace resolution (§4.3); empty disables it.
	GlobalsLabel string

	// MaxCallDepth bounds subroutine jump nesting (§4.6, default 64).
	MaxCallDepth int

	// Log receives phase-transition and failure telemetry when set; nil
	// disables it.
	Log *zerolog.Logger
}

// NewEngine constructs an Engine with the default call-depth bound.
func NewEngine() *Engine {
	return &Engine{MaxCallDepth: 64}
}

func (e *Engine) maxCallDepth() int {
	if e.MaxCallDepth <= 0 {
		return 64
	}
	return e.MaxCallDepth
}

// Step runs one tick: it resolves the cursor (advancing it via choiceID
// when given), drives INIT through POSTREQS in order, and commits the
// accumulated Effect Buffer into a Patch. step(graph, choice, seed) is a
// pure function of its inputs (§8 Determinism): the same graph state,
// choice, and rngSeed always produce a byte-equal patch.
func (e *Engine) Step(stdctx context.Context, g *graph.Graph, choiceID *uuid.UUID, rngSeed uint64) (*effect.Patch, []journal.Fragment, error) {
	cursorID, traversal, err := e.resolveEntryCursor(g, choiceID)
	if err != nil {
		return nil, nil, err
	}

	ctx := vmctx.New(g, cursorID, rngSeed)
	ctx.RecordVisit(cursorID)
	ctx.Effects.SetCursor(cursorID)

	cursor, err := e.node(ctx, cursorID)
	if err != nil {
		return nil, nil, err
	}

	if err := e.phaseInit(stdctx, ctx, cursor); err != nil {
		return nil, nil, e.fail(PhaseInit, cursor.UID, err)
	}

	if !ctx.Cancelled() {
		if err := e.phasePlanning(stdctx, ctx, cursor); err != nil {
			return nil, nil, e.fail(PhasePlanning, cursor.UID, err)
		}
	}

	if !ctx.Cancelled() {
		next, err := e.phasePrereqs(stdctx, ctx, cursor)
		if err != nil {
			return nil, nil, e.fail(PhasePrereqs, cursor.UID, err)
		}
		cursor = next
	}

	if !ctx.Cancelled() {
		if err := e.phaseEffects(stdctx, ctx, cursor, traversal); err != nil {
			return nil, nil, e.fail(PhaseEffects, cursor.UID, err)
		}
	}

	if err := e.phaseJournal(stdctx, ctx, cursor); err != nil {
		return nil, nil, e.fail(PhaseJournal, cursor.UID, err)
	}

	if err := e.phaseBookkeeping(stdctx, ctx, cursor); err != nil {
		return nil, nil, e.fail(PhaseBookkeeping, cursor.UID, err)
	}

	if err := e.phasePostreqs(stdctx, ctx, cursor); err != nil {
		return nil, nil, e.fail(PhasePostreqs, cursor.UID, err)
	}

	patch, err := ctx.Effects.Commit()
	if err != nil {
		telemetry.CommitFailed(e.Log, cursor.Label, string(tangerr.VersionConflict), err)
		return nil, nil, err
	}
	telemetry.CommitSucceeded(e.Log, cursor.Label, g.Version+1)
	return patch, patch.Journal, nil
}

// fail logs a tick failure and returns err unchanged, so callers can write
// `return nil, nil, e.fail(phase, cursor.UID, err)`.
func (e *Engine) fail(phase Phase, cursor uuid.UUID, err error) error {
	kind := "Internal"
	var terr *tangerr.Error
	if ok := errorsAsTangerr(err, &terr); ok {
		kind = string(terr.Kind)
	}
	telemetry.EngineFailed(e.Log, string(phase), cursor, kind, err)
	return err
}

func errorsAsTangerr(err error, target **tangerr.Error) bool {
	for err != nil {
		if te, ok := err.(*tangerr.Error); ok {
			*target = te
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// resolveEntryCursor determines the cursor this tick starts from. A nil
// choiceID resumes the graph's persisted cursor (or its initial cursor, on
// the very first tick); a non-nil choiceID resolves an Action edge chosen
// by the caller into the new cursor, which also becomes this tick's
// traversal edge for the EFFECTS phase.
func (e *Engine) resolveEntryCursor(g *graph.Graph, choiceID *uuid.UUID) (uuid.UUID, *graph.Edge, error) {
	if choiceID != nil {
		edge, err := g.GetEdge(*choiceID)
		if err != nil {
			return uuid.Nil, nil, tangerr.Wrap(tangerr.NotFound, "choice_id", err)
		}
		if edge.Kind != graph.KindAction || edge.DestinationUID == nil {
			return uuid.Nil, nil, tangerr.New(tangerr.NotFound, "choice_id does not resolve to an Action edge")
		}
		return *edge.DestinationUID, edge, nil
	}
	if g.CursorID != nil {
		return *g.CursorID, nil, nil
	}
	if g.InitialCursorID != nil {
		return *g.InitialCursorID, nil, nil
	}
	return uuid.Nil, nil, tangerr.New(tangerr.NotFound, "cursor")
}

func (e *Engine) node(ctx *vmctx.Context, uid uuid.UUID) (*graph.Node, error) {
	preview, err := ctx.Effects.Preview()
	if err != nil {
		return nil, err
	}
	return preview.GetNode(uid)
}

func checkCancelled(stdctx context.Context, ctx *vmctx.Context) {
	select {
	case <-stdctx.Done():
		ctx.Cancel()
	default:
	}
}

func (e *Engine) namespace(ctx *vmctx.Context, cursor *graph.Node) map[string]any {
	preview, err := ctx.Effects.Preview()
	if err != nil {
		return map[string]any{}
	}
	var globals *graph.Node
	if e.GlobalsLabel != "" {
		if g, err := preview.GetByLabel(e.GlobalsLabel); err == nil {
			globals = g
		}
	}
	ancestors := preview.Ancestors(cursor.UID)
	return BuildNamespace(ctx, cursor, ancestors, nil, globals)
}

func (e *Engine) dispatchPhase(cursor *graph.Node, ctx *vmctx.Context, phase Phase) error {
	telemetry.PhaseEntered(e.Log, string(phase), cursor.UID)
	opts := dispatch.Options{Scope: e.Scope, Domain: e.Domain, Application: e.Application, Strategy: dispatch.StrategyAll}
	_, err := dispatch.ScopedDispatch(cursor, ctx, string(phase), opts)
	ctx.ClearReceipts()
	return err
}

func (e *Engine) phaseInit(stdctx context.Context, ctx *vmctx.Context, cursor *graph.Node) error {
	checkCancelled(stdctx, ctx)
	return e.dispatchPhase(cursor, ctx, PhaseInit)
}

func (e *Engine) phasePlanning(stdctx context.Context, ctx *vmctx.Context, cursor *graph.Node) error {
	checkCancelled(stdctx, ctx)
	if ctx.Cancelled() {
		return nil
	}
	receipts, err := provisioning.Plan(ctx, cursor, e.Provisioners)
	if err != nil {
		return err
	}
	for _, r := range receipts {
		telemetry.ProvisioningDecision(e.Log, r.ProvisionerID, r.RequirementID.String(), r.Accepted)
	}
	return e.dispatchPhase(cursor, ctx, PhasePlanning)
}

// phasePrereqs evaluates PREREQS-trigger Choice edges; the first whose
// predicate is satisfied redirects the cursor, and subsequent phases see
// the new cursor (§4.6).
func (e *Engine) phasePrereqs(stdctx context.Context, ctx *vmctx.Context, cursor *graph.Node) (*graph.Node, error) {
	checkCancelled(stdctx, ctx)
	if ctx.Cancelled() {
		return cursor, nil
	}
	preview, err := ctx.Effects.Preview()
	if err != nil {
		return cursor, err
	}
	ns := e.namespace(ctx, cursor)
	for _, edge := range preview.EdgesOut(cursor.UID, graph.KindChoice) {
		if edge.TriggerPhase != string(PhasePrereqs) || edge.DestinationUID == nil {
			continue
		}
		ok, err := e.Expr.EvaluatePredicate(edge.UID, edge.Predicate, ns)
		if err != nil {
			return cursor, err
		}
		if !ok {
			continue
		}
		ctx.Effects.SetCursor(*edge.DestinationUID)
		cursor, err = e.node(ctx, *edge.DestinationUID)
		if err != nil {
			return cursor, err
		}
		break
	}
	if err := e.dispatchPhase(cursor, ctx, PhasePrereqs); err != nil {
		return cursor, err
	}
	return cursor, nil
}

// phaseEffects applies the traversal edge's authored effect expressions to
// the cursor's own locals (§4.6, §3 "effects: optional expression sequence").
func (e *Engine) phaseEffects(stdctx context.Context, ctx *vmctx.Context, cursor *graph.Node, traversal *graph.Edge) error {
	checkCancelled(stdctx, ctx)
	if ctx.Cancelled() {
		return nil
	}
	if traversal != nil && len(traversal.Effects) > 0 {
		ns := e.namespace(ctx, cursor)
		for _, source := range traversal.Effects {
			assignment, value, err := e.Expr.EvaluateEffect(traversal.UID, source, ns)
			if err != nil {
				return err
			}
			ctx.Effects.SetAttr(cursor.UID, "locals."+assignment.Target, value)
		}
	}
	return e.dispatchPhase(cursor, ctx, PhaseEffects)
}

func (e *Engine) phaseJournal(stdctx context.Context, ctx *vmctx.Context, cursor *graph.Node) error {
	checkCancelled(stdctx, ctx)
	preview, err := ctx.Effects.Preview()
	if err != nil {
		return err
	}

	var gameContent string
	var hasGameContent bool
	receipts, err := dispatch.Dispatch(cursor, ctx, "gather_content", dispatch.Options{
		Scope: e.Scope, Domain: e.Domain, Application: e.Application, Strategy: dispatch.StrategyFirst,
	})
	ctx.ClearReceipts()
	if err == nil {
		if result, aggErr := dispatch.Aggregate(receipts, dispatch.StrategyFirst); aggErr == nil {
			if text, ok := result.(string); ok {
				gameContent, hasGameContent = text, true
			}
		}
	}

	frags, composeErr := journal.Compose(journal.Input{
		Graph:          preview,
		Cursor:         cursor,
		GameContent:    gameContent,
		HasGameContent: hasGameContent,
		Env:            e.namespace(ctx, cursor),
		Expand:         e.Expr.Template,
		ActionEdges:    preview.EdgesOut(cursor.UID, graph.KindAction),
		AllocUID:       ctx.Effects.AllocFragmentUID,
	})
	if composeErr != nil {
		// JOURNAL degrades gracefully: a composition failure becomes a
		// diagnostic fragment rather than failing the tick (§7).
		frags = []journal.Fragment{journal.NewDiagnostic(ctx.Effects.AllocFragmentUID(), fmt.Sprintf("journal composition failed: %v", composeErr))}
	}
	if e.MediaResolver != nil {
		frags = append(frags, journal.ResolveMedia(preview, cursor.UID, e.MediaResolver, ctx.Effects.AllocFragmentUID)...)
	}
	for _, f := range frags {
		ctx.Effects.Say(f)
	}

	return e.dispatchPhase(cursor, ctx, PhaseJournal)
}

func (e *Engine) phaseBookkeeping(stdctx context.Context, ctx *vmctx.Context, cursor *graph.Node) error {
	checkCancelled(stdctx, ctx)
	ctx.Effects.SetAttr(cursor.UID, "locals.visit_count", float64(VisitCount(ctx, cursor.UID)))
	return e.dispatchPhase(cursor, ctx, PhaseBookkeeping)
}

// phasePostreqs evaluates POSTREQS-trigger Choice edges, auto-advancing on
// the first satisfied one (handling subroutine jump bookkeeping), then
// enforces outstanding hard requirements and runs softlock detection
// (§4.6).
func (e *Engine) phasePostreqs(stdctx context.Context, ctx *vmctx.Context, cursor *graph.Node) error {
	checkCancelled(stdctx, ctx)
	preview, err := ctx.Effects.Preview()
	if err != nil {
		return err
	}
	ns := e.namespace(ctx, cursor)

	for _, edge := range preview.EdgesOut(cursor.UID, graph.KindChoice) {
		if edge.TriggerPhase != string(PhasePostreqs) || edge.DestinationUID == nil {
			continue
		}
		ok, err := e.Expr.EvaluatePredicate(edge.UID, edge.Predicate, ns)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := e.advance(ctx, cursor, edge); err != nil {
			return err
		}
		break
	}

	for _, edge := range append(preview.EdgesIn(cursor.UID, graph.KindAffordance), preview.EdgesOut(cursor.UID, graph.KindDependency)...) {
		if edge.Requirement != nil && edge.Requirement.HardRequirement && edge.Requirement.IsUnresolvable {
			return tangerr.New(tangerr.UnresolvableHard, edge.UID.String())
		}
	}

	if e.SoftlockCheck && e.Domains != nil {
		if domain, ok := e.Domains(cursor.UID); ok {
			progress, err := domain.HasForwardProgress(preview, cursor.UID, ns, func(edge *graph.Edge, ns map[string]any) (bool, error) {
				return e.Expr.EvaluatePredicate(edge.UID, edge.Predicate, ns)
			})
			if err != nil {
				return err
			}
			if !progress {
				return tangerr.New(tangerr.Softlock, cursor.UID.String())
			}
		}
	}

	return e.dispatchPhase(cursor, ctx, PhasePostreqs)
}

// advance moves the cursor across edge, pushing or popping a subroutine
// StackFrame for JumpAndReturn/JumpReturn edges (§4.6 "Subroutine jumps").
func (e *Engine) advance(ctx *vmctx.Context, cursor *graph.Node, edge *graph.Edge) error {
	switch edge.JumpKind {
	case "JumpAndReturn":
		if len(ctx.CallStack) >= e.maxCallDepth() {
			return tangerr.New(tangerr.CallDepthExceeded, edge.UID.String())
		}
		frame := graph.StackFrame{ReturnCursorID: cursor.UID, CallSiteLabel: cursor.Label, Depth: len(ctx.CallStack) + 1}
		ctx.PushFrame(frame)
		ctx.Effects.PushFrame(frame)
		ctx.Effects.SetCursor(*edge.DestinationUID)
	case "JumpReturn":
		frame, ok := GetCallerFrame(ctx)
		if !ok {
			ctx.Effects.SetCursor(*edge.DestinationUID)
			return nil
		}
		ctx.PopFrame()
		ctx.Effects.PopFrame()
		ctx.Effects.SetCursor(frame.ReturnCursorID)
	default:
		ctx.Effects.SetCursor(*edge.DestinationUID)
	}
	return nil
}
