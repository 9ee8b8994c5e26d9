package vmctx

import (
	"github.com/google/uuid"

	"github.com/derekmerck/storytangl/pkg/effect"
	"github.com/derekmerck/storytangl/pkg/graph"
)

// Receipt records one handler's contribution within a phase, readable by
// handlers invoked later in the same phase (§4.2, §4.3).
type Receipt struct {
	HandlerID           string
	Result              any
	Priority            int
	Layer               string
	ProducedEffectCount int
	Raised              error
}

// Context is the per-tick execution state threaded through dispatch,
// provisioning, effects, and journal composition. It is never persisted;
// CursorID, CursorHistory, and CallStack live on the Graph and merely
// mirror it here for the duration of the tick.
type Context struct {
	Graph *graph.Graph

	CursorID      uuid.UUID
	CursorHistory []uuid.UUID
	CallStack     []graph.StackFrame

	Effects      *effect.Buffer
	CallReceipts []Receipt
	NSOverrides  map[string]graph.Value

	// LocalHandlers are installed on this Context for its lifetime only
	// (§4.2 LOCAL layer); pkg/dispatch gathers them alongside
	// SCOPE/DOMAIN/GLOBAL/APPLICATION handlers at dispatch time.
	LocalHandlers []LocalHandler

	cancelled bool
}

// LocalHandlerFunc is the signature a LOCAL-layer handler implements. It is
// structurally identical to dispatch.HandlerFunc so pkg/dispatch can
// convert between them without either package importing the other.
type LocalHandlerFunc func(caller *graph.Node, ctx *Context, args []any, kwargs map[string]any) (any, error)

// LocalHandler is a handler scoped to a single Context (§4.2 LOCAL).
type LocalHandler struct {
	ID       string
	Priority int
	Task     string
	Fn       LocalHandlerFunc
}

// InstallLocalHandler registers h for the remainder of this Context's
// lifetime.
func (c *Context) InstallLocalHandler(h LocalHandler) {
	c.LocalHandlers = append(c.LocalHandlers, h)
}

// New constructs a fresh Context for one tick, seeding cursor history and
// call stack from the graph's persisted state.
func New(g *graph.Graph, cursor uuid.UUID, rngSeed uint64) *Context {
	return &Context{
		Graph:         g,
		CursorID:      cursor,
		CursorHistory: append([]uuid.UUID(nil), g.CursorHistory...),
		CallStack:     append([]graph.StackFrame(nil), g.CallStack...),
		Effects:       effect.NewBuffer(g, rngSeed),
		NSOverrides:   make(map[string]graph.Value),
	}
}

// Cancel sets the cancellation flag, checked between handlers within a
// phase (§4.3 "Cancellation").
func (c *Context) Cancel() { c.cancelled = true }

// Cancelled reports whether Cancel has been called during this tick.
func (c *Context) Cancelled() bool { return c.cancelled }

// ClearReceipts drops call receipts between phases (§4.6).
func (c *Context) ClearReceipts() { c.CallReceipts = nil }

// RecordVisit appends the current cursor to history; called once per tick
// by the Phase Engine before INIT.
func (c *Context) RecordVisit(uid uuid.UUID) {
	c.CursorHistory = append(c.CursorHistory, uid)
}

// PushFrame pushes a subroutine call frame.
func (c *Context) PushFrame(f graph.StackFrame) {
	c.CallStack = append(c.CallStack, f)
}

// PopFrame pops the most recent subroutine call frame, if any.
func (c *Context) PopFrame() (graph.StackFrame, bool) {
	if len(c.CallStack) == 0 {
		return graph.StackFrame{}, false
	}
	f := c.CallStack[len(c.CallStack)-1]
	c.CallStack = c.CallStack[:len(c.CallStack)-1]
	return f, true
}
