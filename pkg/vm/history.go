package vm

import (
	"github.com/google/uuid"

	"github.com/derekmerck/storytangl/pkg/graph"
	"github.com/derekmerck/storytangl/pkg/vmctx"
)

// VisitCount returns how many times uid appears in the cursor history.
func VisitCount(ctx *vmctx.Context, uid uuid.UUID) int {
	n := 0
	for _, v := range ctx.CursorHistory {
		if v == uid {
			n++
		}
	}
	return n
}

// IsFirstVisit reports whether uid has never appeared in history before
// the current (already-recorded) visit.
func IsFirstVisit(ctx *vmctx.Context, uid uuid.UUID) bool {
	return VisitCount(ctx, uid) <= 1
}

// StepsSinceLastVisit returns the number of ticks since uid was last
// visited before its most recent occurrence, or -1 if visited only once.
func StepsSinceLastVisit(ctx *vmctx.Context, uid uuid.UUID) int {
	last, prev := -1, -1
	for i, v := range ctx.CursorHistory {
		if v == uid {
			prev = last
			last = i
		}
	}
	if prev == -1 {
		return -1
	}
	return last - prev
}

// IsSelfLoop reports whether the two most recent history entries are the
// same node.
func IsSelfLoop(ctx *vmctx.Context) bool {
	n := len(ctx.CursorHistory)
	return n >= 2 && ctx.CursorHistory[n-1] == ctx.CursorHistory[n-2]
}

// InSubroutine reports whether a subroutine jump is currently active.
func InSubroutine(ctx *vmctx.Context) bool {
	return len(ctx.CallStack) > 0
}

// GetCallerFrame returns the most recent call frame, if any.
func GetCallerFrame(ctx *vmctx.Context) (graph.StackFrame, bool) {
	if len(ctx.CallStack) == 0 {
		return graph.StackFrame{}, false
	}
	return ctx.CallStack[len(ctx.CallStack)-1], true
}

// GetCallDepth returns the current subroutine call depth.
func GetCallDepth(ctx *vmctx.Context) int {
	return len(ctx.CallStack)
}

// GetRootCaller returns the bottommost call frame, if any.
func GetRootCaller(ctx *vmctx.Context) (graph.StackFrame, bool) {
	if len(ctx.CallStack) == 0 {
		return graph.StackFrame{}, false
	}
	return ctx.CallStack[0], true
}
