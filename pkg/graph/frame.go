package graph

import "github.com/google/uuid"

// StackFrame is a record of one subroutine invocation, pushed by a
// JumpAndReturn/JumpReturn edge traversal and popped on return (§4.6).
// The call stack persists on the Graph across ticks.
type StackFrame struct {
	ReturnCursorID uuid.UUID `json:"return_cursor_id"`
	CallSiteLabel  string    `json:"call_site_label"`
	Depth          int       `json:"depth"`
}
