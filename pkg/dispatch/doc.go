// Package dispatch implements the layered handler registry and gather/sort/
// invoke pipeline of §4.2.
//
// Handlers are gathered from five layers — LOCAL (installed on one
// Context), SCOPE (reachable through the cursor's ancestor chain and its
// graph), DOMAIN (author-registered extension surface), GLOBAL
// (process-wide), and APPLICATION (registered on the graph's containing
// world) — merged into one slice, sorted by (priority, layer rank,
// insertion order), and invoked in that order. Each handler's contribution
// is recorded as a vmctx.Receipt, visible to handlers invoked later in the
// same dispatch via ctx.CallReceipts.
package dispatch
