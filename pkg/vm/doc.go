// Package vm implements the Phase Engine: the seven-phase tick loop of
// §4.6 that drives one step(graph, choice) call.
//
// Engine.Step constructs a fresh Context, runs INIT, PLANNING, PREREQS,
// EFFECTS, JOURNAL, BOOKKEEPING, and POSTREQS in order, dispatching each
// phase's task across the handler layers of pkg/dispatch, then
// canonicalizes and commits the tick's Effect Buffer into a Patch. Softlock
// detection and subroutine call-depth enforcement run as part of POSTREQS.
package vm
