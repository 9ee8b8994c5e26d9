// Package expr implements the restricted predicate/effect DSL of §4.9.
//
// Predicate strings compile to a boolean-typed expr-lang program; effect
// strings compile to a single `target = expr` assignment, where target
// must be a bare, ns-resolvable name on locals. Compiled programs are
// cached per (entity uid, source hash) using the same LRU list/map idiom
// as an expr-lang condition cache, so repeated evaluation of the same
// edge's predicate across ticks costs one map lookup instead of a
// recompile.
//
// The evaluator never exposes Go functions capable of I/O, reflection, or
// process control to expression environments; environments are built
// exclusively from the namespace data under evaluation (graph locals,
// call receipts, dispatch results).
package expr
