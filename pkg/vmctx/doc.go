// Package vmctx provides the per-tick Context and the cross-tick call
// stack it threads through dispatch, provisioning, effects, and journal
// composition. A Context is never persisted; only its graph-resident
// fields (cursor, cursor history, call stack) survive past the tick.
package vmctx
