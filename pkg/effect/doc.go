// Package effect implements the Effect Buffer and Patch Log (§3, §4.5).
//
// A Buffer accumulates the mutations an EFFECTS-phase handler wants to make
// to the graph without applying them directly. Handlers that run later in
// the same phase see a consistent read-your-writes Preview of the graph
// with every effect emitted so far applied on top of the tick's base
// version; nothing is visible to handlers outside the tick until the
// buffer is canonicalized into a Patch and committed.
//
// New node and edge uids minted by a Buffer are derived deterministically
// from the tick's rng_seed, the tick_id, and an allocation sequence number
// using the same SHA-256 sub-seed scheme as pkg/rng, so two runs seeded
// identically produce byte-identical graphs (§8 "Determinism").
package effect
