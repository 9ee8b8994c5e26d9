// Package rng provides deterministic random number generation for the VM.
//
// # Overview
//
// The RNG type ensures reproducible ticks by deriving tick-specific seeds
// from a master seed carried on the Patch. This lets the Effect Buffer's
// uid allocator and any author-facing randomness in predicates/effects
// have independent sequences while the whole tick stays a pure function
// of (graph, choice, seed) per §8 "Determinism".
//
// # Sub-Seed Derivation
//
// Each RNG derives its seed using SHA-256:
//
//	seed_stage = H(masterSeed, stageName, configHash)
//
// where:
//   - masterSeed: rng_seed carried by the tick's Patch
//   - stageName: the consumer identifier (e.g., "effect_uid_allocator")
//   - configHash: hash of any stage-specific salt (e.g., the tick_id bytes)
//
// This ensures:
//  1. Same inputs always produce same RNG sequence (determinism)
//  2. Different consumers get independent random sequences (isolation)
//  3. Salt changes result in different sequences (sensitivity)
//
// # Usage
//
// Create an RNG for each consumer:
//
//	allocRNG := rng.NewRNG(patch.RngSeed, "effect_uid_allocator", tickID[:])
//
// Use the RNG for all random decisions made by that consumer:
//
//	n := allocRNG.Uint64()
//
// # Thread Safety
//
// RNG instances are NOT thread-safe. Each goroutine should use its own RNG
// instance. Create consumer-specific RNGs before spawning goroutines and
// pass them explicitly.
//
// # Performance
//
// The underlying math/rand.Rand is highly efficient:
//   - Uint64(): ~2ns per call
//   - Intn():   ~3ns per call
//   - Float64(): ~2ns per call
//
// Creating a new RNG costs ~8µs due to SHA-256 computation. Reuse RNG
// instances within a tick for best performance.
package rng
