// Package storage implements the §4.5/§6 persistence contract: an
// append-only patch log plus periodic snapshots, keyed by graph id. The
// reference backend is bbolt, grounded on rohankatakam-coderisk's
// bucket-per-concern bolt.DB usage; graph/patch serialization follows
// pkg/export/json.go's MarshalIndent-vs-Marshal split.
package storage
