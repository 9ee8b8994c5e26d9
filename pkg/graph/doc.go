// Package graph provides the story graph: the mutable runtime structure the
// VM advances one tick at a time. Every addressable object is an Entity —
// a Node (owned by exactly one Graph) or an Edge (a directed, polymorphic
// reference between two Nodes). The Graph indexes entities by uid, label,
// tag, and kind, and maintains adjacency for traversal.
package graph
