// Package world loads on-disk world bundles and story scripts (§6) and
// compiles their YAML IR into a pkg/graph.Graph plus a set of
// pkg/template.Template definitions, following pkg/dungeon/config.go's
// Unmarshal-then-Validate loading convention.
package world
