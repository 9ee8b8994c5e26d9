// Package journal defines the typed fragment taxonomy that the VM emits as
// narrative output, and the pure composition helpers (dialog parsing,
// concept expansion, template text expansion) used to build them from
// authored content. Composition takes plain inputs rather than a Context
// so this package stays a leaf: the JOURNAL phase (pkg/vm) is what wires
// dispatch, namespace resolution, and the graph together before calling
// Compose.
package journal
