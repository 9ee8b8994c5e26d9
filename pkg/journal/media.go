package journal

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/derekmerck/storytangl/pkg/graph"
)

// MediaScope is the precedence tier a MediaDep edge resolved at.
type MediaScope string

const (
	ScopeWorld       MediaScope = "world"
	ScopeWorldSystem MediaScope = "world-system"
	ScopeSystem      MediaScope = "system"
)

// MediaResolver looks up a media role under a given scope, returning the
// bound path/URL fragment or ok=false if nothing is bound there.
type MediaResolver interface {
	Resolve(role string, scope MediaScope) (string, bool)
}

// ResolveMedia walks MediaDep edges out of node, resolving each against the
// resolver in world -> world-system -> system precedence order and
// producing an absolute-style URL with its scope discriminator (§4.7
// "Media resolution"). alloc mints each fragment's uid from the tick's
// seeded allocator (§8 Determinism).
func ResolveMedia(g *graph.Graph, nodeUID uuid.UUID, resolver MediaResolver, alloc func() uuid.UUID) []Fragment {
	var frags []Fragment
	for _, e := range g.EdgesOut(nodeUID, graph.KindMediaDep) {
		role := e.Label
		for _, scope := range []MediaScope{ScopeWorld, ScopeWorldSystem, ScopeSystem} {
			if path, ok := resolver.Resolve(role, scope); ok {
				frags = append(frags, NewMedia(alloc(), fmt.Sprintf("/media/%s", path), string(scope)))
				break
			}
		}
	}
	return frags
}
