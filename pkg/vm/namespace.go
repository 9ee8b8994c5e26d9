package vm

import (
	"github.com/derekmerck/storytangl/pkg/graph"
	"github.com/derekmerck/storytangl/pkg/vmctx"
)

// BuildNamespace resolves ns(name) per §4.3: tick ns_overrides, then the
// cursor's own locals, then each ancestor's locals (nearest first), then
// domain-provided variables, then graph globals. It is a pure read: the
// returned map reflects precedence by later layers overwriting earlier
// ones, so nearest wins on any name collision exactly as §4.3 specifies.
func BuildNamespace(ctx *vmctx.Context, cursor *graph.Node, ancestors []*graph.Node, domainVars map[string]graph.Value, globals *graph.Node) map[string]any {
	env := map[string]any{}

	if globals != nil {
		for k, v := range globals.Locals {
			env[k] = v
		}
	}
	for k, v := range domainVars {
		env[k] = v
	}
	for i := len(ancestors) - 1; i >= 0; i-- {
		for k, v := range ancestors[i].Locals {
			env[k] = v
		}
	}
	if cursor != nil {
		for k, v := range cursor.Locals {
			env[k] = v
		}
	}
	for k, v := range ctx.NSOverrides {
		env[k] = v
	}
	return env
}
