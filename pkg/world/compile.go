package world

import (
	"fmt"
	"sort"
	"strings"

	"github.com/derekmerck/storytangl/pkg/graph"
	"github.com/derekmerck/storytangl/pkg/template"
)

// GlobalsLabel is the label of the synthetic node Compile creates to carry
// a script's top-level metadata as graph globals (§4.3 ns resolution tier
// (e)). pkg/vm.Engine.GlobalsLabel is empty by default; callers set it to
// this value to enable that tier.
const GlobalsLabel = "globals"

type blockRef struct {
	sceneLabel string
	blockLabel string
	node       *graph.Node
	effects    []string
}

// CompileBundle merges every script in b into one graph, failing with an
// error if two scripts declare the same scene label.
func CompileBundle(b *Bundle) (*graph.Graph, []*template.Template, error) {
	merged := &Script{
		Label:     b.Manifest.Label,
		Metadata:  map[string]string{},
		Templates: map[string]TemplateDef{},
		Scenes:    map[string]Scene{},
	}
	for k, v := range b.Manifest.Metadata {
		merged.Metadata[k] = v
	}
	for _, s := range b.Scripts {
		for k, v := range s.Metadata {
			merged.Metadata[k] = v
		}
		for name, def := range s.Templates {
			merged.Templates[name] = def
		}
		for label, scene := range s.Scenes {
			if _, exists := merged.Scenes[label]; exists {
				return nil, nil, fmt.Errorf("world: scene %q declared in more than one script", label)
			}
			merged.Scenes[label] = scene
		}
	}
	return CompileScript(merged)
}

// CompileScript compiles a single script's scenes, blocks, actions, role
// bindings, and templates into a graph plus a template set, generalizing
// pkg/dungeon/config.go's validated-config-to-domain-object conversion to
// the §6 story script grammar.
func CompileScript(script *Script) (*graph.Graph, []*template.Template, error) {
	g := graph.New()

	if len(script.Metadata) > 0 {
		globals := graph.NewNode(graph.KindGame, GlobalsLabel)
		for k, v := range script.Metadata {
			globals.Locals[k] = v
		}
		if err := g.AddNode(globals); err != nil {
			return nil, nil, err
		}
	}

	sceneLabels := sortedKeys(script.Scenes)
	blocksByFull := map[string]blockRef{}
	blocksByTail := map[string][]blockRef{}

	for _, sceneLabel := range sceneLabels {
		scene := script.Scenes[sceneLabel]
		sceneNode := graph.NewNode(graph.KindScene, sceneLabel)
		if err := g.AddNode(sceneNode); err != nil {
			return nil, nil, err
		}

		blockLabels := sortedKeys(scene.Blocks)
		for _, blockLabel := range blockLabels {
			block := scene.Blocks[blockLabel]
			blockNode := graph.NewNode(graph.KindBlock, blockLabel)
			blockNode.Content = block.Content
			for k, v := range block.Settings {
				blockNode.Locals[k] = v
			}
			if err := g.AddNode(blockNode); err != nil {
				return nil, nil, err
			}
			if err := g.AddEdge(graph.NewEdge(graph.KindChild, sceneNode.UID, &blockNode.UID)); err != nil {
				return nil, nil, err
			}

			ref := blockRef{sceneLabel: sceneLabel, blockLabel: blockLabel, node: blockNode, effects: block.Effects}
			blocksByFull[sceneLabel+"."+blockLabel] = ref
			blocksByTail[blockLabel] = append(blocksByTail[blockLabel], ref)
		}
	}

	if g.InitialCursorID == nil {
		for _, sceneLabel := range sceneLabels {
			blockLabels := sortedKeys(script.Scenes[sceneLabel].Blocks)
			if len(blockLabels) == 0 {
				continue
			}
			initial := blocksByFull[sceneLabel+"."+blockLabels[0]].node.UID
			g.InitialCursorID = &initial
			break
		}
	}

	for _, sceneLabel := range sceneLabels {
		scene := script.Scenes[sceneLabel]
		for _, blockLabel := range sortedKeys(scene.Blocks) {
			block := scene.Blocks[blockLabel]
			src := blocksByFull[sceneLabel+"."+blockLabel].node

			for _, action := range block.Actions {
				dest, err := resolveSuccessor(sceneLabel, action.Successor, blocksByFull, blocksByTail)
				if err != nil {
					return nil, nil, err
				}
				edge := graph.NewEdge(graph.KindAction, src.UID, &dest.node.UID)
				edge.Label = action.Text
				edge.Effects = dest.effects
				if len(block.Conditions) > 0 {
					edge.Predicate = strings.Join(block.Conditions, " && ")
				}
				if err := g.AddEdge(edge); err != nil {
					return nil, nil, err
				}
			}

			for _, roleName := range sortedRoleKeys(block.Roles) {
				role := block.Roles[roleName]
				edge := graph.NewEdge(graph.KindDependency, src.UID, nil)
				edge.Label = roleName
				edge.Requirement = &graph.Requirement{
					Identifier:  role.ActorRef,
					TemplateRef: role.ActorRef,
					Criteria:    map[string]any{"label": role.ActorRef},
					Policy:      graph.PolicyAny,
				}
				if err := g.AddEdge(edge); err != nil {
					return nil, nil, err
				}
			}
		}
	}

	templates := make([]*template.Template, 0, len(script.Templates))
	for _, name := range sortedTemplateKeys(script.Templates) {
		def := script.Templates[name]
		templates = append(templates, &template.Template{
			Label:   name,
			Kind:    graph.Kind(def.Kind),
			Content: def.Content,
			Scope:   template.ScopeSelector{ParentLabel: def.ParentLabel, SourceLabel: def.SourceLabel},
		})
	}

	return g, templates, nil
}

func resolveSuccessor(sceneLabel, ref string, byFull map[string]blockRef, byTail map[string][]blockRef) (blockRef, error) {
	if strings.Contains(ref, ".") {
		if b, ok := byFull[ref]; ok {
			return b, nil
		}
		return blockRef{}, fmt.Errorf("world: action successor %q not found", ref)
	}
	if b, ok := byFull[sceneLabel+"."+ref]; ok {
		return b, nil
	}
	candidates := byTail[ref]
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	if len(candidates) > 1 {
		return blockRef{}, fmt.Errorf("world: action successor %q is ambiguous across scenes", ref)
	}
	return blockRef{}, fmt.Errorf("world: action successor %q not found", ref)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedRoleKeys(m Roles) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedTemplateKeys(m map[string]TemplateDef) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
