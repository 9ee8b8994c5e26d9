package world

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Role is the fully expanded form of a block's role binding.
type Role struct {
	ActorRef string `yaml:"actor_ref"`
}

// Roles is a block's role map, accepting the two shorthands of §6:
// a bare list of names (`["a", "b"]`), or a map of role to actor label
// (`{a: "ref"}`), alongside the fully expanded `{a: {actor_ref: "ref"}}`
// form.
type Roles map[string]Role

// UnmarshalYAML expands either shorthand into the canonical map form.
func (r *Roles) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := value.Decode(&names); err != nil {
			return fmt.Errorf("roles: %w", err)
		}
		out := make(Roles, len(names))
		for _, name := range names {
			out[name] = Role{ActorRef: name}
		}
		*r = out
		return nil

	case yaml.MappingNode:
		var asRefs map[string]string
		if err := value.Decode(&asRefs); err == nil {
			out := make(Roles, len(asRefs))
			for role, ref := range asRefs {
				out[role] = Role{ActorRef: ref}
			}
			*r = out
			return nil
		}
		var asRoles map[string]Role
		if err := value.Decode(&asRoles); err != nil {
			return fmt.Errorf("roles: %w", err)
		}
		*r = asRoles
		return nil

	default:
		return fmt.Errorf("roles: unsupported YAML node kind %v", value.Kind)
	}
}

// Action is an authored successor choice out of a block.
type Action struct {
	Text      string `yaml:"text"`
	Successor string `yaml:"successor"`
}

// TemplateDef is a templates: entry, materialized into a
// pkg/template.Template by Compile.
type TemplateDef struct {
	Kind        string `yaml:"kind"`
	Content     string `yaml:"content"`
	ParentLabel string `yaml:"parent_label,omitempty"`
	SourceLabel string `yaml:"source_label,omitempty"`
}

// Block is one scene block: narrative content plus its authored actions,
// role bindings, locals, effects, and entry conditions (§6).
type Block struct {
	Content    string         `yaml:"content"`
	Actions    []Action       `yaml:"actions,omitempty"`
	Roles      Roles          `yaml:"roles,omitempty"`
	Settings   map[string]any `yaml:"settings,omitempty"`
	Effects    []string       `yaml:"effects,omitempty"`
	Conditions []string       `yaml:"conditions,omitempty"`
}

// Scene groups blocks under a label.
type Scene struct {
	Label  string           `yaml:"label"`
	Blocks map[string]Block `yaml:"blocks"`
}

// Script is the top-level story script grammar of §6.
type Script struct {
	Label     string                 `yaml:"label"`
	Metadata  map[string]string      `yaml:"metadata,omitempty"`
	Templates map[string]TemplateDef `yaml:"templates,omitempty"`
	Scenes    map[string]Scene       `yaml:"scenes"`
}

// Validate checks the script is structurally complete enough to compile.
func (s *Script) Validate() error {
	if s.Label == "" {
		return fmt.Errorf("world: script label is required")
	}
	if len(s.Scenes) == 0 {
		return fmt.Errorf("world: script %q has no scenes", s.Label)
	}
	for sceneLabel, scene := range s.Scenes {
		if len(scene.Blocks) == 0 {
			return fmt.Errorf("world: scene %q has no blocks", sceneLabel)
		}
	}
	return nil
}

// LoadScript reads and validates a story script YAML file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script file: %w", err)
	}
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parsing script YAML: %w", err)
	}
	if err := script.Validate(); err != nil {
		return nil, err
	}
	return &script, nil
}
