package world

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// uidPattern enforces the filesystem-safe manifest uid required by §6.
var uidPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Manifest is the world.yaml bundle descriptor.
type Manifest struct {
	UID      string            `yaml:"uid"`
	Label    string            `yaml:"label"`
	Scripts  []string          `yaml:"scripts"`
	MediaDir string            `yaml:"media_dir,omitempty"`
	Metadata map[string]string `yaml:"metadata,omitempty"`
}

// Validate checks the manifest is well-formed independent of the
// filesystem (§6 "uid must be filesystem-safe").
func (m *Manifest) Validate() error {
	if m.UID == "" {
		return fmt.Errorf("world: manifest uid is required")
	}
	if !uidPattern.MatchString(m.UID) {
		return fmt.Errorf("world: manifest uid %q is not filesystem-safe", m.UID)
	}
	if len(m.Scripts) == 0 {
		return fmt.Errorf("world: manifest must list at least one script")
	}
	return nil
}

// Bundle is a loaded world: its manifest plus every referenced script,
// parsed but not compiled. CompileBundle merges the scripts into one graph.
type Bundle struct {
	Manifest  *Manifest
	Scripts   []*Script
	MediaDir  string
}

// LoadManifest reads and validates world.yaml at dir/world.yaml.
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "world.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading world manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing world manifest YAML: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadBundle reads the manifest at dir and every script it references,
// relative to dir.
func LoadBundle(dir string) (*Bundle, error) {
	manifest, err := LoadManifest(dir)
	if err != nil {
		return nil, err
	}

	scripts := make([]*Script, 0, len(manifest.Scripts))
	for _, rel := range manifest.Scripts {
		script, err := LoadScript(filepath.Join(dir, rel))
		if err != nil {
			return nil, fmt.Errorf("loading script %q: %w", rel, err)
		}
		scripts = append(scripts, script)
	}

	mediaDir := manifest.MediaDir
	if mediaDir == "" {
		mediaDir = "media"
	}

	return &Bundle{Manifest: manifest, Scripts: scripts, MediaDir: filepath.Join(dir, mediaDir)}, nil
}
