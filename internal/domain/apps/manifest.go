package apps

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MicroPythonOS/shell/internal/shared/utils"
	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// DefaultEntry is the entry script assumed when a manifest omits one.
const DefaultEntry = "main.js"

// ManifestNames are the file names probed at a package root, in
// priority order.
var ManifestNames = []string{"manifest.json", "manifest.yaml", "manifest.yml", "manifest.toml"}

// ActivityDecl declares one activity exported by a package.
//
// Component is the name the registry indexes. Entry is the script
// implementing the activity, relative to the package root; it
// defaults to the package entry. Actions lists the intent actions the
// activity handles; an empty list makes the component launchable by
// name only.
type ActivityDecl struct {
	Component string   `json:"component" yaml:"component" toml:"component"`
	Entry     string   `json:"entry,omitempty" yaml:"entry,omitempty" toml:"entry,omitempty"`
	Actions   []string `json:"actions,omitempty" yaml:"actions,omitempty" toml:"actions,omitempty"`
}

// Manifest describes an installable app package.
type Manifest struct {
	ID          string         `json:"id" yaml:"id" toml:"id"`
	Name        string         `json:"name" yaml:"name" toml:"name"`
	Version     string         `json:"version" yaml:"version" toml:"version"`
	Author      string         `json:"author,omitempty" yaml:"author,omitempty" toml:"author,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Icon        string         `json:"icon,omitempty" yaml:"icon,omitempty" toml:"icon,omitempty"`
	Category    string         `json:"category,omitempty" yaml:"category,omitempty" toml:"category,omitempty"`
	Entry       string         `json:"entry,omitempty" yaml:"entry,omitempty" toml:"entry,omitempty"`
	Activities  []ActivityDecl `json:"activities,omitempty" yaml:"activities,omitempty" toml:"activities,omitempty"`
}

// ParseManifest decodes manifest data in the format implied by the
// file name and validates it. Supported formats: JSON, YAML, TOML.
func ParseManifest(data []byte, filename string) (*Manifest, error) {
	if len(data) > utils.MaxManifestSize {
		return nil, fmt.Errorf("manifest exceeds %d bytes", utils.MaxManifestSize)
	}

	var m Manifest
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		if err := sonic.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("invalid JSON manifest: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("invalid YAML manifest: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("invalid TOML manifest: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", filepath.Ext(filename))
	}

	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ParseManifestFile reads and decodes a manifest from disk.
func ParseManifestFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data, path)
}

// applyDefaults fills the entry script and, for single-activity
// packages that declare none, synthesizes an activity named after the
// package itself.
func (m *Manifest) applyDefaults() {
	if m.Entry == "" {
		m.Entry = DefaultEntry
	}
	if len(m.Activities) == 0 {
		m.Activities = []ActivityDecl{{Component: m.ID, Entry: m.Entry}}
	}
	for i := range m.Activities {
		if m.Activities[i].Entry == "" {
			m.Activities[i].Entry = m.Entry
		}
	}
}

// Validate checks the manifest for structural problems. Defaults must
// already be applied.
func (m *Manifest) Validate() error {
	if err := utils.ValidateAppID(m.ID); err != nil {
		return err
	}
	if err := utils.ValidateName(m.Name, "name"); err != nil {
		return err
	}
	if err := utils.ValidateVersion(m.Version, true); err != nil {
		return err
	}
	if err := utils.ValidateDescription(m.Description, "description", false); err != nil {
		return err
	}
	if err := utils.ValidateCategory(m.Category, false); err != nil {
		return err
	}
	if err := validateRelPath(m.Entry, "entry"); err != nil {
		return err
	}
	if m.Icon != "" {
		if err := validateRelPath(m.Icon, "icon"); err != nil {
			return err
		}
	}

	if len(m.Activities) == 0 {
		return fmt.Errorf("manifest declares no activities")
	}
	seen := make(map[string]bool, len(m.Activities))
	for i := range m.Activities {
		decl := &m.Activities[i]
		if err := utils.ValidateString(decl.Component, "component", 1, utils.MaxIDLength, true); err != nil {
			return err
		}
		if !utils.ActionPattern.MatchString(decl.Component) {
			return fmt.Errorf("component %q contains invalid characters", decl.Component)
		}
		if seen[decl.Component] {
			return fmt.Errorf("duplicate component %q", decl.Component)
		}
		seen[decl.Component] = true

		if err := validateRelPath(decl.Entry, "entry"); err != nil {
			return fmt.Errorf("component %q: %w", decl.Component, err)
		}
		for _, action := range decl.Actions {
			if err := utils.ValidateAction(action, true); err != nil {
				return fmt.Errorf("component %q: %w", decl.Component, err)
			}
		}
	}
	return nil
}

// validateRelPath rejects paths that could escape the package root.
func validateRelPath(path, field string) error {
	if path == "" {
		return fmt.Errorf("%s is required", field)
	}
	if filepath.IsAbs(path) {
		return fmt.Errorf("%s must be relative to the package root", field)
	}
	clean := filepath.Clean(path)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s escapes the package root", field)
	}
	return nil
}
