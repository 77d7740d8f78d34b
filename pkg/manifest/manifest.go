package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/chainring-dev/chainring/pkg/semver"
)

// Manifest describes one installable plugin: its identity and the semver
// ranges it requires of other plugins.
type Manifest struct {
	Name         string            `json:"name" yaml:"name"`
	Version      string            `json:"version" yaml:"version"`
	Description  string            `json:"description,omitempty" yaml:"description,omitempty"`
	Author       string            `json:"author,omitempty" yaml:"author,omitempty"`
	License      string            `json:"license,omitempty" yaml:"license,omitempty"`
	Homepage     string            `json:"homepage,omitempty" yaml:"homepage,omitempty"`
	Repository   string            `json:"repository,omitempty" yaml:"repository,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`

	// Path is where the manifest was loaded from; empty for manifests built
	// in memory.
	Path string `json:"-" yaml:"-"`
}

// Filenames a plugin directory may use for its manifest, in lookup order.
var manifestFilenames = []string{"plugin.json", "plugin.yaml", "plugin.yml"}

// ErrNoManifest indicates a directory containing no recognized manifest file.
var ErrNoManifest = errors.New("no manifest file")

// Load parses a manifest file, choosing the format by extension.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}

	var m Manifest
	switch filepath.Ext(path) {
	case ".json":
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("manifest: %s: unsupported extension %q", path, filepath.Ext(path))
	}

	m.Path = path
	return &m, nil
}

// LoadFromDir loads a plugin manifest from a directory, trying plugin.json,
// plugin.yaml and plugin.yml in that order.
func LoadFromDir(dir string) (*Manifest, error) {
	for _, filename := range manifestFilenames {
		path := filepath.Join(dir, filename)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return nil, fmt.Errorf("manifest: %s: %w", dir, ErrNoManifest)
}

// Save writes a manifest back to path, choosing the format by extension.
func Save(m *Manifest, path string) error {
	var (
		data []byte
		err  error
	)
	switch filepath.Ext(path) {
	case ".json":
		data, err = json.MarshalIndent(m, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(m)
	default:
		return fmt.Errorf("manifest: %s: unsupported extension %q", path, filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("manifest: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("manifest: write %s: %w", path, err)
	}
	return nil
}

// ValidationError describes one problem with a manifest.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validate checks required fields and that version and dependency ranges
// parse. An empty result means the manifest is usable for resolution.
func Validate(m *Manifest, sv *semver.Resolver) []ValidationError {
	var errors []ValidationError

	if m.Name == "" {
		errors = append(errors, ValidationError{
			Field:   "name",
			Message: "Plugin name is required",
		})
	}

	if m.Version == "" {
		errors = append(errors, ValidationError{
			Field:   "version",
			Message: "Version is required",
		})
	} else if _, err := sv.Parse(m.Version); err != nil {
		errors = append(errors, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("Invalid semver format: %s", m.Version),
		})
	}

	for dep, rng := range m.Dependencies {
		if dep == "" {
			errors = append(errors, ValidationError{
				Field:   "dependencies",
				Message: "Dependency name must not be empty",
			})
			continue
		}
		if _, err := sv.ParseRange(rng); err != nil {
			errors = append(errors, ValidationError{
				Field:   "dependencies." + dep,
				Message: fmt.Sprintf("Invalid version range: %s", rng),
			})
		}
	}

	return errors
}

// Canonical serializes a manifest into the byte form used for integrity
// hashing: compact JSON with map keys sorted, independent of the file format
// the manifest was loaded from.
func Canonical(m *Manifest) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("manifest: canonicalize %s: %w", m.Name, err)
	}
	return data, nil
}
