package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Scanner discovers plugin manifests under a local plugin directory. Each
// immediate subdirectory holds one plugin; side-by-side versions use
// "<name>@<version>" directory names.
type Scanner struct {
	root   string
	logger *logrus.Logger
}

// NewScanner creates a scanner rooted at the plugin directory.
func NewScanner(root string, logger *logrus.Logger) *Scanner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Scanner{root: root, logger: logger}
}

// Set is the outcome of a scan: every discovered manifest, indexed by name.
type Set struct {
	Manifests []*Manifest
	byName    map[string][]*Manifest
}

// Scan walks the plugin root. Directories without a manifest file are
// skipped; a directory whose manifest exists but fails to parse aborts the
// scan. Directory listing order is lexical, so the resulting Set is
// deterministic for identical trees.
func (s *Scanner) Scan() (*Set, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("manifest: scan %s: %w", s.root, err)
	}

	set := &Set{byName: make(map[string][]*Manifest)}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(s.root, entry.Name())

		m, err := LoadFromDir(dir)
		if err != nil {
			if errors.Is(err, ErrNoManifest) {
				s.logger.WithField("dir", dir).Debug("Skipping directory without a manifest")
				continue
			}
			return nil, err
		}

		if name, version, ok := splitVersionedDir(entry.Name()); ok {
			if m.Name != "" && m.Name != name {
				return nil, fmt.Errorf("manifest: %s: directory name %q does not match manifest name %q",
					dir, name, m.Name)
			}
			if m.Version == "" {
				m.Version = version
			}
		}

		set.Manifests = append(set.Manifests, m)
		set.byName[m.Name] = append(set.byName[m.Name], m)
	}

	s.logger.WithFields(logrus.Fields{
		"root":    s.root,
		"plugins": len(set.Manifests),
	}).Debug("Scanned plugin directory")
	return set, nil
}

// splitVersionedDir parses "<name>@<version>" directory names.
func splitVersionedDir(dir string) (name, version string, ok bool) {
	idx := strings.LastIndex(dir, "@")
	if idx <= 0 || idx == len(dir)-1 {
		return "", "", false
	}
	return dir[:idx], dir[idx+1:], true
}

// Names returns every plugin name in the set, in discovery order.
func (s *Set) Names() []string {
	seen := make(map[string]bool, len(s.byName))
	names := make([]string, 0, len(s.byName))
	for _, m := range s.Manifests {
		if seen[m.Name] {
			continue
		}
		seen[m.Name] = true
		names = append(names, m.Name)
	}
	return names
}

// AvailableVersions returns the versions of a plugin present in the
// directory, in discovery order.
func (s *Set) AvailableVersions(name string) []string {
	manifests := s.byName[name]
	versions := make([]string, 0, len(manifests))
	for _, m := range manifests {
		versions = append(versions, m.Version)
	}
	return versions
}

// Get returns the manifest for an exact plugin name and version.
func (s *Set) Get(name, version string) (*Manifest, bool) {
	for _, m := range s.byName[name] {
		if m.Version == version {
			return m, true
		}
	}
	return nil, false
}

// Available flattens the set into the name -> versions map consumed by the
// resolution engine.
func (s *Set) Available() map[string][]string {
	available := make(map[string][]string, len(s.byName))
	for _, m := range s.Manifests {
		available[m.Name] = append(available[m.Name], m.Version)
	}
	return available
}
