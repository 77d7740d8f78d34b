package lockfile

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chainring-dev/chainring/pkg/semver"
)

// FormatVersion is the lockfile format written by this package.
const FormatVersion = "1.0.0"

// Lockfile is a persisted, hash-verifiable snapshot of a fully resolved
// plugin set. It is regenerated whole on re-resolution, never patched in
// place.
type Lockfile struct {
	Version   string               `json:"version"`
	Generated time.Time            `json:"generated"`
	Plugins   map[string]LockEntry `json:"plugins"`
}

// LockEntry pins one plugin: its resolved version, where it came from, a
// content hash, and the versions its dependencies resolved to.
type LockEntry struct {
	Version      string            `json:"version"`
	Resolved     string            `json:"resolved"`
	Integrity    string            `json:"integrity"`
	Dependencies map[string]string `json:"dependencies"`
}

// ResolvedEntry is the input to Generate for one plugin: the outcome of a
// conflict-resolved graph plus the canonical manifest content to hash.
type ResolvedEntry struct {
	Version      string
	Resolved     string
	Manifest     []byte
	Dependencies map[string]string
}

// MalformedError reports a lockfile that failed schema validation on read.
// Corruption is reported, never auto-repaired; callers wanting a fresh
// lockfile must regenerate it explicitly.
type MalformedError struct {
	Path   string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("lockfile: malformed %s: %s", e.Path, e.Reason)
}

// ValidationResult is the outcome of ValidateIntegrity.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ContentLookup fetches the current content behind a lock entry so its hash
// can be recomputed. Returning an error marks the entry unverifiable.
type ContentLookup func(name string, entry LockEntry) ([]byte, error)

// Integrity hashes content into the stored form: sha256 over the bytes,
// base64-encoded with an algorithm prefix.
func Integrity(content []byte) string {
	sum := sha256.Sum256(content)
	return "sha256-" + base64.StdEncoding.EncodeToString(sum[:])
}

// Manager creates, persists and validates lockfiles.
type Manager struct {
	semver *semver.Resolver
	logger *logrus.Logger
}

// NewManager creates a lockfile manager. A nil logger falls back to the
// logrus standard logger.
func NewManager(sv *semver.Resolver, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{semver: sv, logger: logger}
}

// NewLockfile returns an empty lockfile at the current format version.
func (m *Manager) NewLockfile() *Lockfile {
	return &Lockfile{
		Version:   FormatVersion,
		Generated: time.Now().UTC(),
		Plugins:   make(map[string]LockEntry),
	}
}

// Generate snapshots a resolved plugin set. Each entry's integrity is the
// hash of its canonical manifest content.
func (m *Manager) Generate(resolved map[string]ResolvedEntry) *Lockfile {
	lf := m.NewLockfile()
	for name, entry := range resolved {
		deps := make(map[string]string, len(entry.Dependencies))
		for dep, version := range entry.Dependencies {
			deps[dep] = version
		}
		lf.Plugins[name] = LockEntry{
			Version:      entry.Version,
			Resolved:     entry.Resolved,
			Integrity:    Integrity(entry.Manifest),
			Dependencies: deps,
		}
	}
	m.logger.WithFields(logrus.Fields{
		"plugins": len(lf.Plugins),
		"format":  lf.Version,
	}).Debug("Generated lockfile")
	return lf
}

// Write serializes the lockfile to path as indented JSON. Map keys are
// emitted sorted, so identical content always produces identical bytes.
func (m *Manager) Write(lf *Lockfile, path string) error {
	data, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return fmt.Errorf("lockfile: marshal: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("lockfile: write %s: %w", path, err)
	}
	return nil
}

// Read loads and schema-checks a lockfile. Any violation comes back as a
// *MalformedError.
func (m *Manager) Read(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lockfile: read %s: %w", path, err)
	}

	var lf Lockfile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, &MalformedError{Path: path, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	if lf.Version == "" {
		return nil, &MalformedError{Path: path, Reason: "missing format version"}
	}
	if _, err := m.semver.Parse(lf.Version); err != nil {
		return nil, &MalformedError{Path: path, Reason: fmt.Sprintf("format version %q is not semver", lf.Version)}
	}
	if lf.Plugins == nil {
		return nil, &MalformedError{Path: path, Reason: "missing plugins map"}
	}
	for name, entry := range lf.Plugins {
		if entry.Version == "" {
			return nil, &MalformedError{Path: path, Reason: fmt.Sprintf("plugin %q: missing version", name)}
		}
		if _, err := m.semver.Parse(entry.Version); err != nil {
			return nil, &MalformedError{Path: path, Reason: fmt.Sprintf("plugin %q: version %q is not semver", name, entry.Version)}
		}
		if entry.Resolved == "" {
			return nil, &MalformedError{Path: path, Reason: fmt.Sprintf("plugin %q: missing resolved source", name)}
		}
		if entry.Integrity == "" {
			return nil, &MalformedError{Path: path, Reason: fmt.Sprintf("plugin %q: missing integrity", name)}
		}
	}
	return &lf, nil
}

// ValidateIntegrity checks the closed-world dependency invariant and the
// integrity values of every entry. When lookup is non-nil, each entry's hash
// is recomputed against the content it returns; a mismatch is an error,
// never silently accepted.
func (m *Manager) ValidateIntegrity(lf *Lockfile, lookup ContentLookup) ValidationResult {
	errs := make([]string, 0)

	names := make([]string, 0, len(lf.Plugins))
	for name := range lf.Plugins {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := lf.Plugins[name]

		deps := make([]string, 0, len(entry.Dependencies))
		for dep := range entry.Dependencies {
			deps = append(deps, dep)
		}
		sort.Strings(deps)

		for _, dep := range deps {
			locked, ok := lf.Plugins[dep]
			if !ok {
				errs = append(errs, fmt.Sprintf("plugin %q: dependency %q is not locked", name, dep))
				continue
			}
			if want := entry.Dependencies[dep]; want != locked.Version {
				errs = append(errs, fmt.Sprintf("plugin %q: dependency %q pinned at %s but locked at %s",
					name, dep, want, locked.Version))
			}
		}

		if !wellFormedIntegrity(entry.Integrity) {
			errs = append(errs, fmt.Sprintf("plugin %q: malformed integrity %q", name, entry.Integrity))
			continue
		}

		if lookup != nil {
			content, err := lookup(name, entry)
			if err != nil {
				errs = append(errs, fmt.Sprintf("plugin %q: cannot verify integrity: %v", name, err))
				continue
			}
			if got := Integrity(content); got != entry.Integrity {
				errs = append(errs, fmt.Sprintf("plugin %q: integrity mismatch: lockfile has %s, content hashes to %s",
					name, entry.Integrity, got))
			}
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// wellFormedIntegrity requires the sha256-<base64> form with a full-length
// digest behind the prefix.
func wellFormedIntegrity(integrity string) bool {
	encoded, ok := strings.CutPrefix(integrity, "sha256-")
	if !ok {
		return false
	}
	digest, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false
	}
	return len(digest) == sha256.Size
}
