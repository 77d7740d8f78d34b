package resolver

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/chainring-dev/chainring/pkg/conflict"
	"github.com/chainring-dev/chainring/pkg/graph"
	"github.com/chainring-dev/chainring/pkg/lockfile"
	"github.com/chainring-dev/chainring/pkg/manifest"
	"github.com/chainring-dev/chainring/pkg/observability"
	"github.com/chainring-dev/chainring/pkg/semver"
)

// Options configures an Engine.
type Options struct {
	// Strategy applied to version conflicts. Defaults to highest.
	Strategy conflict.Strategy

	// Logger for session logging. Defaults to the logrus standard logger.
	Logger *logrus.Logger

	// Metrics sink. Nil disables metric recording.
	Metrics *observability.Metrics

	// SemverCacheSize bounds the parse caches. Zero selects the default.
	SemverCacheSize int
}

// Engine runs resolution passes. It is synchronous and performs no I/O
// except lockfile reads and writes; a hung resolution is a bug, not
// something to cancel.
type Engine struct {
	semver    *semver.Resolver
	conflicts *conflict.Resolver
	lockfiles *lockfile.Manager
	logger    *logrus.Logger
	metrics   *observability.Metrics
	strategy  conflict.Strategy
}

// New creates a resolution engine.
func New(opts Options) (*Engine, error) {
	if opts.Strategy == "" {
		opts.Strategy = conflict.StrategyHighest
	}
	if _, err := conflict.ParseStrategy(string(opts.Strategy)); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	sv, err := semver.NewResolver(opts.SemverCacheSize)
	if err != nil {
		return nil, err
	}

	return &Engine{
		semver:    sv,
		conflicts: conflict.NewResolver(sv),
		lockfiles: lockfile.NewManager(sv, opts.Logger),
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		strategy:  opts.Strategy,
	}, nil
}

// ResolvedPlugin is one plugin in a finished resolution.
type ResolvedPlugin struct {
	Name         string
	Version      string
	Dependencies map[string]string
}

// Result is a total, consistent resolution: every plugin at exactly one
// version, ordered with dependencies before dependents.
type Result struct {
	SessionID    string
	InstallOrder []string
	Plugins      map[string]ResolvedPlugin
	// Conflicts records the version chosen for each plugin that had
	// competing requirements.
	Conflicts map[string]string
	Duration  time.Duration

	manifests map[string]*manifest.Manifest
}

// Resolve computes an installation plan for every plugin in the set. There
// is no partial success: either a total order comes back, or an error
// (*graph.CycleError, *conflict.UnresolvableError, validation failure).
func (e *Engine) Resolve(set *manifest.Set) (*Result, error) {
	session := uuid.NewString()
	start := time.Now()
	log := e.logger.WithFields(logrus.Fields{
		"session": session,
		"plugins": len(set.Names()),
	})
	log.Info("Starting resolution")

	result, err := e.resolve(set, session)
	e.observe(err, time.Since(start), len(set.Names()))
	if err != nil {
		log.WithError(err).Error("Resolution failed")
		return nil, err
	}

	result.Duration = time.Since(start)
	log.WithFields(logrus.Fields{
		"order":     result.InstallOrder,
		"conflicts": len(result.Conflicts),
		"duration":  result.Duration.String(),
	}).Info("Resolution complete")
	return result, nil
}

func (e *Engine) resolve(set *manifest.Set, session string) (*Result, error) {
	selected, conflicts, err := e.selectVersions(set)
	if err != nil {
		return nil, err
	}

	g := graph.NewDependencyGraph()
	names := set.Names()
	for _, name := range names {
		g.AddNode(name, selected[name].Version)
	}
	for _, name := range names {
		m := selected[name]
		for _, dep := range sortedDeps(m) {
			if err := g.AddEdge(name, dep, m.Dependencies[dep]); err != nil {
				return nil, err
			}
		}
	}

	order, err := g.Resolve()
	if err != nil {
		return nil, err
	}

	plugins := make(map[string]ResolvedPlugin, len(names))
	for _, name := range names {
		m := selected[name]
		deps := make(map[string]string, len(m.Dependencies))
		for dep := range m.Dependencies {
			deps[dep] = selected[dep].Version
		}
		plugins[name] = ResolvedPlugin{
			Name:         name,
			Version:      m.Version,
			Dependencies: deps,
		}
	}

	return &Result{
		SessionID:    session,
		InstallOrder: order,
		Plugins:      plugins,
		Conflicts:    conflicts,
		manifests:    selected,
	}, nil
}

// selectVersions settles every plugin name on exactly one version. A name
// requested by several plugins with differing ranges goes through the
// conflict resolver; a name with a single range takes the best match; a
// name nobody requires keeps its highest available version.
func (e *Engine) selectVersions(set *manifest.Set) (map[string]*manifest.Manifest, map[string]string, error) {
	names := set.Names()

	// Requirement collection uses each plugin's highest available version as
	// its representative manifest.
	representatives := make(map[string]*manifest.Manifest, len(names))
	for _, name := range names {
		rep, err := e.representative(set, name)
		if err != nil {
			return nil, nil, err
		}
		if errs := manifest.Validate(rep, e.semver); len(errs) > 0 {
			return nil, nil, fmt.Errorf("resolver: plugin %q at %s: invalid manifest: %s (%s)",
				name, rep.Version, errs[0].Message, errs[0].Field)
		}
		representatives[name] = rep
	}

	requirements := make(map[string][]conflict.Requirement)
	for _, name := range names {
		rep := representatives[name]
		for _, dep := range sortedDeps(rep) {
			requirements[dep] = append(requirements[dep], conflict.Requirement{
				Requester: name,
				Range:     rep.Dependencies[dep],
			})
		}
	}

	selectedVersions := make(map[string]string, len(names))
	conflicts := make(map[string]string)
	for _, name := range names {
		reqs := requirements[name]
		available := set.AvailableVersions(name)

		switch {
		case len(reqs) == 0:
			selectedVersions[name] = representatives[name].Version

		case distinctRanges(reqs) > 1:
			vc := conflict.VersionConflict{
				PluginName:        name,
				RequestedBy:       reqs,
				AvailableVersions: available,
			}
			version, err := e.conflicts.Resolve(vc, e.strategy)
			if e.metrics != nil {
				outcome := "resolved"
				if err != nil {
					outcome = "unresolvable"
				}
				e.metrics.ConflictsTotal.WithLabelValues(string(e.strategy), outcome).Inc()
			}
			if err != nil {
				return nil, nil, err
			}
			selectedVersions[name] = version
			conflicts[name] = version

		default:
			version, ok, err := e.semver.MaxSatisfying(available, reqs[0].Range)
			if err != nil {
				return nil, nil, err
			}
			if !ok {
				return nil, nil, &conflict.UnresolvableError{
					PluginName:  name,
					RequestedBy: reqs,
				}
			}
			selectedVersions[name] = version
		}
	}

	// Dependencies must exist in the plugin directory at all; a requirement
	// on a name with no versions is unresolvable, not skippable.
	required := make([]string, 0, len(requirements))
	for dep := range requirements {
		required = append(required, dep)
	}
	sort.Strings(required)
	for _, dep := range required {
		if len(set.AvailableVersions(dep)) == 0 {
			return nil, nil, &conflict.UnresolvableError{
				PluginName:  dep,
				RequestedBy: requirements[dep],
			}
		}
	}

	selected := make(map[string]*manifest.Manifest, len(names))
	for name, version := range selectedVersions {
		m, ok := set.Get(name, version)
		if !ok {
			return nil, nil, fmt.Errorf("resolver: plugin %q: selected version %s has no manifest", name, version)
		}
		selected[name] = m
	}

	// Requirements were collected from representatives, but selection may
	// settle a plugin on a lower version whose manifest declares different
	// ranges. The plan must honor the manifests actually selected, so every
	// selected range is re-checked against the selected dependency version.
	for _, name := range names {
		m := selected[name]
		for _, dep := range sortedDeps(m) {
			rng := m.Dependencies[dep]
			depManifest, ok := selected[dep]
			if !ok {
				return nil, nil, &conflict.UnresolvableError{
					PluginName:  dep,
					RequestedBy: []conflict.Requirement{{Requester: name, Range: rng}},
				}
			}
			satisfied, err := e.semver.Satisfies(depManifest.Version, rng)
			if err != nil {
				return nil, nil, err
			}
			if !satisfied {
				return nil, nil, &conflict.UnresolvableError{
					PluginName:  dep,
					RequestedBy: []conflict.Requirement{{Requester: name, Range: rng}},
				}
			}
		}
	}
	return selected, conflicts, nil
}

// representative returns the highest available version of a plugin.
func (e *Engine) representative(set *manifest.Set, name string) (*manifest.Manifest, error) {
	version, ok, err := e.semver.MaxSatisfying(set.AvailableVersions(name), "*")
	if err != nil {
		return nil, fmt.Errorf("resolver: plugin %q: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("resolver: plugin %q: no available versions", name)
	}
	m, ok := set.Get(name, version)
	if !ok {
		return nil, fmt.Errorf("resolver: plugin %q: version %s has no manifest", name, version)
	}
	return m, nil
}

// ResolveConflict applies a strategy to a single conflict. Exposed for
// installers that want to retry an individual conflict (for example after
// the prompt strategy asked a human).
func (e *Engine) ResolveConflict(vc conflict.VersionConflict, strategy conflict.Strategy) (string, error) {
	return e.conflicts.Resolve(vc, strategy)
}

// Preflight reports, without committing to anything, how each conflict in
// the set would resolve under the highest strategy.
func (e *Engine) Preflight(set *manifest.Set) map[string]conflict.Suggestion {
	requirements := make(map[string][]conflict.Requirement)
	names := set.Names()
	for _, name := range names {
		rep, err := e.representative(set, name)
		if err != nil {
			continue
		}
		for _, dep := range sortedDeps(rep) {
			requirements[dep] = append(requirements[dep], conflict.Requirement{
				Requester: name,
				Range:     rep.Dependencies[dep],
			})
		}
	}

	conflicts := make([]conflict.VersionConflict, 0)
	for _, name := range names {
		reqs := requirements[name]
		if distinctRanges(reqs) < 2 {
			continue
		}
		conflicts = append(conflicts, conflict.VersionConflict{
			PluginName:        name,
			RequestedBy:       reqs,
			AvailableVersions: set.AvailableVersions(name),
		})
	}
	return e.conflicts.SuggestResolutions(conflicts)
}

// GenerateLockfile snapshots a resolution result. Integrity hashes cover
// each plugin's canonical manifest content.
func (e *Engine) GenerateLockfile(result *Result) (*lockfile.Lockfile, error) {
	resolved := make(map[string]lockfile.ResolvedEntry, len(result.Plugins))
	for name, plugin := range result.Plugins {
		m := result.manifests[name]
		content, err := manifest.Canonical(m)
		if err != nil {
			return nil, err
		}
		resolved[name] = lockfile.ResolvedEntry{
			Version:      plugin.Version,
			Resolved:     resolvedLocator(m),
			Manifest:     content,
			Dependencies: plugin.Dependencies,
		}
	}
	return e.lockfiles.Generate(resolved), nil
}

// WriteLockfile persists a lockfile.
func (e *Engine) WriteLockfile(lf *lockfile.Lockfile, path string) error {
	return e.lockfiles.Write(lf, path)
}

// ReadLockfile loads a lockfile, failing with *lockfile.MalformedError on
// schema violations.
func (e *Engine) ReadLockfile(path string) (*lockfile.Lockfile, error) {
	return e.lockfiles.Read(path)
}

// ValidateLockfile checks a lockfile's closed-world and integrity
// invariants. When set is non-nil, each entry's hash is recomputed against
// the manifest currently in the plugin directory.
func (e *Engine) ValidateLockfile(lf *lockfile.Lockfile, set *manifest.Set) lockfile.ValidationResult {
	var lookup lockfile.ContentLookup
	if set != nil {
		lookup = func(name string, entry lockfile.LockEntry) ([]byte, error) {
			m, ok := set.Get(name, entry.Version)
			if !ok {
				return nil, fmt.Errorf("version %s not present in plugin directory", entry.Version)
			}
			return manifest.Canonical(m)
		}
	}

	result := e.lockfiles.ValidateIntegrity(lf, lookup)
	if e.metrics != nil {
		label := "valid"
		if !result.Valid {
			label = "invalid"
		}
		e.metrics.LockfileValidationsTotal.WithLabelValues(label).Inc()
	}
	return result
}

// observe records session metrics.
func (e *Engine) observe(err error, elapsed time.Duration, plugins int) {
	if e.metrics == nil {
		return
	}

	outcome := "resolved"
	switch {
	case err == nil:
	case isCycle(err):
		outcome = "cycle"
		e.metrics.CyclesDetectedTotal.Inc()
	case isUnresolvable(err):
		outcome = "unresolvable"
	default:
		outcome = "error"
	}

	e.metrics.ResolutionsTotal.WithLabelValues(outcome).Inc()
	e.metrics.ResolutionDuration.Observe(elapsed.Seconds())
	e.metrics.ResolutionPlugins.Observe(float64(plugins))

	stats := e.semver.CacheStats()
	e.metrics.SemverCacheHits.Set(float64(stats.Hits))
	e.metrics.SemverCacheMisses.Set(float64(stats.Misses))
}

func isCycle(err error) bool {
	var cycle *graph.CycleError
	return errors.As(err, &cycle)
}

func isUnresolvable(err error) bool {
	var unresolvable *conflict.UnresolvableError
	return errors.As(err, &unresolvable)
}

// sortedDeps returns a manifest's dependency names in lexical order, so
// requirement collection and edge insertion are deterministic.
func sortedDeps(m *manifest.Manifest) []string {
	deps := make([]string, 0, len(m.Dependencies))
	for dep := range m.Dependencies {
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	return deps
}

// distinctRanges counts the different range expressions among requirements.
func distinctRanges(reqs []conflict.Requirement) int {
	seen := make(map[string]bool, len(reqs))
	for _, req := range reqs {
		seen[req.Range] = true
	}
	return len(seen)
}

// resolvedLocator derives the lock entry's source locator from where the
// manifest was loaded, falling back to the conventional layout for
// manifests built in memory.
func resolvedLocator(m *manifest.Manifest) string {
	if m.Path != "" {
		return filepath.Dir(m.Path)
	}
	return fmt.Sprintf("plugins/%s@%s", m.Name, m.Version)
}
