package conflict

import (
	"fmt"
	"strings"

	"github.com/chainring-dev/chainring/pkg/semver"
)

// Strategy selects the winning version when multiple plugins request the
// same dependency with different ranges.
type Strategy string

const (
	// StrategyHighest picks the greatest version satisfying every requester.
	StrategyHighest Strategy = "highest"
	// StrategyLowest picks the smallest version satisfying every requester.
	StrategyLowest Strategy = "lowest"
	// StrategyPrompt never resolves automatically; it always fails with an
	// UnresolvableError marked Interactive so the embedding host can ask a
	// human. This package never blocks on I/O itself.
	StrategyPrompt Strategy = "prompt"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(raw string) (Strategy, error) {
	switch Strategy(raw) {
	case StrategyHighest, StrategyLowest, StrategyPrompt:
		return Strategy(raw), nil
	}
	return "", fmt.Errorf("conflict: unknown strategy %q (want highest, lowest or prompt)", raw)
}

// Requirement is one requester's demand on a plugin.
type Requirement struct {
	Requester string
	Range     string
}

// VersionConflict describes a plugin requested by multiple consumers,
// together with the versions actually available to choose from. It is
// computed per resolution pass and never persisted.
type VersionConflict struct {
	PluginName        string
	RequestedBy       []Requirement
	AvailableVersions []string
}

// UnresolvableError reports that no available version satisfies every
// requester. It carries the full requester list so callers can produce a
// precise, actionable message.
type UnresolvableError struct {
	PluginName  string
	RequestedBy []Requirement
	// Interactive is set when the prompt strategy declined to resolve
	// automatically and a human decision is required.
	Interactive bool
}

func (e *UnresolvableError) Error() string {
	requirements := make([]string, 0, len(e.RequestedBy))
	for _, req := range e.RequestedBy {
		requirements = append(requirements, fmt.Sprintf("%s requires %s", req.Requester, req.Range))
	}
	if e.Interactive {
		return fmt.Sprintf("conflict: plugin %q requires manual resolution: %s",
			e.PluginName, strings.Join(requirements, ", "))
	}
	return fmt.Sprintf("conflict: plugin %q: no version satisfies all requesters: %s",
		e.PluginName, strings.Join(requirements, ", "))
}

// Resolver applies a Strategy to version conflicts.
type Resolver struct {
	semver *semver.Resolver
}

// NewResolver creates a conflict resolver backed by the given semver resolver.
func NewResolver(sv *semver.Resolver) *Resolver {
	return &Resolver{semver: sv}
}

// Resolve picks one version for the conflicted plugin. A version is a
// candidate only if it satisfies every requester's range simultaneously; an
// empty candidate set is an UnresolvableError, never a silent guess.
func (r *Resolver) Resolve(conflict VersionConflict, strategy Strategy) (string, error) {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return "", err
	}
	if strategy == StrategyPrompt {
		return "", &UnresolvableError{
			PluginName:  conflict.PluginName,
			RequestedBy: conflict.RequestedBy,
			Interactive: true,
		}
	}

	candidates, err := r.candidates(conflict)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", &UnresolvableError{
			PluginName:  conflict.PluginName,
			RequestedBy: conflict.RequestedBy,
		}
	}

	selected := candidates[0]
	for _, candidate := range candidates[1:] {
		cmp := semver.Compare(candidate, selected)
		if (strategy == StrategyHighest && cmp > 0) || (strategy == StrategyLowest && cmp < 0) {
			selected = candidate
		}
	}
	return selected.String(), nil
}

// candidates filters AvailableVersions down to those satisfying every
// requester. Malformed versions or ranges fail the whole conflict.
func (r *Resolver) candidates(conflict VersionConflict) ([]semver.Version, error) {
	ranges := make([]semver.Range, 0, len(conflict.RequestedBy))
	for _, req := range conflict.RequestedBy {
		rng, err := r.semver.ParseRange(req.Range)
		if err != nil {
			return nil, fmt.Errorf("conflict: plugin %q: requester %s: %w",
				conflict.PluginName, req.Requester, err)
		}
		ranges = append(ranges, rng)
	}

	candidates := make([]semver.Version, 0, len(conflict.AvailableVersions))
	for _, raw := range conflict.AvailableVersions {
		v, err := r.semver.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("conflict: plugin %q: %w", conflict.PluginName, err)
		}
		ok := true
		for _, rng := range ranges {
			if !semver.Satisfies(v, rng) {
				ok = false
				break
			}
		}
		if ok {
			candidates = append(candidates, v)
		}
	}
	return candidates, nil
}

// Suggestion is the pre-flight outcome for one conflict: either the version
// the highest strategy would pick, or the reason no candidate exists.
type Suggestion struct {
	Version string `json:"version,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// SuggestResolutions computes a highest-strategy suggestion for each
// conflict, keyed by plugin name. Used for pre-flight reporting before
// committing to an install.
func (r *Resolver) SuggestResolutions(conflicts []VersionConflict) map[string]Suggestion {
	suggestions := make(map[string]Suggestion, len(conflicts))
	for _, c := range conflicts {
		version, err := r.Resolve(c, StrategyHighest)
		if err != nil {
			suggestions[c.PluginName] = Suggestion{Reason: err.Error()}
			continue
		}
		suggestions[c.PluginName] = Suggestion{Version: version}
	}
	return suggestions
}
