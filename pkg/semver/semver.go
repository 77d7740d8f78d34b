package semver

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	mm "github.com/Masterminds/semver/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrInvalidVersion indicates a string that is not MAJOR.MINOR.PATCH[-prerelease][+build].
	ErrInvalidVersion = errors.New("invalid semantic version")

	// ErrInvalidRange indicates a range expression that could not be parsed.
	ErrInvalidRange = errors.New("invalid version range")
)

// Version is a parsed semantic version.
//
// This is a thin wrapper around github.com/Masterminds/semver/v3.
type Version struct {
	v *mm.Version
}

func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.String()
}

func (v Version) Major() uint64 { return v.v.Major() }
func (v Version) Minor() uint64 { return v.v.Minor() }
func (v Version) Patch() uint64 { return v.v.Patch() }

// Prerelease returns the prerelease identifiers, empty when none.
func (v Version) Prerelease() string { return v.v.Prerelease() }

// Build returns the build metadata. It never participates in ordering.
func (v Version) Build() string { return v.v.Metadata() }

// Range is a parsed version range expression.
//
// Examples:
// - "1.2.3" (exact)
// - "^1.2.3", "~1.2"
// - ">=1.2.0 <2.0.0"
// - "^1.0.0 || ^2.0.0"
// - "*"
type Range struct {
	c        *mm.Constraints
	raw      string
	wildcard bool
}

func (r Range) String() string { return r.raw }

// Compare returns -1 if a < b, 0 if a == b, and 1 if a > b, following semver
// precedence: numeric major/minor/patch first, then prerelease identifiers
// (a version without prerelease outranks the same version with one). Build
// metadata is ignored.
func Compare(a, b Version) int {
	if a.v == nil && b.v == nil {
		return 0
	}
	if a.v == nil {
		return -1
	}
	if b.v == nil {
		return 1
	}
	return a.v.Compare(b.v)
}

// Satisfies reports whether v is inside r. The wildcard range matches every
// valid version, prereleases included; all other ranges follow the usual
// rule that prerelease versions only match ranges that mention a prerelease.
func Satisfies(v Version, r Range) bool {
	if v.v == nil {
		return false
	}
	if r.wildcard {
		return true
	}
	if r.c == nil {
		return false
	}
	return r.c.Check(v.v)
}

// MaxSatisfying returns the highest candidate inside r.
func MaxSatisfying(r Range, candidates []Version) (Version, bool) {
	var best Version
	found := false
	for _, candidate := range candidates {
		if !Satisfies(candidate, r) {
			continue
		}
		if !found || Compare(candidate, best) > 0 {
			best = candidate
			found = true
		}
	}
	return best, found
}

// MinSatisfying returns the lowest candidate inside r.
func MinSatisfying(r Range, candidates []Version) (Version, bool) {
	var best Version
	found := false
	for _, candidate := range candidates {
		if !Satisfies(candidate, r) {
			continue
		}
		if !found || Compare(candidate, best) < 0 {
			best = candidate
			found = true
		}
	}
	return best, found
}

// Resolver parses versions and ranges, memoizing parse results in bounded
// LRU caches. A Resolver carries all of its own state; nothing is shared
// between resolvers, so independent resolution sessions never observe each
// other.
type Resolver struct {
	versions *lru.Cache[string, Version]
	ranges   *lru.Cache[string, Range]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// DefaultCacheSize bounds each parse cache when no size is given.
const DefaultCacheSize = 1024

// NewResolver creates a Resolver with parse caches bounded to cacheSize
// entries each. cacheSize <= 0 selects DefaultCacheSize.
func NewResolver(cacheSize int) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	versions, err := lru.New[string, Version](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("semver: version cache: %w", err)
	}
	ranges, err := lru.New[string, Range](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("semver: range cache: %w", err)
	}
	return &Resolver{versions: versions, ranges: ranges}, nil
}

// Parse parses a strict MAJOR.MINOR.PATCH[-prerelease][+build] version.
func (r *Resolver) Parse(raw string) (Version, error) {
	raw = strings.TrimSpace(raw)
	if v, ok := r.versions.Get(raw); ok {
		r.hits.Add(1)
		return v, nil
	}
	r.misses.Add(1)

	parsed, err := mm.StrictNewVersion(raw)
	if err != nil {
		return Version{}, fmt.Errorf("semver: parse version %q: %w", raw, ErrInvalidVersion)
	}
	v := Version{v: parsed}
	r.versions.Add(raw, v)
	return v, nil
}

// ParseRange parses a range expression. An empty expression means "*".
func (r *Resolver) ParseRange(raw string) (Range, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "*"
	}
	if rng, ok := r.ranges.Get(raw); ok {
		r.hits.Add(1)
		return rng, nil
	}
	r.misses.Add(1)

	c, err := mm.NewConstraint(raw)
	if err != nil {
		return Range{}, fmt.Errorf("semver: parse range %q: %w", raw, ErrInvalidRange)
	}
	rng := Range{c: c, raw: raw, wildcard: raw == "*"}
	r.ranges.Add(raw, rng)
	return rng, nil
}

// Satisfies reports whether version is inside rng, parsing both.
func (r *Resolver) Satisfies(version, rng string) (bool, error) {
	v, err := r.Parse(version)
	if err != nil {
		return false, err
	}
	parsed, err := r.ParseRange(rng)
	if err != nil {
		return false, err
	}
	return Satisfies(v, parsed), nil
}

// MaxSatisfying returns the highest of versions that is inside rng. The
// second return is false when no candidate matches; callers must treat that
// as a resolution failure.
func (r *Resolver) MaxSatisfying(versions []string, rng string) (string, bool, error) {
	parsed, err := r.ParseRange(rng)
	if err != nil {
		return "", false, err
	}
	candidates := make([]Version, 0, len(versions))
	for _, raw := range versions {
		v, err := r.Parse(raw)
		if err != nil {
			return "", false, err
		}
		candidates = append(candidates, v)
	}
	best, ok := MaxSatisfying(parsed, candidates)
	if !ok {
		return "", false, nil
	}
	return best.String(), true, nil
}

// CacheStats reports cumulative parse cache hits and misses.
type CacheStats struct {
	Hits   uint64
	Misses uint64
}

func (r *Resolver) CacheStats() CacheStats {
	return CacheStats{
		Hits:   r.hits.Load(),
		Misses: r.misses.Load(),
	}
}
