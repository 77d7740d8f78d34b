// Package semver provides version parsing, ordering and range matching for
// plugin resolution.
//
// # Overview
//
// Versions follow MAJOR.MINOR.PATCH[-prerelease][+build]. Ranges support
// exact versions, caret and tilde shorthands, comparison operators, OR
// combination with ||, and the * wildcard. All component comparisons are
// exact integer comparisons.
//
// Parsing goes through a Resolver, which memoizes parsed versions and
// ranges in bounded LRU caches. There is no package-level cache; every
// resolution session constructs its own Resolver and owns all of its state.
//
// # Usage Example
//
//	sv, err := semver.NewResolver(0)
//	if err != nil {
//		return err
//	}
//
//	ok, err := sv.Satisfies("1.2.3", "^1.2.0") // true
//	best, ok, err := sv.MaxSatisfying([]string{"1.0.0", "1.2.0", "2.0.0"}, "^1.0.0") // "1.2.0"
package semver
