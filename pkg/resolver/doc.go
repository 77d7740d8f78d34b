// Package resolver drives a full dependency resolution pass over a local
// plugin directory.
//
// # Overview
//
// The engine composes the core pieces: manifests feed the dependency graph,
// competing version requirements go through the conflict resolver, the graph
// produces a deterministic installation order, and the outcome can be
// snapshotted into a verifiable lockfile.
//
// # Usage Example
//
// Resolve a scanned plugin directory and lock the result:
//
//	set, err := manifest.NewScanner(root, logger).Scan()
//	if err != nil {
//		return err
//	}
//
//	engine, err := resolver.New(resolver.Options{Logger: logger})
//	if err != nil {
//		return err
//	}
//
//	result, err := engine.Resolve(set)
//	if err != nil {
//		return err
//	}
//
//	lf, err := engine.GenerateLockfile(result)
//	if err != nil {
//		return err
//	}
//	if err := engine.WriteLockfile(lf, lockPath); err != nil {
//		return err
//	}
//
// On later runs the lockfile is read back and validated without
// re-resolving:
//
//	lf, err := engine.ReadLockfile(lockPath)
//	if err != nil {
//		return err
//	}
//	validation := engine.ValidateLockfile(lf, set)
//
// # Related Packages
//
//   - pkg/graph: Installation order and cycle detection
//   - pkg/conflict: Version conflict strategies
//   - pkg/lockfile: Snapshot persistence and integrity
//   - pkg/manifest: Plugin discovery
package resolver
