// Package lockfile persists resolved plugin sets as verifiable snapshots.
//
// # Overview
//
// A lockfile pins every plugin at one version with a sha256 content hash
// and the versions its dependencies resolved to, enabling reinstallation
// without re-running resolution. The on-disk form is JSON with sorted keys,
// so generating the same resolution twice produces identical bytes.
//
// Validation enforces a closed world: every dependency named by an entry
// must itself be locked. Corrupt or tampered lockfiles are reported, never
// repaired in place; regeneration is always an explicit caller decision.
//
// # Usage Example
//
//	m := lockfile.NewManager(sv, logger)
//	lf := m.Generate(resolved)
//	if err := m.Write(lf, "chainring.lock"); err != nil {
//		return err
//	}
//
//	loaded, err := m.Read("chainring.lock")
//	if err != nil {
//		return err
//	}
//	result := m.ValidateIntegrity(loaded, lookup)
package lockfile
