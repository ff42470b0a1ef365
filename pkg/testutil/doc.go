// Package testutil provides helpers for testing cellar components.
//
// Key components:
//   - FakeRunner: a scripted runner.Runner that records every command
//   - Tarball / Checksum / ServeFiles: build and serve source archives
//   - FormulaBuilder: terse formula construction for resolver and
//     orchestrator tests
//   - CreateFile, AssertSymlink and friends for on-disk assertions
//
// All test data is defined inline, never in external fixture files.
package testutil
