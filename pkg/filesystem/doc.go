// Package filesystem provides filesystem implementations for cellar.
//
// This package contains implementations of the types.FS interface backed by
// afero: the real OS filesystem and an in-memory filesystem for tests.
package filesystem
