// Package types defines the core data model shared across cellar: formulas
// and their declarations, the build configuration handed to install
// procedures, install manifests and download results, plus the small
// interfaces (FS, BuildEnv, Procedure) that connect the components.
package types
