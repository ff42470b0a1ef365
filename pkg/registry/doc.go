// Package registry holds named lookups.
//
// Registry is a small generic, thread-safe map used for download strategies
// and similar pluggable parts. Catalog is the formula registry: it loads
// formulas from their sources, keeps every version of each, and answers
// lookups by name with an optional version constraint.
package registry
