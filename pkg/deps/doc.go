// Package deps builds the dependency graph of a set of requested formulas
// and resolves it into an ordered install plan.
//
// Resolution is synchronous and all-or-nothing: a missing formula, an
// invalid option request, a cycle or a conflict fails the whole request
// and no partial plan is ever returned. Order is a depth-first post-order
// walk that visits roots in request order and dependencies in declaration
// order, so the same catalog and request always yield the same plan.
package deps
