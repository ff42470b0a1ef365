// Package formulas holds the formulas that ship with cellar. Each one is
// a types.Formula whose install procedure is written in Go against
// types.BuildEnv.
package formulas
