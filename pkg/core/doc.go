// Package core ties the cellar components together into the install
// pipeline:
//
//  1. The formula catalog is loaded once from the bundled formulas and
//     the configured formula directories.
//  2. The requested formulas and their transitive dependencies are
//     resolved into a dependency graph. Option requests are validated
//     for every formula of the graph at this point, so an unknown option
//     aborts before anything touches the disk.
//  3. The graph is ordered into a plan and checked for conflicts against
//     the set being installed and the formulas already installed.
//  4. The scheduler runs the plan, installing independent formulas in
//     parallel. Each formula is fetched with the download strategy its
//     source names and installed by the orchestrator, which records a
//     receipt for it.
//
// A failed formula is rolled back by the orchestrator and every formula
// depending on it is skipped; unrelated formulas still install.
package core
