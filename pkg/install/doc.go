// Package install runs a single formula install through its state machine:
//
//	Pending → Fetching → Patching → Configuring → Building → Installing →
//	Finalizing → Installed
//
// with Failed reachable from every non-terminal state. Patching is a no-op
// when the formula declares no patches, but it is still entered.
//
// Everything an install creates is recorded in its manifest as it happens.
// On failure the manifest is rolled back newest-first and no receipt is
// left behind. On cancellation the partial manifest is persisted with
// state Failed instead, and the next install of the formula rolls it back
// before starting over. Installing a formula whose receipt already says
// Installed at the same version does nothing.
package install
