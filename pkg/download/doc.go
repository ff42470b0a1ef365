// Package download turns a formula's source declaration into a verified,
// extracted source tree.
//
// A Strategy has a single operation, Fetch. The default ArchiveStrategy
// downloads the archive, verifies its checksum and only then extracts it
// into the request's work directory. TransformStrategy inserts a conversion
// step between verification and extraction (for example unpacking the
// tarball embedded in a source RPM). Strategies are chosen by name from a
// Strategies set, so the orchestrator never needs to know which one ran.
package download
