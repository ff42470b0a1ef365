package types

// DownloadResult is a verified, extracted source tree.
type DownloadResult struct {
	// SourceDir is the root of the extracted sources. When the archive
	// holds a single top level directory, SourceDir is that directory.
	SourceDir string
	// ArchivePath is the downloaded file.
	ArchivePath string
	// Checksum is the verified digest of the downloaded file.
	Checksum string
	// WorkDir is the per-run directory holding everything above.
	WorkDir string
	// Strategy is the name of the strategy that produced the result.
	Strategy string
}
