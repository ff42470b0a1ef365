package types

import (
	"sync"
	"time"
)

// EntryKind is the kind of filesystem action a manifest entry records.
type EntryKind string

const (
	// EntryDirectory is a directory created by the install. It is removed
	// on rollback only if empty, so shared prefix directories survive.
	EntryDirectory EntryKind = "directory"

	// EntryTree is a directory owned entirely by the install (the keg).
	EntryTree EntryKind = "tree"

	EntryFile    EntryKind = "file"
	EntrySymlink EntryKind = "symlink"
)

// ManifestEntry is one recorded filesystem action.
type ManifestEntry struct {
	Kind   EntryKind `yaml:"kind"`
	Path   string    `yaml:"path"`
	Target string    `yaml:"target,omitempty"`
}

// InstallManifest is the ordered record of what one install run created
// for a formula at a prefix. It is safe for concurrent use.
type InstallManifest struct {
	Formula     string       `yaml:"formula"`
	Version     string       `yaml:"version"`
	Prefix      string       `yaml:"prefix"`
	Keg         string       `yaml:"keg"`
	Options     []string     `yaml:"options,omitempty"`
	State       InstallState `yaml:"state"`
	Error       string       `yaml:"error,omitempty"`
	BuildOnly   bool         `yaml:"build_only,omitempty"`
	Caveats     string       `yaml:"caveats,omitempty"`
	StartedAt   time.Time    `yaml:"started_at"`
	CompletedAt time.Time    `yaml:"completed_at,omitempty"`

	Entries []ManifestEntry `yaml:"entries"`

	mu sync.Mutex
}

// NewManifest starts a manifest for an install run.
func NewManifest(formula, version, prefix, keg string) *InstallManifest {
	return &InstallManifest{
		Formula:   formula,
		Version:   version,
		Prefix:    prefix,
		Keg:       keg,
		State:     StatePending,
		StartedAt: time.Now().UTC(),
		Entries:   []ManifestEntry{},
	}
}

// Record appends an entry.
func (m *InstallManifest) Record(kind EntryKind, path, target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, ManifestEntry{Kind: kind, Path: path, Target: target})
}

// Snapshot returns a copy of the entries recorded so far.
func (m *InstallManifest) Snapshot() []ManifestEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ManifestEntry(nil), m.Entries...)
}

// SetState records the current state.
func (m *InstallManifest) SetState(s InstallState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.State = s
}

// CurrentState returns the recorded state.
func (m *InstallManifest) CurrentState() InstallState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.State
}

// SetError records the error that failed the install.
func (m *InstallManifest) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		m.Error = ""
		return
	}
	m.Error = err.Error()
}

// Complete marks the install finished now.
func (m *InstallManifest) Complete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompletedAt = time.Now().UTC()
}

// Clone returns a deep copy that shares nothing with m.
func (m *InstallManifest) Clone() *InstallManifest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &InstallManifest{
		Formula:     m.Formula,
		Version:     m.Version,
		Prefix:      m.Prefix,
		Keg:         m.Keg,
		Options:     append([]string(nil), m.Options...),
		State:       m.State,
		Error:       m.Error,
		BuildOnly:   m.BuildOnly,
		Caveats:     m.Caveats,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
		Entries:     append([]ManifestEntry{}, m.Entries...),
	}
}
