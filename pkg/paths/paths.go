package paths

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName is the directory name used under XDG base directories.
const AppName = "cellar"

// LinkedDirs are the keg subdirectories whose entries are linked into the
// prefix when a formula is finalized.
var LinkedDirs = []string{"bin", "sbin", "lib", "include", "share"}

// Prefix is the filesystem root that formulas are installed under.
type Prefix struct {
	Root string
}

// NewPrefix returns the layout for root, cleaned.
func NewPrefix(root string) Prefix {
	return Prefix{Root: filepath.Clean(root)}
}

func (p Prefix) Bin() string     { return filepath.Join(p.Root, "bin") }
func (p Prefix) Sbin() string    { return filepath.Join(p.Root, "sbin") }
func (p Prefix) Lib() string     { return filepath.Join(p.Root, "lib") }
func (p Prefix) Include() string { return filepath.Join(p.Root, "include") }
func (p Prefix) Share() string   { return filepath.Join(p.Root, "share") }
func (p Prefix) Etc() string     { return filepath.Join(p.Root, "etc") }
func (p Prefix) Var() string     { return filepath.Join(p.Root, "var") }
func (p Prefix) Cellar() string  { return filepath.Join(p.Root, "Cellar") }

// Opt is the stable, version independent link to a formula's keg.
func (p Prefix) Opt(name string) string { return filepath.Join(p.Root, "opt", name) }

// Receipts is where install manifests are persisted.
func (p Prefix) Receipts() string { return filepath.Join(p.Var(), AppName, "receipts") }

// Keg returns the private install directory for one formula version.
func (p Prefix) Keg(name, version string) Keg {
	return Keg{
		Root:    filepath.Join(p.Cellar(), name, version),
		Name:    name,
		Version: version,
		Prefix:  p,
	}
}

// Keg is the versioned directory a formula installs into before its files
// are linked into the prefix.
type Keg struct {
	Root    string
	Name    string
	Version string
	Prefix  Prefix
}

func (k Keg) Bin() string     { return filepath.Join(k.Root, "bin") }
func (k Keg) Sbin() string    { return filepath.Join(k.Root, "sbin") }
func (k Keg) Lib() string     { return filepath.Join(k.Root, "lib") }
func (k Keg) Include() string { return filepath.Join(k.Root, "include") }
func (k Keg) Share() string   { return filepath.Join(k.Root, "share") }
func (k Keg) Libexec() string { return filepath.Join(k.Root, "libexec") }
func (k Keg) Man() string     { return filepath.Join(k.Share(), "man") }
func (k Keg) Doc() string     { return filepath.Join(k.Share(), "doc", k.Name) }
func (k Keg) Info() string    { return filepath.Join(k.Share(), "info") }

// Etc and Var live in the shared prefix so configuration and data survive
// upgrades.
func (k Keg) Etc() string { return k.Prefix.Etc() }
func (k Keg) Var() string { return k.Prefix.Var() }

// Opt is the prefix/opt link for this keg's formula.
func (k Keg) Opt() string { return k.Prefix.Opt(k.Name) }

// Vars returns the substitution variables available to declarative
// formulas and service descriptors.
func (k Keg) Vars() map[string]string {
	return map[string]string{
		"prefix":        k.Root,
		"bin":           k.Bin(),
		"sbin":          k.Sbin(),
		"lib":           k.Lib(),
		"include":       k.Include(),
		"share":         k.Share(),
		"libexec":       k.Libexec(),
		"man":           k.Man(),
		"doc":           k.Doc(),
		"info":          k.Info(),
		"etc":           k.Etc(),
		"var":           k.Var(),
		"opt_prefix":    k.Opt(),
		"global_prefix": k.Prefix.Root,
		"name":          k.Name,
		"version":       k.Version,
	}
}

// CacheDir is the default download and staging area.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// ConfigDir holds the user configuration file.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}
