package snapshot

import (
	"context"
	"sort"
)

// Package is one installed package identity: name plus an opaque version.
type Package struct {
	Name    string
	Version string
}

// Snapshot is a point-in-time capture of the installed set, keyed by name.
// Immutable once built.
type Snapshot struct {
	versions map[string]string
}

// New builds a snapshot from the provided records. Later duplicates of a name
// win, matching how the package database itself resolves identity.
func New(pkgs []Package) Snapshot {
	versions := make(map[string]string, len(pkgs))
	for _, pkg := range pkgs {
		if pkg.Name == "" {
			continue
		}
		versions[pkg.Name] = pkg.Version
	}
	return Snapshot{versions: versions}
}

// Len returns the number of packages captured.
func (s Snapshot) Len() int {
	return len(s.versions)
}

// Version returns the recorded version for name.
func (s Snapshot) Version(name string) (string, bool) {
	version, ok := s.versions[name]
	return version, ok
}

// Packages returns the captured set sorted by name.
func (s Snapshot) Packages() []Package {
	out := make([]Package, 0, len(s.versions))
	for name, version := range s.versions {
		out = append(out, Package{Name: name, Version: version})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Querier supplies the installed set from the package database.
type Querier interface {
	QueryInstalled(ctx context.Context) ([]Package, error)
}

// Capture queries the full installed set. On query failure it returns an
// empty snapshot alongside the error so the caller can warn and continue:
// a missing snapshot degrades the later diff to "no changes detected"
// instead of aborting the run.
func Capture(ctx context.Context, querier Querier) (Snapshot, error) {
	pkgs, err := querier.QueryInstalled(ctx)
	if err != nil {
		return New(nil), err
	}
	return New(pkgs), nil
}
