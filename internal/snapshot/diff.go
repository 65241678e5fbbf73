package snapshot

import "sort"

// Absent marks a package missing from one side of a diff. It cannot collide
// with a real dpkg version, which always starts with a digit or an epoch.
const Absent = "absent"

// Change records one package whose version differs between two snapshots.
type Change struct {
	Name string
	Old  string
	New  string
}

// Installed reports whether the package appeared between the snapshots.
func (c Change) Installed() bool { return c.Old == Absent }

// Removed reports whether the package disappeared between the snapshots.
func (c Change) Removed() bool { return c.New == Absent }

// ChangeSet is a name-sorted sequence of changes. Immutable once produced.
type ChangeSet []Change

// Diff performs a full outer join of pre and post by package name and emits
// a change for every name whose version differs, including appearance and
// removal. Names whose versions match on both sides are never emitted.
func Diff(pre, post Snapshot) ChangeSet {
	names := make(map[string]struct{}, pre.Len()+post.Len())
	for name := range pre.versions {
		names[name] = struct{}{}
	}
	for name := range post.versions {
		names[name] = struct{}{}
	}

	changes := make(ChangeSet, 0, len(names))
	for name := range names {
		oldVersion, ok := pre.Version(name)
		if !ok {
			oldVersion = Absent
		}
		newVersion, ok := post.Version(name)
		if !ok {
			newVersion = Absent
		}
		if oldVersion == newVersion {
			continue
		}
		changes = append(changes, Change{Name: name, Old: oldVersion, New: newVersion})
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Name < changes[j].Name })
	return changes
}

// Names returns the changed package names in order.
func (cs ChangeSet) Names() []string {
	names := make([]string, 0, len(cs))
	for _, change := range cs {
		names = append(names, change.Name)
	}
	return names
}

// Counts tallies the change set by kind.
func (cs ChangeSet) Counts() (installed, removed, upgraded int) {
	for _, change := range cs {
		switch {
		case change.Installed():
			installed++
		case change.Removed():
			removed++
		default:
			upgraded++
		}
	}
	return installed, removed, upgraded
}
