// Package snapshot owns the state-diffing core of upkeep: point-in-time
// captures of the installed package set, the before/after diff that produces
// the run's change report, and the kernel-package classification that feeds
// the restart decision.
package snapshot
