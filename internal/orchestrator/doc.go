// Package orchestrator drives a complete maintenance run from preflight
// guards through the restart decision.
//
// The pipeline is strictly sequential: guards, package-database wait, pre
// snapshot, backups, update execution, post snapshot, diff, restart. A
// stage either aborts the run with a fatal error or degrades to a warning
// and lets the rest proceed. A file lock on the state directory keeps runs
// from overlapping, and an interrupted mutating phase gets one repair pass
// before the error propagates.
package orchestrator
