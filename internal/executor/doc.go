// Package executor sequences the update pipeline's mutating phase. The
// index refresh is the single fatal step; upgrades, cleanup, application
// updates, and journal retention are each independently attempted and
// degrade to warnings, maximizing forward progress on a best-effort
// maintenance task.
package executor
