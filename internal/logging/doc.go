// Package logging assembles the structured slog loggers used across upkeep.
//
// It owns the console and JSON handlers, the output tee that duplicates every
// run's output into its log file, shared attribute helpers, and a no-op logger
// for tests. Prefer these constructors over hand-rolled slog setup so every
// component emits lines with the same shape.
package logging
