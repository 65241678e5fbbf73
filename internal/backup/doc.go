// Package backup persists point-in-time package manifests and an optional
// archive of the configuration directory. Every operation is independently
// best-effort: a failed artifact warns and the pipeline moves on.
package backup
