// Package preflight holds the guards that run before any mutating action:
// privilege, network reachability, and free storage. Guard failures are
// fatal; everything here is observation only.
package preflight
