// Package pkglock implements the exclusive-access waiter for the package
// database. It polls two independent contention signals, a process scan and
// fcntl lock queries, at a coarse fixed interval until both are clear or the
// configured timeout fires. The hard safety invariant: the waiter never
// forcibly clears a lock and never kills a holder.
package pkglock
