// Package apt wraps the Debian package manager tools (apt-get, dpkg,
// dpkg-query, apt-mark) behind typed operations. Every invocation runs
// non-interactively with conffile-keep options and apt's own short lock
// sub-timeout; callers classify failures with the services sentinels.
package apt
