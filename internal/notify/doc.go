// Package notify delivers run events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. The pipeline depends only on the Service interface, so alternate
// transports slot in without touching orchestration code.
package notify
