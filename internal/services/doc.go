// Package services holds the shared plumbing for upkeep's external tool
// clients: a command runner abstraction, sentinel error markers, and the Wrap
// helper that tags failures for classification with errors.Is.
//
// Every external invocation in upkeep flows through a CommandRunner so
// pipeline behavior can be asserted against recording fakes without touching
// the host.
package services
