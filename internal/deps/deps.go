// Package deps reports the availability of the external tools upkeep drives.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external tool upkeep relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements returns the tool set for a standard update run.
func Requirements() []Requirement {
	return []Requirement{
		{Name: "apt-get", Command: "apt-get", Description: "Package index refresh and upgrades"},
		{Name: "dpkg", Command: "dpkg", Description: "Package database repair"},
		{Name: "dpkg-query", Command: "dpkg-query", Description: "Installed-package snapshots"},
		{Name: "apt-mark", Command: "apt-mark", Description: "Manual-package manifest for backups"},
		{Name: "systemctl", Command: "systemctl", Description: "System restart"},
		{Name: "unattended-upgrade", Command: "unattended-upgrade", Description: "Security-only upgrades (installed on demand)", Optional: true},
		{Name: "flatpak", Command: "flatpak", Description: "Sandboxed application updates", Optional: true},
		{Name: "journalctl", Command: "journalctl", Description: "Journal retention vacuum", Optional: true},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
