package preflight

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"
)

// CheckPrivilege verifies the process runs with administrative rights.
func CheckPrivilege() Result {
	const name = "Privilege"
	if euid := os.Geteuid(); euid != 0 {
		return Result{
			Name:   name,
			Detail: fmt.Sprintf("running as uid %d, root required", euid),
			Err:    fmt.Errorf("%w: effective uid %d", ErrPrivilege, euid),
		}
	}
	return Result{Name: name, Passed: true, Detail: "running as root"}
}

// CheckConnectivity dials the ordered probe targets and passes on the first
// one reachable within the per-attempt deadline.
func CheckConnectivity(ctx context.Context, targets []string, perAttempt time.Duration) Result {
	const name = "Connectivity"
	if perAttempt <= 0 {
		perAttempt = 2 * time.Second
	}
	dialer := net.Dialer{Timeout: perAttempt}
	for _, target := range targets {
		conn, err := dialer.DialContext(ctx, "tcp", target)
		if err != nil {
			continue
		}
		_ = conn.Close()
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", target)}
	}
	return Result{
		Name:   name,
		Detail: fmt.Sprintf("none of %d probe targets reachable", len(targets)),
		Err:    fmt.Errorf("%w: all %d probe targets failed", ErrConnectivity, len(targets)),
	}
}

// CheckFreeSpace verifies available space on the filesystem hosting path.
func CheckFreeSpace(path string, minMB int) Result {
	const name = "Free space"
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{
			Name:   name,
			Detail: fmt.Sprintf("statfs %s: %v", path, err),
			Err:    fmt.Errorf("%w: statfs %s: %v", ErrInsufficientSpace, path, err),
		}
	}
	availableBytes := stat.Bavail * uint64(stat.Bsize)
	requiredBytes := uint64(minMB) * 1024 * 1024
	if availableBytes < requiredBytes {
		return Result{
			Name: name,
			Detail: fmt.Sprintf("%s free on %s, %s required",
				humanize.IBytes(availableBytes), path, humanize.IBytes(requiredBytes)),
			Err: fmt.Errorf("%w: %s available on %s, %s required",
				ErrInsufficientSpace, humanize.IBytes(availableBytes), path, humanize.IBytes(requiredBytes)),
		}
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%s free on %s", humanize.IBytes(availableBytes), path),
	}
}
