package pkglock

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// HostProbe inspects the live system: a /proc scan for package-manager
// processes and read-only fcntl lock queries on the dpkg/apt lock files.
type HostProbe struct {
	lockPaths    []string
	processNames map[string]struct{}
	procRoot     string
}

// NewHostProbe builds a probe over the configured lock files and process
// names.
func NewHostProbe(lockPaths, processNames []string) *HostProbe {
	names := make(map[string]struct{}, len(processNames))
	for _, name := range processNames {
		names[name] = struct{}{}
	}
	return &HostProbe{
		lockPaths:    lockPaths,
		processNames: names,
		procRoot:     "/proc",
	}
}

// Check reports busy when either a package-manager process is running or a
// lock file is held by another process.
func (p *HostProbe) Check(_ context.Context) Status {
	if name, pid, ok := p.scanProcesses(); ok {
		return Status{Busy: true, Detail: fmt.Sprintf("process %s (pid %d) running", name, pid)}
	}
	for _, path := range p.lockPaths {
		if pid, held := lockHolder(path); held {
			return Status{Busy: true, Detail: fmt.Sprintf("%s held by pid %d", path, pid)}
		}
	}
	return Status{}
}

func (p *HostProbe) scanProcesses() (string, int, bool) {
	entries, err := os.ReadDir(p.procRoot)
	if err != nil {
		return "", 0, false
	}
	self := os.Getpid()
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid == self {
			continue
		}
		comm, err := os.ReadFile(filepath.Join(p.procRoot, entry.Name(), "comm"))
		if err != nil {
			continue
		}
		name := strings.TrimSpace(string(comm))
		if _, ok := p.processNames[name]; ok {
			return name, pid, true
		}
	}
	return "", 0, false
}

// lockHolder queries a lock file with fcntl F_GETLK. The query is read-only:
// it reports the conflicting holder without ever acquiring the lock itself.
// A missing or unreadable lock file counts as free.
func lockHolder(path string) (int32, bool) {
	file, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return 0, false
	}
	defer file.Close()

	lock := unix.Flock_t{
		Type:   unix.F_WRLCK,
		Whence: int16(io.SeekStart),
	}
	if err := unix.FcntlFlock(file.Fd(), unix.F_GETLK, &lock); err != nil {
		return 0, false
	}
	if lock.Type == unix.F_UNLCK {
		return 0, false
	}
	return lock.Pid, true
}
