package preflight

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"testing"
	"time"
)

func TestCheckConnectivityFirstTargetWins(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	result := CheckConnectivity(context.Background(),
		[]string{listener.Addr().String(), "127.0.0.1:1"},
		time.Second)
	if !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}
	if !strings.Contains(result.Detail, listener.Addr().String()) {
		t.Fatalf("expected reachable target in detail, got %q", result.Detail)
	}
}

func TestCheckConnectivityFallsBackThroughTargets(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	// First target refuses; the second responds.
	result := CheckConnectivity(context.Background(),
		[]string{"127.0.0.1:1", listener.Addr().String()},
		time.Second)
	if !result.Passed {
		t.Fatalf("expected fallback pass, got %+v", result)
	}
}

func TestCheckConnectivityAllUnreachable(t *testing.T) {
	result := CheckConnectivity(context.Background(),
		[]string{"127.0.0.1:1", "127.0.0.1:2"},
		100*time.Millisecond)
	if result.Passed {
		t.Fatal("expected failure")
	}
	if !errors.Is(result.Err, ErrConnectivity) {
		t.Fatalf("expected connectivity sentinel, got %v", result.Err)
	}
}

func TestCheckFreeSpacePassesForZeroMinimum(t *testing.T) {
	result := CheckFreeSpace(t.TempDir(), 0)
	if !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}
}

func TestCheckFreeSpaceBelowMinimum(t *testing.T) {
	// No filesystem has this much headroom.
	result := CheckFreeSpace(t.TempDir(), 1<<30)
	if result.Passed {
		t.Fatal("expected failure")
	}
	if !errors.Is(result.Err, ErrInsufficientSpace) {
		t.Fatalf("expected space sentinel, got %v", result.Err)
	}
	if !strings.Contains(result.Detail, "required") {
		t.Fatalf("expected requirement in detail: %q", result.Detail)
	}
}

func TestCheckFreeSpaceMissingPath(t *testing.T) {
	result := CheckFreeSpace("/does/not/exist", 1)
	if result.Passed {
		t.Fatal("expected failure for missing path")
	}
	if !errors.Is(result.Err, ErrInsufficientSpace) {
		t.Fatalf("expected space sentinel, got %v", result.Err)
	}
}

func TestCheckPrivilegeMatchesEuid(t *testing.T) {
	result := CheckPrivilege()
	if os.Geteuid() == 0 {
		if !result.Passed {
			t.Fatalf("expected pass as root, got %+v", result)
		}
	} else {
		if result.Passed {
			t.Fatal("expected failure without root")
		}
		if !errors.Is(result.Err, ErrPrivilege) {
			t.Fatalf("expected privilege sentinel, got %v", result.Err)
		}
	}
}

func TestFirstError(t *testing.T) {
	if err := FirstError([]Result{{Passed: true}, {Passed: true}}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	sentinel := errors.New("boom")
	err := FirstError([]Result{{Passed: true}, {Passed: false, Err: sentinel}})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
}
