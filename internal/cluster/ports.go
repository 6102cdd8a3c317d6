package cluster

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// ErrNoFreePort is returned when every port in the range is reserved or in use.
var ErrNoFreePort = errors.New("no free host port in range")

// PortAllocator hands out host ports from a fixed range. Reservations are
// advisory file locks, so concurrent test processes on the same host never
// receive the same port.
type PortAllocator struct {
	dir      string
	from, to int

	mu    sync.Mutex
	held  map[int]*flock.Flock
	probe func(port int) bool
}

// NewPortAllocator reserves ports in [from, to], recording locks under dir.
func NewPortAllocator(dir string, from, to int) (*PortAllocator, error) {
	if from < 1 || to > 65535 || from > to {
		return nil, fmt.Errorf("invalid port range %d-%d", from, to)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating port lock directory: %w", err)
	}
	return &PortAllocator{
		dir:   dir,
		from:  from,
		to:    to,
		held:  map[int]*flock.Flock{},
		probe: portFree,
	}, nil
}

// Reserve returns a port that is locked by this allocator and currently free on the host.
func (a *PortAllocator) Reserve() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for port := a.from; port <= a.to; port++ {
		if _, mine := a.held[port]; mine {
			continue
		}
		fl := flock.New(filepath.Join(a.dir, strconv.Itoa(port)+".lock"))
		locked, err := fl.TryLock()
		if err != nil {
			return 0, fmt.Errorf("locking port %d: %w", port, err)
		}
		if !locked {
			continue
		}
		if !a.probe(port) {
			_ = fl.Unlock()
			continue
		}
		a.held[port] = fl
		return port, nil
	}
	return 0, fmt.Errorf("%w %d-%d", ErrNoFreePort, a.from, a.to)
}

// Release gives a port back. Releasing an unknown port is a no-op.
func (a *PortAllocator) Release(port int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if fl, ok := a.held[port]; ok {
		_ = fl.Unlock()
		delete(a.held, port)
	}
}

// ReleaseAll gives back every port held by this allocator.
func (a *PortAllocator) ReleaseAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for port, fl := range a.held {
		_ = fl.Unlock()
		delete(a.held, port)
	}
}

// Held returns the number of ports currently reserved.
func (a *PortAllocator) Held() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.held)
}

func portFree(port int) bool {
	l, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = l.Close()
	return true
}

// bindPorts maps container ports to host ports reserved from a. Specs that
// already carry a host part are passed through unchanged.
func bindPorts(a *PortAllocator, specs []string) (bound []string, hostPorts map[string]int, err error) {
	hostPorts = map[string]int{}
	for _, spec := range specs {
		if strings.Contains(spec, ":") {
			bound = append(bound, spec)
			continue
		}
		if a == nil {
			bound = append(bound, spec)
			continue
		}
		port, err := a.Reserve()
		if err != nil {
			for _, p := range hostPorts {
				a.Release(p)
			}
			return nil, nil, err
		}
		hostPorts[spec] = port
		bound = append(bound, strconv.Itoa(port)+":"+spec)
	}
	return bound, hostPorts, nil
}
