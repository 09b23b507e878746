// Package registry holds the deduplicated target list and the per-host
// "found" flags shared by every worker of a run.
package registry

import (
	"strings"
	"sync/atomic"

	"bytemomo/moray/internal/domain"
)

// HostStatus is the mutable state of one host. The flag only ever moves
// from false to true.
type HostStatus struct {
	found atomic.Bool
}

// Found reports whether a credential already succeeded for the host.
func (s *HostStatus) Found() bool { return s.found.Load() }

// MarkFound sets the flag and reports whether this call flipped it.
func (s *HostStatus) MarkFound() bool { return s.found.CompareAndSwap(false, true) }

// Registry is built once per run and is read-only afterwards except for the
// found flags.
type Registry struct {
	hosts    []domain.Host
	statuses []HostStatus
}

// New registers addresses in first-seen order. Duplicate addresses collapse
// onto the first occurrence unless keepDuplicates is set, in which case every
// entry gets its own index. Blank entries are ignored.
func New(addresses []string, keepDuplicates bool) *Registry {
	r := &Registry{}
	seen := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if !keepDuplicates {
			if _, ok := seen[addr]; ok {
				continue
			}
			seen[addr] = struct{}{}
		}
		r.hosts = append(r.hosts, domain.Host{Index: len(r.hosts), Address: addr})
	}
	r.statuses = make([]HostStatus, len(r.hosts))
	return r
}

// Hosts returns the registered hosts ordered by index.
func (r *Registry) Hosts() []domain.Host {
	out := make([]domain.Host, len(r.hosts))
	copy(out, r.hosts)
	return out
}

// Len is the number of registered hosts.
func (r *Registry) Len() int { return len(r.hosts) }

// Status returns the mutable status handle for the host at index.
func (r *Registry) Status(index int) *HostStatus { return &r.statuses[index] }

// MarkFound records a success for the host. Redundant calls are no-ops and
// return false.
func (r *Registry) MarkFound(index int) bool { return r.statuses[index].MarkFound() }

// IsFound is a non-blocking read of the host's flag.
func (r *Registry) IsFound(index int) bool { return r.statuses[index].Found() }

// FoundCount returns how many hosts have been resolved so far.
func (r *Registry) FoundCount() int {
	n := 0
	for i := range r.statuses {
		if r.statuses[i].Found() {
			n++
		}
	}
	return n
}
