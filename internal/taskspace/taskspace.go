// Package taskspace enumerates the (host, credential) pairs of a run.
package taskspace

import (
	"iter"

	"bytemomo/moray/internal/domain"
)

// Space is the cross product of hosts and credentials. It holds no cursor, so
// every call to All starts over.
type Space struct {
	hosts []domain.Host
	creds []domain.Credential
}

// Build captures hosts and credentials for enumeration.
func Build(hosts []domain.Host, creds []domain.Credential) Space {
	return Space{hosts: hosts, creds: creds}
}

// Len is the number of tasks All yields.
func (s Space) Len() int { return len(s.hosts) * len(s.creds) }

// Hosts returns the hosts in registry order.
func (s Space) Hosts() []domain.Host { return s.hosts }

// All yields every task, host-major and credential-minor.
func (s Space) All() iter.Seq[domain.ProbeTask] {
	return func(yield func(domain.ProbeTask) bool) {
		for _, h := range s.hosts {
			for _, c := range s.creds {
				if !yield(domain.ProbeTask{Host: h, Credential: c}) {
					return
				}
			}
		}
	}
}

// ForHost yields the credential row of a single host.
func (s Space) ForHost(h domain.Host) iter.Seq[domain.ProbeTask] {
	return func(yield func(domain.ProbeTask) bool) {
		for _, c := range s.creds {
			if !yield(domain.ProbeTask{Host: h, Credential: c}) {
				return
			}
		}
	}
}
