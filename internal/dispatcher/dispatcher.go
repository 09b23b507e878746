// Package dispatcher feeds probe tasks into the worker pool and applies the
// per-host short-circuit: a host that already yielded a credential is not
// probed again, and failures that finish after the success are not reported.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"bytemomo/moray/internal/domain"
	"bytemomo/moray/internal/registry"
	"bytemomo/moray/internal/taskspace"

	"github.com/sirupsen/logrus"
)

// Strategy selects how tasks are grouped into pool units.
type Strategy string

const (
	// StrategyPerCredential submits one unit per host/credential pair, so the
	// credentials of a single host are tried in parallel.
	StrategyPerCredential Strategy = "credential"
	// StrategyPerHost submits one unit per host that walks its credentials in
	// order and stops at the first success.
	StrategyPerHost Strategy = "host"
)

// ErrUnknownStrategy is returned by ParseStrategy.
var ErrUnknownStrategy = errors.New("unknown dispatch strategy")

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyPerCredential:
		return StrategyPerCredential, nil
	case StrategyPerHost:
		return StrategyPerHost, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// Submitter is the part of the worker pool the dispatcher needs.
type Submitter interface {
	Submit(unit func()) error
}

// Stats counts what happened to the tasks of a run.
type Stats struct {
	Executed   int64
	Skipped    int64
	Suppressed int64
	Passed     int64
	Failed     int64
}

type counters struct {
	executed   atomic.Int64
	skipped    atomic.Int64
	suppressed atomic.Int64
	passed     atomic.Int64
	failed     atomic.Int64
}

type Dispatcher struct {
	Registry *registry.Registry
	Pool     Submitter
	Prober   domain.Prober
	Events   chan<- domain.Event
	Strategy Strategy
	Log      *logrus.Entry

	stats counters
}

// Dispatch submits the whole task space. It returns once every unit has been
// handed to the pool; the caller drains the pool to wait for completion.
func (d *Dispatcher) Dispatch(ctx context.Context, space taskspace.Space) error {
	log := d.logger()
	log.WithFields(logrus.Fields{
		"tasks":    space.Len(),
		"hosts":    len(space.Hosts()),
		"strategy": d.strategy(),
	}).Info("Dispatching probe tasks")

	if d.strategy() == StrategyPerHost {
		for _, h := range space.Hosts() {
			row := space.ForHost(h)
			if err := d.Pool.Submit(func() {
				for task := range row {
					if d.run(ctx, task) {
						return
					}
				}
			}); err != nil {
				return fmt.Errorf("dispatch host %s: %w", h.Address, err)
			}
		}
		return nil
	}

	for task := range space.All() {
		if err := d.Pool.Submit(func() { d.run(ctx, task) }); err != nil {
			return fmt.Errorf("dispatch %s on %s: %w", task.Credential.Username, task.Host.Address, err)
		}
	}
	return nil
}

// run executes one task and reports whether the host is resolved afterwards.
func (d *Dispatcher) run(ctx context.Context, task domain.ProbeTask) bool {
	idx := task.Host.Index
	if d.Registry.IsFound(idx) {
		d.stats.skipped.Add(1)
		return true
	}

	d.stats.executed.Add(1)
	err := d.Prober.Probe(ctx, task.Host.Address, task.Credential.Username, task.Credential.Password)
	if err == nil {
		// A second success for the same host is still reported.
		first := d.Registry.MarkFound(idx)
		d.stats.passed.Add(1)
		d.logger().WithFields(logrus.Fields{
			"host":     task.Host.Address,
			"username": task.Credential.Username,
			"first":    first,
		}).Debug("Credential accepted")
		d.Events <- domain.Event{Task: task, Outcome: domain.Succeeded()}
		return true
	}

	if d.Registry.IsFound(idx) {
		d.stats.suppressed.Add(1)
		return true
	}
	d.stats.failed.Add(1)
	d.Events <- domain.Event{Task: task, Outcome: domain.Failed(err.Error())}
	return false
}

// Stats returns a snapshot of the counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Executed:   d.stats.executed.Load(),
		Skipped:    d.stats.skipped.Load(),
		Suppressed: d.stats.suppressed.Load(),
		Passed:     d.stats.passed.Load(),
		Failed:     d.stats.failed.Load(),
	}
}

func (d *Dispatcher) strategy() Strategy {
	if d.Strategy == "" {
		return StrategyPerCredential
	}
	return d.Strategy
}

func (d *Dispatcher) logger() *logrus.Entry {
	if d.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return d.Log
}
