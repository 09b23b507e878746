// Package pool runs probe units on a fixed number of goroutines.
package pool

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
)

// ResolveSize turns the raw --threads value into a worker count. Anything that
// is not a positive integer falls back to the processing units available to
// the process.
func ResolveSize(raw string) int {
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

// Pool is a fixed-capacity worker pool. Submit blocks while every slot is
// busy; Drain waits for everything submitted so far.
type Pool struct {
	ants *ants.Pool
	wg   sync.WaitGroup
	log  *logrus.Entry
}

// New starts a pool of size workers. A size <= 0 falls back to GOMAXPROCS.
// Panics inside units are logged through log and do not kill the worker.
func New(size int, log *logrus.Entry) (*Pool, error) {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	p := &Pool{log: log.WithField("component", "pool")}

	ap, err := ants.NewPool(size,
		ants.WithPanicHandler(func(v any) {
			p.log.WithField("panic", v).Error("Worker unit panicked")
		}),
		ants.WithLogger(p.log),
	)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	p.ants = ap

	p.log.WithField("size", size).Debug("Worker pool created")
	return p, nil
}

// Submit queues a unit of work. Units are never dropped; the call waits for a
// free slot instead.
func (p *Pool) Submit(unit func()) error {
	p.wg.Add(1)
	err := p.ants.Submit(func() {
		defer p.wg.Done()
		unit()
	})
	if err != nil {
		p.wg.Done()
		return fmt.Errorf("submit unit: %w", err)
	}
	return nil
}

// Drain blocks until every submitted unit has finished and then releases the
// workers. The pool cannot be reused afterwards.
func (p *Pool) Drain() {
	p.wg.Wait()
	p.ants.Release()
	p.log.Debug("Worker pool drained")
}

// Cap is the number of workers.
func (p *Pool) Cap() int { return p.ants.Cap() }
