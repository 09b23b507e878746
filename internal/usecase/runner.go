// Package usecase runs one credential-testing session from configuration to
// drained pool.
package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"bytemomo/moray/internal/config"
	"bytemomo/moray/internal/dispatcher"
	"bytemomo/moray/internal/domain"
	"bytemomo/moray/internal/loader"
	"bytemomo/moray/internal/pool"
	"bytemomo/moray/internal/precheck"
	"bytemomo/moray/internal/registry"
	"bytemomo/moray/internal/reporter"
	"bytemomo/moray/internal/taskspace"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Runner struct {
	Prober domain.Prober
	// Precheck filters the host list before registration. Nil disables it.
	Precheck precheck.HostFilter
	// Out receives the PASSED/FAILED lines. Defaults to stdout.
	Out io.Writer
	Log *logrus.Entry
}

// Summary describes a finished run.
type Summary struct {
	RunID       string
	Hosts       int
	Credentials int
	Tasks       int
	Threads     int
	Found       int
	Lines       int
	Stats       dispatcher.Stats
	Elapsed     time.Duration
}

// Run loads the inputs, probes every (host, credential) pair and returns once
// every outcome has been reported. Configuration errors are returned before
// any probe is started.
func (r Runner) Run(ctx context.Context, cfg config.Config) (Summary, error) {
	start := time.Now()
	sum := Summary{RunID: uuid.NewString()}

	if r.Prober == nil {
		return sum, fmt.Errorf("runner: no prober configured")
	}
	if err := cfg.Validate(); err != nil {
		return sum, fmt.Errorf("invalid configuration: %w", err)
	}
	strategy, err := dispatcher.ParseStrategy(cfg.Strategy)
	if err != nil {
		return sum, err
	}

	log := r.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("run_id", sum.RunID)

	inputs, err := loader.Load(ctx, cfg.Hostlist, cfg.Wordlist)
	if err != nil {
		return sum, err
	}
	log.WithFields(logrus.Fields{
		"hosts":       len(inputs.Hosts),
		"credentials": len(inputs.Credentials),
	}).Info("Inputs loaded")

	addresses := inputs.Hosts
	if r.Precheck != nil {
		addresses, err = r.Precheck.Filter(ctx, addresses)
		if err != nil {
			return sum, fmt.Errorf("precheck: %w", err)
		}
	}

	reg := registry.New(addresses, cfg.KeepDuplicates)
	space := taskspace.Build(reg.Hosts(), inputs.Credentials)
	sum.Hosts = reg.Len()
	sum.Credentials = len(inputs.Credentials)
	sum.Tasks = space.Len()
	sum.Threads = pool.ResolveSize(cfg.Threads)

	workers, err := pool.New(sum.Threads, log)
	if err != nil {
		return sum, err
	}

	out := r.Out
	if out == nil {
		out = os.Stdout
	}
	events := make(chan domain.Event, sum.Threads)
	rep := reporter.New(out, cfg.Verbose)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sum.Lines = rep.Consume(events)
	}()

	d := &dispatcher.Dispatcher{
		Registry: reg,
		Pool:     workers,
		Prober:   r.Prober,
		Events:   events,
		Strategy: strategy,
		Log:      log,
	}
	dispatchErr := d.Dispatch(ctx, space)

	workers.Drain()
	close(events)
	wg.Wait()

	sum.Stats = d.Stats()
	sum.Found = reg.FoundCount()
	sum.Elapsed = time.Since(start)

	log.WithFields(logrus.Fields{
		"hosts":      sum.Hosts,
		"tasks":      sum.Tasks,
		"threads":    sum.Threads,
		"found":      sum.Found,
		"executed":   sum.Stats.Executed,
		"skipped":    sum.Stats.Skipped,
		"suppressed": sum.Stats.Suppressed,
		"elapsed":    sum.Elapsed.String(),
	}).Info("Run finished")

	if dispatchErr != nil {
		return sum, dispatchErr
	}
	return sum, nil
}
