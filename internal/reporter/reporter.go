// Package reporter prints the outcome lines of a run.
package reporter

import (
	"fmt"
	"io"

	"bytemomo/moray/internal/domain"

	"github.com/sirupsen/logrus"
)

// Reporter prints probe outcomes. It is meant to be driven by a single
// goroutine through Consume, so writes never interleave mid-line.
type Reporter struct {
	out       io.Writer
	verbosity int
}

// New returns a reporter writing to out. Failures are printed only when
// verbosity is positive.
func New(out io.Writer, verbosity int) *Reporter {
	return &Reporter{out: out, verbosity: verbosity}
}

// Report writes the line for ev. Failures are dropped unless verbosity > 0.
// The returned bool tells whether a line was written.
func (r *Reporter) Report(ev domain.Event) (bool, error) {
	host := ev.Task.Host.Address
	cred := ev.Task.Credential

	if ev.Outcome.Success {
		_, err := fmt.Fprintf(r.out, "PASSED Host: %s, Combo: %s:%s\n", host, cred.Username, cred.Password)
		return err == nil, err
	}
	if r.verbosity <= 0 {
		return false, nil
	}
	_, err := fmt.Fprintf(r.out, "FAILED Host: %s, Combo: %s:%s, Cause: %s\n", host, cred.Username, cred.Password, ev.Outcome.Reason)
	return err == nil, err
}

// Consume reports every event until the channel is closed and returns the
// number of lines written.
func (r *Reporter) Consume(events <-chan domain.Event) int {
	lines := 0
	for ev := range events {
		written, err := r.Report(ev)
		if err != nil {
			logrus.WithError(err).WithField("host", ev.Task.Host.Address).Error("Failed to write report line")
			continue
		}
		if written {
			lines++
		}
	}
	return lines
}
