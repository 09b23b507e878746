package reporter

import (
	"bytes"
	"strings"
	"testing"

	"bytemomo/moray/internal/domain"
)

func event(addr, user, pass string, outcome domain.Outcome) domain.Event {
	return domain.Event{
		Task: domain.ProbeTask{
			Host:       domain.Host{Address: addr},
			Credential: domain.Credential{Username: user, Password: pass},
		},
		Outcome: outcome,
	}
}

func TestReportFormats(t *testing.T) {
	tests := []struct {
		name      string
		verbosity int
		ev        domain.Event
		want      string
	}{
		{
			name: "success always printed",
			ev:   event("10.0.0.1", "root", "toor", domain.Succeeded()),
			want: "PASSED Host: 10.0.0.1, Combo: root:toor\n",
		},
		{
			name:      "failure printed when verbose",
			verbosity: 1,
			ev:        event("10.0.0.1", "root", "x", domain.Failed("connection refused")),
			want:      "FAILED Host: 10.0.0.1, Combo: root:x, Cause: connection refused\n",
		},
		{
			name: "failure dropped when quiet",
			ev:   event("10.0.0.1", "root", "x", domain.Failed("connection refused")),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			r := New(&buf, tt.verbosity)
			written, err := r.Report(tt.ev)
			if err != nil {
				t.Fatalf("Report() error: %v", err)
			}
			if written != (tt.want != "") {
				t.Errorf("written = %v for %q", written, tt.want)
			}
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestConsumeVerbosityGating(t *testing.T) {
	events := []domain.Event{
		event("h1", "u1", "p1", domain.Failed("denied")),
		event("h1", "u2", "p2", domain.Failed("denied")),
		event("h1", "u3", "p3", domain.Succeeded()),
		event("h2", "u1", "p1", domain.Failed("timeout")),
	}

	run := func(verbosity int) string {
		var buf bytes.Buffer
		ch := make(chan domain.Event, len(events))
		for _, ev := range events {
			ch <- ev
		}
		close(ch)
		New(&buf, verbosity).Consume(ch)
		return buf.String()
	}

	quiet := run(0)
	if strings.Contains(quiet, "FAILED") {
		t.Errorf("verbosity 0 must not print failures:\n%s", quiet)
	}
	if strings.Count(quiet, "PASSED") != 1 {
		t.Errorf("expected one PASSED line:\n%s", quiet)
	}

	for _, v := range []int{1, 3} {
		out := run(v)
		if strings.Count(out, "FAILED") != 3 {
			t.Errorf("verbosity %d: expected 3 FAILED lines:\n%s", v, out)
		}
		if strings.Count(out, "\n") != 4 {
			t.Errorf("verbosity %d: expected 4 lines:\n%s", v, out)
		}
	}
}

func TestConsumeCountsLines(t *testing.T) {
	ch := make(chan domain.Event, 2)
	ch <- event("h1", "u1", "p1", domain.Failed("denied"))
	ch <- event("h1", "u2", "p2", domain.Succeeded())
	close(ch)

	var buf bytes.Buffer
	if n := New(&buf, 0).Consume(ch); n != 1 {
		t.Fatalf("expected 1 line written, got %d", n)
	}
}
