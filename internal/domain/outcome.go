package domain

// Outcome is the result of a single probe: success, or failure with a reason.
type Outcome struct {
	Success bool
	Reason  string
}

// Succeeded builds a success outcome.
func Succeeded() Outcome { return Outcome{Success: true} }

// Failed builds a failure outcome carrying the probe's reason.
func Failed(reason string) Outcome { return Outcome{Reason: reason} }

// Event is emitted by the dispatcher for every reported probe.
type Event struct {
	Task    ProbeTask
	Outcome Outcome
}
