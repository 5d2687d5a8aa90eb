package track

import "github.com/polzovatel/hmm-tracker/internal/detect"

// DefaultMaxRetries bounds corrective discovery attempts per run.
const DefaultMaxRetries = 3

// Attempt is the mutable state of one run: retry count, accumulated task
// amendments and the last observed signal. Created at run start, owned by
// the governor, discarded at run end.
type Attempt struct {
	Retries    int
	Amendments []string
	LastSignal detect.Signal
}

// Governor bounds how many corrective discovery attempts are made.
type Governor struct {
	maxRetries int
}

func NewGovernor(maxRetries int) Governor {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return Governor{maxRetries: maxRetries}
}

// ShouldRetry reports whether another corrective attempt is allowed. Once the
// bound is reached it is false unconditionally.
func (g Governor) ShouldRetry(a *Attempt) bool {
	return a.Retries < g.maxRetries
}

// Amend consumes one retry and returns the goal augmented with a corrective
// instruction derived from the signal. Every call strictly increments the
// counter.
func (g Governor) Amend(a *Attempt, goal Goal, signal detect.Signal) Goal {
	a.Retries++
	a.LastSignal = signal
	a.Amendments = append(a.Amendments, amendmentFor(signal))

	out := goal
	out.Amendments = append([]string(nil), a.Amendments...)
	return out
}

func amendmentFor(signal detect.Signal) string {
	if signal == detect.ErrorLike {
		return "Previous attempt hit an error page; navigate back and retry the lookup."
	}
	return "Previous attempt finished without a usable result; make sure the voyage number and arrival date are visible before finishing, and answer exactly in the format \"Voyage: <voyage_number>, Arrival: <arrival_date>\"."
}
