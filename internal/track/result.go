package track

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/polzovatel/hmm-tracker/internal/detect"
)

var (
	// ErrReplayFailed marks a recorded-sequence replay that could not
	// complete cleanly. A normal outcome; triggers fallback to discovery.
	ErrReplayFailed = errors.New("replay failed")
	// ErrRetryExhausted marks a run whose discovery retry budget ran out.
	ErrRetryExhausted = errors.New("retry budget exhausted")
	// ErrNoResult marks a clean page from which no voyage/arrival could be
	// extracted.
	ErrNoResult = errors.New("no results found")
)

// Result is the output of one tracking run.
type Result struct {
	BookingID  string
	Voyage     string
	Arrival    string
	Replayed   bool // true when the stored sequence satisfied the run
	LastSignal detect.Signal
	Err        error // nil on success; terminal failure reason otherwise
}

func (r Result) OK() bool { return r.Err == nil }

func (r Result) Summary() string {
	if r.OK() {
		return fmt.Sprintf("Voyage: %s, Arrival: %s", r.Voyage, r.Arrival)
	}
	return fmt.Sprintf("tracking %s failed: %v", r.BookingID, r.Err)
}

var (
	voyagePattern  = regexp.MustCompile(`(?i)voyage[^:\n]*:\s*([^\n,]+)`)
	arrivalPattern = regexp.MustCompile(`(?i)arrival[^:\n]*:\s*([^\n,]+)`)
)

// extractFields pulls the voyage number and arrival date out of visible page
// text with labeled values, e.g. "Voyage No: HMM MIR 0012W".
func extractFields(text string) (voyage, arrival string, ok bool) {
	vm := voyagePattern.FindStringSubmatch(text)
	am := arrivalPattern.FindStringSubmatch(text)
	if vm == nil || am == nil {
		return "", "", false
	}
	return strings.TrimSpace(vm[1]), strings.TrimSpace(am[1]), true
}
