package sequence

import (
	"fmt"
	"strings"
)

// Kind is the closed set of replayable browser interactions.
type Kind string

const (
	KindNavigate Kind = "navigate"
	KindClick    Kind = "click"
	KindType     Kind = "type"
	KindRead     Kind = "read"
)

// SlotBookingID marks a typed value that must be re-parameterized with the
// current run's booking id instead of being replayed literally.
const SlotBookingID = "booking_id"

// Action is one recorded UI interaction. Target is a URL for navigate and a
// selector otherwise. Value holds the literal payload for type actions; when
// Slot is set, Value only documents what was typed during discovery and the
// replayer substitutes the slot's current value.
type Action struct {
	Kind   Kind   `json:"kind"`
	Target string `json:"target,omitempty"`
	Value  string `json:"value,omitempty"`
	Slot   string `json:"slot,omitempty"`
}

// Recorded is an ordered, replayable capture of one successful run.
// Immutable once persisted; replaced wholesale on re-discovery.
type Recorded struct {
	BookingID string   `json:"booking_id"`
	Actions   []Action `json:"actions"`
}

// Validate checks structural well-formedness. The store refuses to persist or
// accept anything that fails here.
func Validate(rec Recorded) error {
	if len(rec.Actions) == 0 {
		return fmt.Errorf("sequence has no actions")
	}
	for i, a := range rec.Actions {
		if err := validateAction(a); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}

func validateAction(a Action) error {
	switch a.Kind {
	case KindNavigate:
		if strings.TrimSpace(a.Target) == "" {
			return fmt.Errorf("navigate without url")
		}
	case KindClick:
		if strings.TrimSpace(a.Target) == "" {
			return fmt.Errorf("click without target")
		}
	case KindType:
		if strings.TrimSpace(a.Target) == "" {
			return fmt.Errorf("type without target")
		}
		if a.Value == "" && a.Slot == "" {
			return fmt.Errorf("type without value or slot")
		}
	case KindRead:
		// target optional: empty selector means whole page
	default:
		return fmt.Errorf("unknown kind %q", a.Kind)
	}
	return nil
}
