package track

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/polzovatel/hmm-tracker/internal/browser"
	"github.com/polzovatel/hmm-tracker/internal/detect"
	"github.com/polzovatel/hmm-tracker/internal/sequence"
)

// Replayer executes a previously recorded sequence against a new booking id.
type Replayer struct {
	driver browser.Driver
	logger zerolog.Logger
}

func NewReplayer(driver browser.Driver, logger zerolog.Logger) *Replayer {
	return &Replayer{driver: driver, logger: logger}
}

// Replay runs every recorded action in order, substituting the goal's booking
// id into slot-marked values, then inspects the final page. Any step failure
// or an error-like final signal returns ErrReplayFailed; the caller falls
// back to discovery.
func (r *Replayer) Replay(ctx context.Context, rec sequence.Recorded, goal Goal) (Result, error) {
	for i, a := range rec.Actions {
		act := substitute(a, goal.BookingID)
		r.logger.Debug().Int("step", i+1).Str("kind", string(act.Kind)).Str("target", act.Target).Msg("replaying action")
		if err := perform(ctx, r.driver, act); err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			return Result{}, fmt.Errorf("%w: action %d (%s): %v", ErrReplayFailed, i+1, act.Kind, err)
		}
	}

	text, err := r.driver.ReadVisibleText(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, fmt.Errorf("%w: read final page: %v", ErrReplayFailed, err)
	}
	url := r.driver.CurrentURL()
	if sig := detect.Inspect(url, text); sig == detect.ErrorLike {
		return Result{}, fmt.Errorf("%w: error signal on final page %s", ErrReplayFailed, url)
	}

	voyage, arrival, ok := extractFields(text)
	if !ok {
		return Result{}, fmt.Errorf("%w: %v on final page", ErrReplayFailed, ErrNoResult)
	}
	return Result{
		BookingID: goal.BookingID,
		Voyage:    voyage,
		Arrival:   arrival,
		Replayed:  true,
	}, nil
}

// substitute re-parameterizes slot-marked values with the current run's
// booking id. Literal values are never altered, even when they happen to
// equal the recorded id.
func substitute(a sequence.Action, bookingID string) sequence.Action {
	if a.Slot == sequence.SlotBookingID {
		a.Value = bookingID
	}
	return a
}

// perform dispatches one action to the browser engine.
func perform(ctx context.Context, d browser.Driver, a sequence.Action) error {
	switch a.Kind {
	case sequence.KindNavigate:
		return d.Navigate(ctx, a.Target)
	case sequence.KindClick:
		return d.Click(ctx, a.Target)
	case sequence.KindType:
		return d.Type(ctx, a.Target, a.Value)
	case sequence.KindRead:
		_, err := d.ReadVisibleText(ctx)
		return err
	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
}
