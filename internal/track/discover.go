package track

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/polzovatel/hmm-tracker/internal/agent"
	"github.com/polzovatel/hmm-tracker/internal/browser"
	"github.com/polzovatel/hmm-tracker/internal/detect"
	"github.com/polzovatel/hmm-tracker/internal/sequence"
	"github.com/polzovatel/hmm-tracker/internal/snapshot"
)

// DefaultMaxSteps caps policy steps within a single discovery attempt.
const DefaultMaxSteps = 20

// ObserveFunc produces a page observation for the policy.
type ObserveFunc func(ctx context.Context) (snapshot.Summary, error)

// Discoverer derives a fresh action sequence by driving the action-selection
// policy step by step, recording each performed action.
type Discoverer struct {
	driver   browser.Driver
	policy   agent.Policy
	observe  ObserveFunc
	gov      Governor
	maxSteps int
	logger   zerolog.Logger
}

func NewDiscoverer(driver browser.Driver, policy agent.Policy, observe ObserveFunc, gov Governor, maxSteps int, logger zerolog.Logger) *Discoverer {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Discoverer{
		driver:   driver,
		policy:   policy,
		observe:  observe,
		gov:      gov,
		maxSteps: maxSteps,
		logger:   logger,
	}
}

// Discover runs discovery attempts until one succeeds or the governor's
// retry budget is exhausted. Each retry carries the accumulated corrective
// context forward rather than restarting from a blank goal. A non-nil error
// is a terminal, reported outcome for the run.
func (d *Discoverer) Discover(ctx context.Context, goal Goal, att *Attempt) (Result, sequence.Recorded, error) {
	current := goal
	for {
		res, rec, sig, err := d.attempt(ctx, current)
		if err == nil {
			res.LastSignal = sig
			return res, rec, nil
		}
		if ctx.Err() != nil {
			return Result{}, sequence.Recorded{}, ctx.Err()
		}
		att.LastSignal = sig
		if !d.gov.ShouldRetry(att) {
			return Result{}, sequence.Recorded{}, fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, att.Retries+1, err)
		}
		current = d.gov.Amend(att, goal, sig)
		d.logger.Warn().Err(err).Int("retry", att.Retries).Str("signal", sig.String()).Msg("discovery attempt failed, retrying with amended goal")
	}
}

// attempt runs one observe-decide-act loop until the policy reports
// completion, the detector flags an error page, or the step cap is hit.
func (d *Discoverer) attempt(ctx context.Context, goal Goal) (Result, sequence.Recorded, detect.Signal, error) {
	rec := sequence.Recorded{BookingID: goal.BookingID}
	var history []agent.Step

	for step := 1; step <= d.maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return Result{}, rec, detect.Clean, err
		}

		obs, err := d.observe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, rec, detect.Clean, err
			}
			d.logger.Debug().Err(err).Int("step", step).Msg("observation failed, continuing with empty snapshot")
			obs = snapshot.Summary{URL: d.driver.CurrentURL()}
		}

		dec, err := d.policy.Next(ctx, goal.Prompt(), obs, history)
		if err != nil {
			return Result{}, rec, detect.Clean, fmt.Errorf("policy step %d: %w", step, err)
		}

		if dec.Finish {
			return d.finish(ctx, goal, rec, dec.Message)
		}

		d.logger.Info().Int("step", step).Str("kind", string(dec.Action.Kind)).Str("target", dec.Action.Target).Msg("performing action")
		if err := perform(ctx, d.driver, dec.Action); err != nil {
			if ctx.Err() != nil {
				return Result{}, rec, detect.Clean, err
			}
			// Feed the failure back to the policy instead of aborting;
			// the failed action is not recorded.
			d.logger.Warn().Err(err).Int("step", step).Msg("action failed")
			history = append(history, agent.Step{Action: dec.Action, Result: "error: " + err.Error()})
			continue
		}
		history = append(history, agent.Step{Action: dec.Action, Result: "ok"})
		rec.Actions = append(rec.Actions, markSlot(dec.Action, goal.BookingID))

		if sig, err := d.inspect(ctx); err != nil {
			return Result{}, rec, detect.Clean, err
		} else if sig == detect.ErrorLike {
			return Result{}, rec, sig, fmt.Errorf("error signal after step %d at %s", step, d.driver.CurrentURL())
		}
	}
	return Result{}, rec, detect.Clean, fmt.Errorf("no completion within %d steps", d.maxSteps)
}

// finish validates the completed attempt: final page must read clean and the
// result fields must be extractable from the policy's message or the page.
func (d *Discoverer) finish(ctx context.Context, goal Goal, rec sequence.Recorded, message string) (Result, sequence.Recorded, detect.Signal, error) {
	text, err := d.driver.ReadVisibleText(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, rec, detect.Clean, err
		}
		text = ""
	}
	if sig := detect.Inspect(d.driver.CurrentURL(), text); sig == detect.ErrorLike {
		return Result{}, rec, sig, fmt.Errorf("error signal on completion at %s", d.driver.CurrentURL())
	}

	voyage, arrival, ok := agent.ParseResult(message)
	if !ok {
		voyage, arrival, ok = extractFields(text)
	}
	if !ok {
		return Result{}, rec, detect.Clean, fmt.Errorf("%w: completion message %q", ErrNoResult, message)
	}
	return Result{
		BookingID: goal.BookingID,
		Voyage:    voyage,
		Arrival:   arrival,
	}, rec, detect.Clean, nil
}

// markSlot tags the typed booking id as a substitution slot so replay against
// a different id rewrites it.
func markSlot(a sequence.Action, bookingID string) sequence.Action {
	if a.Kind == sequence.KindType && a.Value == bookingID {
		a.Slot = sequence.SlotBookingID
	}
	return a
}

// inspect classifies the current page state.
func (d *Discoverer) inspect(ctx context.Context) (detect.Signal, error) {
	text, err := d.driver.ReadVisibleText(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return detect.Clean, err
		}
		text = ""
	}
	return detect.Inspect(d.driver.CurrentURL(), text), nil
}
