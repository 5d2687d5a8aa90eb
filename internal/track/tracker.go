package track

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/polzovatel/hmm-tracker/internal/agent"
	"github.com/polzovatel/hmm-tracker/internal/browser"
	"github.com/polzovatel/hmm-tracker/internal/sequence"
)

// Config bounds one tracker instance. Constructed at entry and passed in;
// no ambient globals.
type Config struct {
	MaxRetries int
	MaxSteps   int
}

// Tracker is the replay-or-discover controller for one booking at a time.
type Tracker struct {
	store      *sequence.Store
	replayer   *Replayer
	discoverer *Discoverer
	logger     zerolog.Logger
}

func New(driver browser.Driver, policy agent.Policy, observe ObserveFunc, store *sequence.Store, cfg Config, logger zerolog.Logger) *Tracker {
	gov := NewGovernor(cfg.MaxRetries)
	return &Tracker{
		store:      store,
		replayer:   NewReplayer(driver, logger.With().Str("comp", "replay").Logger()),
		discoverer: NewDiscoverer(driver, policy, observe, gov, cfg.MaxSteps, logger.With().Str("comp", "discover").Logger()),
		logger:     logger,
	}
}

// Run tracks one booking end to end: replay the stored sequence when one
// exists, otherwise (or on replay failure) fall back to discovery under the
// retry governor. A successful discovery overwrites the store. All expected
// failures come back inside the Result; only cancellation escapes as-is.
func (t *Tracker) Run(ctx context.Context, bookingID string) Result {
	logger := t.logger.With().Str("run_id", uuid.NewString()).Str("booking_id", bookingID).Logger()
	goal := NewGoal(bookingID)
	att := &Attempt{}

	rec, ok, err := t.store.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Result{BookingID: bookingID, Err: err}
		}
		// Corrupt store reads as absent; discovery will rebuild it.
		logger.Warn().Err(err).Msg("stored sequence unusable, treating as absent")
		ok = false
	}

	replayTried := false
	if ok {
		replayTried = true
		logger.Info().Int("actions", len(rec.Actions)).Str("recorded_for", rec.BookingID).Msg("replaying stored sequence")
		res, replayErr := t.replayer.Replay(ctx, rec, goal)
		if replayErr == nil {
			logger.Info().Str("voyage", res.Voyage).Str("arrival", res.Arrival).Msg("replay succeeded")
			return res
		}
		if ctx.Err() != nil {
			return Result{BookingID: bookingID, Err: replayErr}
		}
		logger.Warn().Err(replayErr).Msg("replay failed, falling back to discovery")
	} else {
		logger.Info().Msg("no stored sequence, starting discovery")
	}

	res, newRec, err := t.discoverer.Discover(ctx, goal, att)
	if err != nil {
		if replayTried {
			err = fmt.Errorf("recorded sequence replay failed and discovery also failed: %w", err)
		} else {
			err = fmt.Errorf("no recorded sequence and discovery failed: %w", err)
		}
		logger.Error().Err(err).Int("retries", att.Retries).Msg("run failed")
		return Result{BookingID: bookingID, LastSignal: att.LastSignal, Err: err}
	}

	if saveErr := t.store.Save(ctx, newRec); saveErr != nil {
		// A failed save never corrupts the previous file; log and move on.
		logger.Error().Err(saveErr).Msg("could not persist discovered sequence, discarding")
	}
	logger.Info().Str("voyage", res.Voyage).Str("arrival", res.Arrival).Int("retries", att.Retries).Msg("discovery succeeded")
	return res
}
