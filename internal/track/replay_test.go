package track

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polzovatel/hmm-tracker/internal/sequence"
)

const (
	portalURL = "http://www.seacargotracking.net/"
	resultURL = "http://www.seacargotracking.net/result"
	errorURL  = "http://www.seacargotracking.net/error"

	portalText = "HMM Track and Trace portal"
	resultText = "Booking results\nVoyage: HMM MIR 0012W\nArrival: 2025-09-14"
)

func recordedForHANA() sequence.Recorded {
	return sequence.Recorded{
		BookingID: "HANA98736001",
		Actions: []sequence.Action{
			{Kind: sequence.KindNavigate, Target: portalURL},
			{Kind: sequence.KindType, Target: "#bkNo", Value: "HANA98736001", Slot: sequence.SlotBookingID},
			{Kind: sequence.KindType, Target: "#note", Value: "HANA98736001"}, // literal, must not change
			{Kind: sequence.KindClick, Target: "#search"},
		},
	}
}

func trackingSite() *fakeDriver {
	d := newFakeDriver()
	d.pages[portalURL] = portalText
	d.pages[resultURL] = resultText
	d.pages[errorURL] = "Request Failed: booking not found"
	d.links["#search"] = resultURL
	return d
}

func TestReplaySubstitutesOnlySlots(t *testing.T) {
	d := trackingSite()
	r := NewReplayer(d, zerolog.Nop())

	res, err := r.Replay(context.Background(), recordedForHANA(), NewGoal("SINI25432400"))
	require.NoError(t, err)

	assert.Equal(t, []string{"SINI25432400", "HANA98736001"}, d.typed,
		"slot value replaced, literal value untouched")
	assert.Equal(t, []string{
		"navigate " + portalURL,
		"type #bkNo=SINI25432400",
		"type #note=HANA98736001",
		"click #search",
	}, d.actions, "identical action sequence apart from slot values")

	assert.True(t, res.Replayed)
	assert.Equal(t, "HMM MIR 0012W", res.Voyage)
	assert.Equal(t, "2025-09-14", res.Arrival)
}

func TestReplayStepFailureIsReplayFailed(t *testing.T) {
	d := trackingSite()
	d.failAt["#search"] = assert.AnError
	r := NewReplayer(d, zerolog.Nop())

	_, err := r.Replay(context.Background(), recordedForHANA(), NewGoal("SINI25432400"))
	require.ErrorIs(t, err, ErrReplayFailed)
}

func TestReplayErrorSignalIsReplayFailed(t *testing.T) {
	d := trackingSite()
	d.links["#search"] = errorURL
	r := NewReplayer(d, zerolog.Nop())

	_, err := r.Replay(context.Background(), recordedForHANA(), NewGoal("SINI25432400"))
	require.ErrorIs(t, err, ErrReplayFailed)
}

func TestReplayMissingFieldsIsReplayFailed(t *testing.T) {
	d := trackingSite()
	d.pages[resultURL] = "Results pending, check again later"
	r := NewReplayer(d, zerolog.Nop())

	_, err := r.Replay(context.Background(), recordedForHANA(), NewGoal("SINI25432400"))
	require.ErrorIs(t, err, ErrReplayFailed)
}

func TestReplayCancellationPropagates(t *testing.T) {
	d := trackingSite()
	r := NewReplayer(d, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Replay(ctx, recordedForHANA(), NewGoal("SINI25432400"))
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrReplayFailed)
}

func TestExtractFields(t *testing.T) {
	v, a, ok := extractFields(resultText)
	require.True(t, ok)
	assert.Equal(t, "HMM MIR 0012W", v)
	assert.Equal(t, "2025-09-14", a)

	v, a, ok = extractFields("Voyage No.: X100\nEstimated Arrival Date: 14 Sep 2025")
	require.True(t, ok)
	assert.Equal(t, "X100", v)
	assert.Equal(t, "14 Sep 2025", a)

	_, _, ok = extractFields("nothing to see here")
	assert.False(t, ok)
}
