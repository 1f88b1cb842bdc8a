package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intp(v int) *int         { return &v }
func f64p(v float64) *float64 { return &v }

func noteAt(t float64) Event {
	return Event{T: t, Dur: 0.125, Kind: EventNote, Midi: intp(60), Freq: f64p(261.63), Velocity: 0.8}
}

func TestApplySwingIdentityWhenZero(t *testing.T) {
	events := []Event{noteAt(0), noteAt(0.125)}
	out := ApplySwing(events, 0, 16, 120)
	assert.Equal(t, events, out)
}

func TestApplySwingShiftsOnlyOddGridPositions(t *testing.T) {
	events := []Event{noteAt(0.0), noteAt(0.125), noteAt(0.25), noteAt(0.375)}
	out := ApplySwing(events, 0.5, 16, 120)

	want := []float64{0.0, 0.1875, 0.25, 0.4375}
	got := make([]float64, len(out))
	for i, e := range out {
		got[i] = e.T
	}
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9)
	}
}

func TestApplySwingLeavesOffGridEventsUnchanged(t *testing.T) {
	events := []Event{noteAt(0.05)} // not aligned to the 16th-note grid
	out := ApplySwing(events, 0.5, 16, 120)
	assert.Equal(t, 0.05, out[0].T)
}

func TestApplySwingClampsAtZero(t *testing.T) {
	events := []Event{{T: 0, Dur: 0.1, Kind: EventRest}}
	out := ApplySwing(events, 0.75, 16, 120)
	assert.GreaterOrEqual(t, out[0].T, 0.0)
}
