package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightloop/seqcore/internal/compiler"
)

func intp(v int) *int { return &v }

func noteEvent(track string, t, dur float64) compiler.Event {
	return compiler.Event{T: t, Dur: dur, Kind: compiler.EventNote, Midi: intp(60), Track: track}
}

// fakeClock is a manually advanced AudioClock for deterministic tests.
type fakeClock struct{ now float64 }

func (c *fakeClock) tick() float64 { return c.now }
func (c *fakeClock) advance(d float64) {
	c.now += d
}

func TestPlayDispatchesEventsWithinLookahead(t *testing.T) {
	clock := &fakeClock{now: 0}
	var dispatched []float64
	s := New(Config{
		Events:     []compiler.Event{noteEvent("", 0.0, 0.1), noteEvent("", 0.5, 0.1)},
		BPM:        120,
		AudioClock: clock.tick,
		NoteSink: func(e compiler.Event, when float64) {
			dispatched = append(dispatched, e.T)
		},
	})

	s.Play()
	s.Tick() // startTime == now: only t=0 falls inside the 0.2s lookahead
	require.Len(t, dispatched, 1)
	assert.Equal(t, 0.0, dispatched[0])

	clock.advance(0.4)
	s.Tick()
	require.Len(t, dispatched, 2)
	assert.Equal(t, 0.5, dispatched[1])
}

func TestStoppedSchedulerIgnoresTick(t *testing.T) {
	clock := &fakeClock{now: 0}
	called := false
	s := New(Config{
		Events:     []compiler.Event{noteEvent("", 0, 0.1)},
		BPM:        120,
		AudioClock: clock.tick,
		NoteSink:   func(e compiler.Event, when float64) { called = true },
	})
	s.Tick()
	assert.False(t, called)
}

func TestStopResetsCursorAndSilencesFurtherDispatch(t *testing.T) {
	clock := &fakeClock{now: 0}
	var count int
	s := New(Config{
		Events:     []compiler.Event{noteEvent("", 0, 0.1)},
		BPM:        120,
		AudioClock: clock.tick,
		NoteSink:   func(e compiler.Event, when float64) { count++ },
	})
	s.Play()
	s.Tick()
	require.Equal(t, 1, count)

	s.Stop()
	assert.False(t, s.GetTransportState().Playing)
	assert.Equal(t, 0.0, s.GetPlayheadPosition())

	s.Tick()
	assert.Equal(t, 1, count, "Tick after Stop must not dispatch")
}

func TestMutedTrackIsFiltered(t *testing.T) {
	clock := &fakeClock{now: 0}
	var got []string
	s := New(Config{
		Events: []compiler.Event{
			noteEvent("melody", 0, 0.1),
			noteEvent("bassline", 0, 0.1),
		},
		BPM:        120,
		AudioClock: clock.tick,
		NoteSink:   func(e compiler.Event, when float64) { got = append(got, e.Track) },
	})
	s.SetTrackMuted("bassline", true)
	s.Play()
	s.Tick()
	assert.Equal(t, []string{"melody"}, got)
}

func TestSoloOverridesMute(t *testing.T) {
	clock := &fakeClock{now: 0}
	var got []string
	s := New(Config{
		Events: []compiler.Event{
			noteEvent("melody", 0, 0.1),
			noteEvent("bassline", 0, 0.1),
		},
		BPM:        120,
		AudioClock: clock.tick,
		NoteSink:   func(e compiler.Event, when float64) { got = append(got, e.Track) },
	})
	s.SetTrackMuted("bassline", true)
	s.SetTrackSoloed("bassline", true)
	s.Play()
	s.Tick()
	assert.Equal(t, []string{"bassline"}, got)
}

func TestDefaultTrackNameUsedForUntrackedEvents(t *testing.T) {
	clock := &fakeClock{now: 0}
	var got []string
	s := New(Config{
		Events:     []compiler.Event{noteEvent("", 0, 0.1), noteEvent("melody", 0, 0.1)},
		BPM:        120,
		AudioClock: clock.tick,
		NoteSink:   func(e compiler.Event, when float64) { got = append(got, e.Track) },
	})
	s.SetTrackSoloed(defaultTrackName, true)
	assert.True(t, s.IsTrackSoloed(defaultTrackName))
	s.Play()
	s.Tick()
	assert.Equal(t, []string{""}, got, "soloing the default track must pass only untracked events")
}

func TestNonLoopingSchedulerStopsAfterLastEvent(t *testing.T) {
	clock := &fakeClock{now: 0}
	s := New(Config{
		Events:     []compiler.Event{noteEvent("", 0, 0.1)},
		BPM:        120,
		AudioClock: clock.tick,
		NoteSink:   func(e compiler.Event, when float64) {},
	})
	s.Play()
	s.Tick()
	clock.advance(0.3)
	s.Tick()
	assert.False(t, s.GetTransportState().Playing)
}

func TestLoopingSchedulerReSchedulesEachIteration(t *testing.T) {
	clock := &fakeClock{now: 0}
	var dispatched []float64
	s := New(Config{
		Events:      []compiler.Event{noteEvent("", 0, 0.1), noteEvent("", 0.1, 0.1)},
		BPM:         120,
		LoopBars:    1, // loopDurSec = 1*4*60/120 = 2s
		LoopEnabled: true,
		AudioClock:  clock.tick,
		NoteSink:    func(e compiler.Event, when float64) { dispatched = append(dispatched, e.T) },
	})
	s.Play()
	s.Tick()
	require.Len(t, dispatched, 2)

	clock.advance(2.0) // wrap into the second loop iteration
	s.Tick()
	assert.Len(t, dispatched, 4, "events should re-dispatch on the next loop iteration")
}

func TestPlayheadPositionWrapsWhileLooping(t *testing.T) {
	clock := &fakeClock{now: 0}
	s := New(Config{
		Events:      []compiler.Event{noteEvent("", 0, 0.1)},
		BPM:         120,
		LoopBars:    1, // 2s loop
		LoopEnabled: true,
		AudioClock:  clock.tick,
		NoteSink:    func(e compiler.Event, when float64) {},
	})
	s.Play()
	clock.advance(2.5)
	assert.InDelta(t, 0.5, s.GetPlayheadPosition(), 1e-9)
}

func TestGetTransportStateReflectsLoopAndMuteSettings(t *testing.T) {
	clock := &fakeClock{now: 0}
	s := New(Config{
		Events:     []compiler.Event{},
		BPM:        140,
		LoopBars:   2,
		AudioClock: clock.tick,
	})
	s.SetTrackMuted("drums", true)
	snap := s.GetTransportState()
	assert.Equal(t, 140.0, snap.BPM)
	assert.Equal(t, 2, snap.LoopBars)
	assert.False(t, snap.LoopEnabled)
	assert.Contains(t, snap.MutedTracks, "drums")
}

func TestRestartReturnsPlayheadToZero(t *testing.T) {
	clock := &fakeClock{now: 0}
	s := New(Config{
		Events:     []compiler.Event{noteEvent("", 0, 0.1)},
		BPM:        120,
		AudioClock: clock.tick,
		NoteSink:   func(e compiler.Event, when float64) {},
	})
	s.Play()
	clock.advance(1.0)
	s.Restart()
	assert.Equal(t, 0.0, s.GetPlayheadPosition())
	assert.True(t, s.GetTransportState().Playing)
}

func TestZeroOrNegativeLoopBarsForcesNonLooping(t *testing.T) {
	clock := &fakeClock{now: 0}
	s := New(Config{
		Events:      []compiler.Event{noteEvent("", 0, 0.1)},
		BPM:         120,
		LoopBars:    0,
		LoopEnabled: true,
		AudioClock:  clock.tick,
		NoteSink:    func(e compiler.Event, when float64) {},
	})
	s.Play()
	s.Tick()
	clock.advance(0.3)
	s.Tick()
	assert.False(t, s.GetTransportState().Playing, "loopBars<=0 must behave as non-looping")
}
