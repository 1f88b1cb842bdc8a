// Package scheduler drives real-time playback of a compiled event list: a
// lookahead loop hands events to a note-sink at precise times, honoring
// loop boundaries and per-track mute/solo filters (spec §4.5).
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/brightloop/seqcore/internal/compiler"
)

// ScheduleAheadSec is the half-open lookahead window width (spec §4.5).
const ScheduleAheadSec = 0.2

// LookaheadMS is the external tick period the transport expects to be
// driven at (spec §4.5).
const LookaheadMS = 25

const defaultTrackName = "default"

// AudioClock returns monotonic seconds since an arbitrary epoch, consistent
// with the backend's own scheduling clock (spec §6).
type AudioClock func() float64

// NoteSink dispatches a single note event at the given audio-clock time.
// Rest events are never passed to the sink.
type NoteSink func(event compiler.Event, when float64)

// TransportStateSnapshot is an immutable, point-in-time view of the
// scheduler's state, returned by GetTransportState so callers never see a
// half-mutated struct.
type TransportStateSnapshot struct {
	BPM           float64
	LoopBars      int
	LoopEnabled   bool
	Playing       bool
	PlayheadSec   float64
	MutedTracks   []string
	SoloedTracks  []string
}

// Config configures a new Scheduler.
type Config struct {
	Events      []compiler.Event
	BPM         float64
	LoopBars    int
	LoopEnabled bool

	AudioClock  AudioClock
	NoteSink    NoteSink
	ResumeAudio func() error // optional; called once by Play()
	CancelAll   func()       // optional; called by Stop()
}

// Scheduler owns the mutable TransportState described in spec §4.5. All
// mutation (Tick, the transport calls, and the mute/solo/loop setters) goes
// through its mutex-guarded methods, so ticks and transport calls made from
// different goroutines are serialized by the scheduler itself (Run supplies
// the tick loop for hosts that don't run their own external timer).
type Scheduler struct {
	mu sync.Mutex

	events   []compiler.Event
	bpm      float64
	loopBars int

	loopEnabled bool
	loopDurSec  float64

	playing     bool
	startTime   float64
	nextIndex   int
	scheduled   map[int]bool
	loopIter    int

	mutedTracks  map[string]bool
	soloedTracks map[string]bool

	audioClock  AudioClock
	noteSink    NoteSink
	resumeAudio func() error
	cancelAll   func()

	stateListener    func(TransportStateSnapshot)
	playheadListener func(float64)
}

// New builds a Scheduler from cfg. Invalid LoopBars (<=0) collapses
// loopDurationSec to 0, which forces non-looping mode rather than raising
// (spec §4.5, "Failure modes").
func New(cfg Config) *Scheduler {
	s := &Scheduler{
		events:       cfg.Events,
		bpm:          cfg.BPM,
		loopBars:     cfg.LoopBars,
		loopEnabled:  cfg.LoopEnabled,
		mutedTracks:  map[string]bool{},
		soloedTracks: map[string]bool{},
		audioClock:   cfg.AudioClock,
		noteSink:     cfg.NoteSink,
		resumeAudio:  cfg.ResumeAudio,
		cancelAll:    cfg.CancelAll,
	}
	s.recomputeLoopDuration()
	return s
}

func (s *Scheduler) recomputeLoopDuration() {
	if s.loopBars <= 0 || s.bpm <= 0 {
		s.loopDurSec = 0
		return
	}
	s.loopDurSec = float64(s.loopBars) * 4.0 * 60.0 / s.bpm
}

// RegisterStateListener registers a callback invoked with a state snapshot
// whenever Play, Stop, or SetLoopEnabled runs.
func (s *Scheduler) RegisterStateListener(fn func(TransportStateSnapshot)) {
	s.mu.Lock()
	s.stateListener = fn
	s.mu.Unlock()
}

// RegisterPlayheadListener registers a callback invoked with the playhead
// position every tick.
func (s *Scheduler) RegisterPlayheadListener(fn func(float64)) {
	s.mu.Lock()
	s.playheadListener = fn
	s.mu.Unlock()
}

// Play starts playback from the beginning. A no-op if already playing.
func (s *Scheduler) Play() {
	s.mu.Lock()
	if s.playing {
		s.mu.Unlock()
		return
	}
	resume := s.resumeAudio
	s.mu.Unlock()

	if resume != nil {
		if err := resume(); err != nil {
			log.Printf("seqcore: resumeAudio failed: %v", err)
		}
	}

	s.mu.Lock()
	s.startTime = s.audioClock()
	s.playing = true
	s.nextIndex = 0
	s.loopIter = 0
	s.scheduled = map[int]bool{}
	s.notifyStateLocked()
	s.mu.Unlock()
}

// Stop halts playback, silences pending dispatches via the backend
// cancelAll hook, and resets transport position.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelAll != nil {
		s.cancelAll()
	}
	s.nextIndex = 0
	s.loopIter = 0
	s.scheduled = map[int]bool{}
	s.playing = false
	s.notifyStateLocked()
}

// Restart stops then plays from the beginning.
func (s *Scheduler) Restart() {
	s.Stop()
	s.Play()
}

// SetLoopEnabled toggles looping; takes effect on the next tick.
func (s *Scheduler) SetLoopEnabled(enabled bool) {
	s.mu.Lock()
	s.loopEnabled = enabled
	s.notifyStateLocked()
	s.mu.Unlock()
}

// SetTrackMuted mutes or unmutes a track by name.
func (s *Scheduler) SetTrackMuted(name string, muted bool) {
	s.mu.Lock()
	if muted {
		s.mutedTracks[name] = true
	} else {
		delete(s.mutedTracks, name)
	}
	s.mu.Unlock()
}

// SetTrackSoloed solos or unsolos a track by name.
func (s *Scheduler) SetTrackSoloed(name string, soloed bool) {
	s.mu.Lock()
	if soloed {
		s.soloedTracks[name] = true
	} else {
		delete(s.soloedTracks, name)
	}
	s.mu.Unlock()
}

// IsTrackMuted reports whether name is currently muted.
func (s *Scheduler) IsTrackMuted(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutedTracks[name]
}

// IsTrackSoloed reports whether name is currently soloed.
func (s *Scheduler) IsTrackSoloed(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.soloedTracks[name]
}

// GetPlayheadPosition returns the current playhead position in seconds
// (elapsed, or elapsed mod loop duration while looping). Zero while
// stopped.
func (s *Scheduler) GetPlayheadPosition() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		return 0
	}
	elapsed := s.audioClock() - s.startTime
	if s.loopEnabled && s.loopDurSec > 0 {
		return mod(elapsed, s.loopDurSec)
	}
	return elapsed
}

// GetTransportState returns a snapshot of the scheduler's current state.
func (s *Scheduler) GetTransportState() TransportStateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Scheduler) snapshotLocked() TransportStateSnapshot {
	playhead := 0.0
	if s.playing {
		elapsed := s.audioClock() - s.startTime
		if s.loopEnabled && s.loopDurSec > 0 {
			playhead = mod(elapsed, s.loopDurSec)
		} else {
			playhead = elapsed
		}
	}
	return TransportStateSnapshot{
		BPM:          s.bpm,
		LoopBars:     s.loopBars,
		LoopEnabled:  s.loopEnabled,
		Playing:      s.playing,
		PlayheadSec:  playhead,
		MutedTracks:  mapKeys(s.mutedTracks),
		SoloedTracks: mapKeys(s.soloedTracks),
	}
}

func (s *Scheduler) notifyStateLocked() {
	if s.stateListener != nil {
		snap := s.snapshotLocked()
		go s.stateListener(snap)
	}
}

// Tick performs one scheduling pass. It is the sole mutator of transport
// state at steady state and must be called roughly every LookaheadMS.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playing {
		return
	}

	now := s.audioClock()
	elapsed := now - s.startTime

	var playhead float64
	looping := s.loopEnabled && s.loopDurSec > 0
	if looping {
		playhead = mod(elapsed, s.loopDurSec)
		s.tickLoopingLocked(now, elapsed)
	} else {
		playhead = elapsed
		s.tickOnceLocked(now)
	}

	if s.playheadListener != nil {
		fn, ph := s.playheadListener, playhead
		go fn(ph)
	}
}

func (s *Scheduler) tickOnceLocked(now float64) {
	n := len(s.events)
	for s.nextIndex < n {
		e := s.events[s.nextIndex]
		when := s.startTime + e.T
		if when >= now+ScheduleAheadSec {
			break
		}
		if when >= now && s.accept(e) {
			s.dispatch(e, when)
		}
		s.nextIndex++
	}

	if n > 0 && s.nextIndex >= n {
		last := s.events[n-1]
		if now > s.startTime+last.T+last.Dur {
			s.stopLocked()
		}
	}
}

func (s *Scheduler) tickLoopingLocked(now, elapsed float64) {
	newIter := int(elapsed / s.loopDurSec)
	if newIter > s.loopIter {
		s.loopIter = newIter
		s.nextIndex = 0
		s.scheduled = map[int]bool{}
	}

	loopOrigin := s.startTime + float64(s.loopIter)*s.loopDurSec

	for s.nextIndex < len(s.events) {
		e := s.events[s.nextIndex]
		if e.T >= s.loopDurSec {
			break
		}
		when := loopOrigin + e.T
		if when >= now+ScheduleAheadSec {
			break
		}
		if s.scheduled[s.nextIndex] {
			s.nextIndex++
			continue
		}
		if when >= now && s.accept(e) {
			s.dispatch(e, when)
			s.scheduled[s.nextIndex] = true
		}
		s.nextIndex++
	}

	if mod(elapsed, s.loopDurSec)+ScheduleAheadSec >= s.loopDurSec {
		nextOrigin := loopOrigin + s.loopDurSec
		for _, e := range s.events {
			if e.T >= s.loopDurSec {
				break
			}
			when := nextOrigin + e.T
			if when >= now && when < now+ScheduleAheadSec && s.accept(e) {
				s.dispatch(e, when)
			}
		}
	}
}

func (s *Scheduler) accept(e compiler.Event) bool {
	track := e.Track
	if track == "" {
		track = defaultTrackName
	}
	if len(s.soloedTracks) > 0 {
		return s.soloedTracks[track]
	}
	return !s.mutedTracks[track]
}

func (s *Scheduler) dispatch(e compiler.Event, when float64) {
	if e.Kind != compiler.EventNote {
		return
	}
	if s.noteSink != nil {
		s.noteSink(e, when)
	}
}

func (s *Scheduler) stopLocked() {
	if s.cancelAll != nil {
		s.cancelAll()
	}
	s.nextIndex = 0
	s.loopIter = 0
	s.scheduled = map[int]bool{}
	s.playing = false
	s.notifyStateLocked()
}

func mod(a, m float64) float64 {
	r := a - m*float64(int(a/m))
	if r < 0 {
		r += m
	}
	return r
}

func mapKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// Run starts a goroutine that calls Tick every LookaheadMS until ctx is
// canceled, for hosts that don't already run their own external timer
// (spec §5, "blocking loop on a dedicated thread that sleeps for
// LOOKAHEAD_MS").
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(LookaheadMS * time.Millisecond)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick()
			}
		}
	}()
}
