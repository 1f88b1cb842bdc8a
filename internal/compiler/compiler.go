// Package compiler transforms a parsed ast.Program into a sorted event list
// per spec §4.4: it expands patterns and repeats, resolves instrument
// references, and applies the swing transform.
package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/brightloop/seqcore/internal/ast"
	"github.com/brightloop/seqcore/internal/lexer"
	"github.com/brightloop/seqcore/internal/music"
	"github.com/brightloop/seqcore/internal/parser"
)

// EventKind discriminates a dispatched note from a silent rest.
type EventKind int

const (
	EventNote EventKind = iota
	EventRest
)

// Event is one scheduled occurrence in the compiled timeline (spec §3).
// Midi and Freq are nil for rests; Velocity is 0 for rests.
type Event struct {
	T        float64
	Dur      float64
	Kind     EventKind
	Midi     *int
	Freq     *float64
	Velocity float64

	Instrument string
	Waveform   string
	Track      string // "" when the event has no track

	Gain *float64

	HasADSR bool
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

// CompilationResult is the output of a full compile.
type CompilationResult struct {
	Events        []Event
	BPM           float64
	TotalDuration float64
	EventCount    int
	Settings      ast.Settings
}

// Error is a value or reference failure surfaced during compilation.
type Error struct {
	Line, Column int
	Message      string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// ErrorSink receives each compilation diagnostic, mirroring the errorSink
// host interface from spec §6.
type ErrorSink func(line, column int, message string)

// CompileSource lexes, parses, and compiles src end to end. On failure it
// invokes errSink (if non-nil) with the first error's position and message,
// then returns that error.
func CompileSource(src string, errSink ErrorSink) (*CompilationResult, error) {
	prog, err := parser.Parse(src)
	if err != nil {
		line, col, msg := positionOf(err)
		if errSink != nil {
			errSink(line, col, msg)
		}
		return nil, err
	}
	res, err := Compile(prog)
	if err != nil {
		line, col, msg := positionOf(err)
		if errSink != nil {
			errSink(line, col, msg)
		}
		return nil, err
	}
	return res, nil
}

func positionOf(err error) (int, int, string) {
	switch e := err.(type) {
	case *lexer.Error:
		return e.Line, e.Column, e.Message
	case *parser.Error:
		return e.Line, e.Column, e.Message
	case *Error:
		return e.Line, e.Column, e.Message
	}
	return 0, 0, err.Error()
}

type compiler struct {
	bpm         float64
	instruments map[string]ast.InstrumentDef
	patterns    map[string]ast.PatternDef
	events      []Event
}

// Compile runs component D of the pipeline over an already-parsed Program.
func Compile(prog *ast.Program) (*CompilationResult, error) {
	c := &compiler{
		bpm:         float64(prog.BPM),
		instruments: map[string]ast.InstrumentDef{},
		patterns:    map[string]ast.PatternDef{},
	}
	for _, inst := range prog.Instruments {
		c.instruments[inst.Name] = inst
	}
	for _, pat := range prog.Patterns {
		c.patterns[pat.Name] = pat
	}

	defaultInst := prog.Instruments[0]

	if prog.HasSequence {
		t := 0.0
		if err := c.walk(prog.Sequence, &t, defaultInst, "", map[string]bool{}); err != nil {
			return nil, err
		}
	}

	for _, track := range prog.Tracks {
		inst, ok := c.instruments[track.Instrument]
		if !ok {
			return nil, &Error{
				Line: track.Line, Column: track.Column,
				Message: fmt.Sprintf("track %q references undefined instrument %q (defined: %s)",
					track.Name, track.Instrument, c.instrumentNames()),
			}
		}
		t := 0.0
		if err := c.walk(track.Items, &t, inst, track.Name, map[string]bool{}); err != nil {
			return nil, err
		}
	}

	sortEvents(c.events)

	if prog.Settings.Swing > 0 {
		c.events = ApplySwing(c.events, prog.Settings.Swing, prog.Settings.Grid, c.bpm)
	}

	total := 0.0
	for _, e := range c.events {
		if end := e.T + e.Dur; end > total {
			total = end
		}
	}

	return &CompilationResult{
		Events:        c.events,
		BPM:           c.bpm,
		TotalDuration: total,
		EventCount:    len(c.events),
		Settings:      prog.Settings,
	}, nil
}

func (c *compiler) instrumentNames() string {
	if len(c.instruments) == 0 {
		return "none are defined"
	}
	names := make([]string, 0, len(c.instruments))
	for n := range c.instruments {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func (c *compiler) patternNames() string {
	if len(c.patterns) == 0 {
		return "none are defined"
	}
	names := make([]string, 0, len(c.patterns))
	for n := range c.patterns {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// walk advances the cursor t through items, emitting events into c.events.
// expanding is the pattern-use expansion stack, used to detect cycles.
func (c *compiler) walk(items []ast.SeqItem, t *float64, inst ast.InstrumentDef, track string, expanding map[string]bool) error {
	for _, item := range items {
		switch item.Kind {
		case ast.ItemNote:
			dur, err := music.DurationSeconds(item.Duration.Num, item.Duration.Den, c.bpm)
			if err != nil {
				return &Error{Line: item.Line, Column: item.Column, Message: err.Error()}
			}
			midi, err := music.PitchToMidi(item.Pitch)
			if err != nil {
				return &Error{Line: item.Line, Column: item.Column, Message: err.Error()}
			}
			freq := music.Frequency(midi)
			vel := 0.8
			if item.Velocity != nil {
				vel = *item.Velocity
			}
			c.events = append(c.events, c.noteEvent(*t, dur, midi, freq, vel, inst, track))
			*t += dur

		case ast.ItemRest:
			dur, err := music.DurationSeconds(item.Duration.Num, item.Duration.Den, c.bpm)
			if err != nil {
				return &Error{Line: item.Line, Column: item.Column, Message: err.Error()}
			}
			c.events = append(c.events, c.restEvent(*t, dur, inst, track))
			*t += dur

		case ast.ItemChord:
			dur, err := music.DurationSeconds(item.Duration.Num, item.Duration.Den, c.bpm)
			if err != nil {
				return &Error{Line: item.Line, Column: item.Column, Message: err.Error()}
			}
			vel := 0.8
			if item.Velocity != nil {
				vel = *item.Velocity
			}
			for _, pitch := range item.Pitches {
				midi, err := music.PitchToMidi(pitch)
				if err != nil {
					return &Error{Line: item.Line, Column: item.Column, Message: err.Error()}
				}
				freq := music.Frequency(midi)
				c.events = append(c.events, c.noteEvent(*t, dur, midi, freq, vel, inst, track))
			}
			*t += dur

		case ast.ItemRepeat:
			for i := 0; i < item.Count; i++ {
				if err := c.walk(item.Body, t, inst, track, expanding); err != nil {
					return err
				}
			}

		case ast.ItemPatternUse:
			pat, ok := c.patterns[item.PatternName]
			if !ok {
				return &Error{
					Line: item.Line, Column: item.Column,
					Message: fmt.Sprintf("use references undefined pattern %q (defined: %s)",
						item.PatternName, c.patternNames()),
				}
			}
			if expanding[item.PatternName] {
				return &Error{
					Line: item.Line, Column: item.Column,
					Message: fmt.Sprintf("cyclic pattern reference involving %q", item.PatternName),
				}
			}
			expanding[item.PatternName] = true
			for i := 0; i < item.Count; i++ {
				if err := c.walk(pat.Items, t, inst, track, expanding); err != nil {
					delete(expanding, item.PatternName)
					return err
				}
			}
			delete(expanding, item.PatternName)
		}
	}
	return nil
}

func (c *compiler) noteEvent(t, dur float64, midi int, freq, vel float64, inst ast.InstrumentDef, track string) Event {
	e := Event{
		T: t, Dur: dur, Kind: EventNote, Midi: &midi, Freq: &freq, Velocity: vel,
		Instrument: inst.Name, Waveform: inst.Waveform, Track: track,
		Gain: inst.Gain,
	}
	if inst.HasADSR {
		e.HasADSR = true
		e.Attack, e.Decay, e.Sustain, e.Release = inst.Attack, inst.Decay, inst.Sustain, inst.Release
	}
	return e
}

func (c *compiler) restEvent(t, dur float64, inst ast.InstrumentDef, track string) Event {
	e := Event{
		T: t, Dur: dur, Kind: EventRest, Velocity: 0,
		Instrument: inst.Name, Waveform: inst.Waveform, Track: track,
		Gain: inst.Gain,
	}
	if inst.HasADSR {
		e.HasADSR = true
		e.Attack, e.Decay, e.Sustain, e.Release = inst.Attack, inst.Decay, inst.Sustain, inst.Release
	}
	return e
}

// sortEvents orders by t ascending, breaking ties by (track, midi) per
// spec §3's determinism requirement.
func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.T != b.T {
			return a.T < b.T
		}
		if a.Track != b.Track {
			return a.Track < b.Track
		}
		am, bm := -1, -1
		if a.Midi != nil {
			am = *a.Midi
		}
		if b.Midi != nil {
			bm = *b.Midi
		}
		return am < bm
	})
}
