package music

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMidiToNoteName(t *testing.T) {
	tests := []struct {
		name     string
		midiNote int
		expected string
	}{
		{"MIDI 60 is C4", 60, "c4"},
		{"MIDI 61 is C#4", 61, "c#4"},
		{"MIDI 21 is A0", 21, "a0"},
		{"MIDI 0 is C-1", 0, "c-1"},
		{"MIDI 69 is A4", 69, "a4"},
		{"MIDI 127 is G9", 127, "g9"},
		{"MIDI -1 is invalid", -1, "--"},
		{"MIDI 128 is invalid", 128, "--"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MidiToNoteName(tt.midiNote))
		})
	}
}

func TestPitchToMidi(t *testing.T) {
	tests := []struct {
		name    string
		pitch   string
		want    int
		wantErr bool
	}{
		{"middle C", "C4", 60, false},
		{"A4 reference pitch", "A4", 69, false},
		{"sharp", "C#4", 61, false},
		{"flat enharmonic equals sharp", "Db4", 61, false},
		{"lowercase letter", "c4", 60, false},
		{"lowest octave", "C0", 12, false},
		{"highest octave", "C9", 120, false},
		{"octave too low", "C-1", 0, true},
		{"octave too high", "C10", 0, true},
		{"unknown letter", "H4", 0, true},
		{"malformed", "C", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PitchToMidi(tt.pitch)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFrequency(t *testing.T) {
	assert.InDelta(t, 440.0, Frequency(69), 1e-9)
	assert.InDelta(t, 261.6256, Frequency(60), 1e-3)

	freq, err := PitchToFreq("A4")
	assert.NoError(t, err)
	assert.Equal(t, 440.0, freq)
}

func TestDurationSeconds(t *testing.T) {
	tests := []struct {
		name    string
		n, d    int
		bpm     float64
		want    float64
		wantErr bool
	}{
		{"quarter note at 120 bpm", 1, 4, 120, 0.5, false},
		{"whole note at 60 bpm", 1, 1, 60, 4.0, false},
		{"zero numerator rejected", 0, 4, 120, 0, true},
		{"zero denominator rejected", 1, 0, 120, 0, true},
		{"non-positive bpm rejected", 1, 4, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DurationSeconds(tt.n, tt.d, tt.bpm)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.True(t, math.Abs(got-tt.want) < 1e-9)
		})
	}
}
