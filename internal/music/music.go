// Package music implements the pure musical primitives the compiler builds
// on: pitch-name parsing to MIDI numbers, MIDI-to-frequency conversion, and
// fraction-duration-to-seconds conversion at a given tempo.
package music

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// semitone holds the semitone offset of each natural letter from C, per the
// invariant in spec §3: semitone(C..B) = (0,2,4,5,7,9,11).
var semitone = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// noteRe matches a pitch literal: a letter, an optional accidental, and an
// octave digit run. It intentionally accepts the same shape the lexer
// classifies as a NOTE token ([A-Ga-g][#b]?\d+).
var noteRe = regexp.MustCompile(`^([A-Ga-g])([#b]?)(\d+)$`)

// PitchToMidi parses a pitch literal such as "C4", "c#4", or "Db3" into its
// MIDI number. Unknown letters, malformed literals, and octaves outside
// [0,9] are rejected.
func PitchToMidi(pitch string) (int, error) {
	m := noteRe.FindStringSubmatch(pitch)
	if m == nil {
		return 0, fmt.Errorf("invalid pitch %q", pitch)
	}
	letter := byte(strings.ToUpper(m[1])[0])
	base, ok := semitone[letter]
	if !ok {
		return 0, fmt.Errorf("unknown pitch letter %q", m[1])
	}

	delta := 0
	switch m[2] {
	case "#":
		delta = 1
	case "b":
		delta = -1
	case "":
		delta = 0
	}

	octave, err := strconv.Atoi(m[3])
	if err != nil {
		return 0, fmt.Errorf("invalid octave in pitch %q", pitch)
	}
	if octave < 0 || octave > 9 {
		return 0, fmt.Errorf("octave out of range [0,9] in pitch %q", pitch)
	}

	return 12*(octave+1) + base + delta, nil
}

// Frequency converts a MIDI number to its 12-TET frequency in Hz with A4
// (MIDI 69) tuned to 440 Hz.
func Frequency(midi int) float64 {
	return 440.0 * math.Pow(2.0, float64(midi-69)/12.0)
}

// PitchToFreq parses a pitch literal directly to its frequency in Hz.
func PitchToFreq(pitch string) (float64, error) {
	midi, err := PitchToMidi(pitch)
	if err != nil {
		return 0, err
	}
	return Frequency(midi), nil
}

// DurationSeconds converts a fraction n/d (a whole note is 1/1, four quarter
// beats) to seconds at the given tempo in BPM, per spec §4.3:
// seconds = (n/d) * 240 / bpm. bpm must be strictly positive.
func DurationSeconds(n, d int, bpm float64) (float64, error) {
	if n <= 0 || d <= 0 {
		return 0, fmt.Errorf("duration numerator and denominator must be positive, got %d/%d", n, d)
	}
	if bpm <= 0 {
		return 0, fmt.Errorf("bpm must be positive, got %v", bpm)
	}
	return (float64(n) / float64(d)) * 240.0 / bpm, nil
}

// MidiToNoteName renders a MIDI number as a compact pitch name such as "c4"
// or "c#4", for diagnostics and CLI display. Out-of-range MIDI numbers
// render as "--".
func MidiToNoteName(midiNote int) string {
	if midiNote < 0 || midiNote > 127 {
		return "--"
	}
	noteNames := []string{"c", "c#", "d", "d#", "e", "f", "f#", "g", "g#", "a", "a#", "b"}
	octave := (midiNote / 12) - 1
	return fmt.Sprintf("%s%d", noteNames[midiNote%12], octave)
}
