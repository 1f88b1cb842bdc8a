// Package seqjson exports a compiled event list as JSON, using the faster
// drop-in jsoniter codec the teacher's storage layer would reach for if it
// needed a wire format rather than a file format (this package never
// touches disk; see SPEC_FULL.md's domain-stack note on persistence).
package seqjson

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/brightloop/seqcore/internal/compiler"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EventDoc is the JSON-facing shape of a compiler.Event: pointer fields
// marshal to `null` for rests, matching spec §3's "Midi/Freq are absent
// for rests" wording literally rather than via zero values.
type EventDoc struct {
	T          float64  `json:"t"`
	Dur        float64  `json:"dur"`
	Kind       string   `json:"kind"`
	Midi       *int     `json:"midi"`
	Freq       *float64 `json:"freq"`
	Velocity   float64  `json:"velocity"`
	Instrument string   `json:"instrument"`
	Waveform   string   `json:"waveform"`
	Track      string   `json:"track,omitempty"`
}

// Doc is the JSON-facing shape of a compiler.CompilationResult.
type Doc struct {
	BPM           float64    `json:"bpm"`
	TotalDuration float64    `json:"total_duration"`
	EventCount    int        `json:"event_count"`
	Events        []EventDoc `json:"events"`
}

func toDoc(res *compiler.CompilationResult) Doc {
	events := make([]EventDoc, len(res.Events))
	for i, e := range res.Events {
		kind := "note"
		if e.Kind == compiler.EventRest {
			kind = "rest"
		}
		events[i] = EventDoc{
			T: e.T, Dur: e.Dur, Kind: kind,
			Midi: e.Midi, Freq: e.Freq, Velocity: e.Velocity,
			Instrument: e.Instrument, Waveform: e.Waveform, Track: e.Track,
		}
	}
	return Doc{
		BPM:           res.BPM,
		TotalDuration: res.TotalDuration,
		EventCount:    res.EventCount,
		Events:        events,
	}
}

// Marshal renders res as indented JSON suitable for stdout or a pipe.
func Marshal(res *compiler.CompilationResult) ([]byte, error) {
	return json.MarshalIndent(toDoc(res), "", "  ")
}
