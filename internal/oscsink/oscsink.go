// Package oscsink adapts a compiled event stream to an OSC note-sink,
// sending one "/note" message per dispatched event over the client the
// teacher's model.go uses for its own "/instrument" messages.
package oscsink

import (
	"log"

	"github.com/hypebeast/go-osc/osc"

	"github.com/brightloop/seqcore/internal/compiler"
	"github.com/brightloop/seqcore/internal/scheduler"
)

// Sink sends compiled note events to a remote OSC server as "/note"
// messages, one per event: positional (trackId, midi, freq, velocity, when,
// duration) followed by keyed "gain", "attack", "decay", "sustain",
// "release" and "waveform" pairs, in the keyed style the teacher's
// sendOSCInstrumentMessage uses for its own parameter list.
type Sink struct {
	client *osc.Client
	track  func(name string) int32
}

// New builds a Sink targeting host:port. trackIndex maps a track name to
// the integer track id OSC messages carry; pass nil to always send 0.
func New(host string, port int, trackIndex func(name string) int32) *Sink {
	return &Sink{
		client: osc.NewClient(host, port),
		track:  trackIndex,
	}
}

// NoteSink adapts Send to the scheduler.NoteSink signature.
func (s *Sink) NoteSink() scheduler.NoteSink {
	return s.Send
}

// Send transmits a single note event. Rests are dropped; when carries the
// scheduler's own audio-clock time and is reported as the "when" argument
// for receivers that want to re-derive latency.
func (s *Sink) Send(e compiler.Event, when float64) {
	if e.Kind != compiler.EventNote || e.Midi == nil {
		return
	}

	trackID := int32(0)
	if s.track != nil {
		trackID = s.track(e.Track)
	}

	msg := osc.NewMessage("/note")
	msg.Append(trackID)
	msg.Append(int32(*e.Midi))
	if e.Freq != nil {
		msg.Append(float32(*e.Freq))
	} else {
		msg.Append(float32(0))
	}
	msg.Append(float32(e.Velocity))
	msg.Append(float32(when))
	msg.Append(float32(e.Dur))

	gain := float32(1.0)
	if e.Gain != nil {
		gain = float32(*e.Gain)
	}
	msg.Append("gain")
	msg.Append(gain)

	msg.Append("attack")
	msg.Append(float32(e.Attack))
	msg.Append("decay")
	msg.Append(float32(e.Decay))
	msg.Append("sustain")
	msg.Append(float32(e.Sustain))
	msg.Append("release")
	msg.Append(float32(e.Release))
	msg.Append("waveform")
	msg.Append(e.Waveform)

	if err := s.client.Send(msg); err != nil {
		log.Printf("seqcore: osc send failed: %v", err)
	}
}
