package oscsink

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brightloop/seqcore/internal/compiler"
)

func TestSendSkipsRestEvents(t *testing.T) {
	s := New("127.0.0.1", 57120, nil)
	// A rest has no Midi; Send must return before touching the client.
	assert.NotPanics(t, func() {
		s.Send(compiler.Event{Kind: compiler.EventRest}, 0)
	})
}

func TestNoteSinkAdapterMatchesSchedulerSignature(t *testing.T) {
	s := New("127.0.0.1", 57120, func(name string) int32 { return 1 })
	sink := s.NoteSink()
	midi := 60
	assert.NotPanics(t, func() {
		sink(compiler.Event{Kind: compiler.EventNote, Midi: &midi, Track: "melody"}, 1.5)
	})
}
