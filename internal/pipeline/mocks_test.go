package pipeline

import (
	"errors"
	"fmt"

	"github.com/Cyronlee/TransFlow/internal/audio"
)

// scriptedDecoder is a StreamingDecoder whose hypothesis is derived from the
// number of frames fed since the last reset. Each feed needs two decode
// steps before the hypothesis advances.
type scriptedDecoder struct {
	text       func(framesSinceReset int) string
	endpointAt int // accepts after which a single endpoint fires; 0 = never

	accepts    int
	sinceReset int
	decoded    int // frames whose decode steps completed
	steps      int
	fired      bool
	finished   bool
	resets     int
	closed     bool
}

func (d *scriptedDecoder) AcceptWaveform([]float32) error {
	if d.finished {
		return errors.New("input finished")
	}
	d.accepts++
	d.sinceReset++
	d.steps += 2
	return nil
}

func (d *scriptedDecoder) IsReady() bool { return d.steps > 0 }

func (d *scriptedDecoder) Decode() error {
	d.steps--
	if d.steps%2 == 0 {
		d.decoded = d.sinceReset
	}
	return nil
}

func (d *scriptedDecoder) Text() string { return d.text(d.decoded) }

func (d *scriptedDecoder) IsEndpoint() bool {
	return d.endpointAt > 0 && !d.fired && d.accepts >= d.endpointAt
}

func (d *scriptedDecoder) Reset() {
	if d.IsEndpoint() {
		d.fired = true
	}
	d.resets++
	d.sinceReset = 0
	d.decoded = 0
}

func (d *scriptedDecoder) InputFinished() { d.finished = true }
func (d *scriptedDecoder) Close() error   { d.closed = true; return nil }

func counting(n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("word%d", n)
}

// fixedTranscriber returns text for every call; err, if set, fails the
// first call only.
type fixedTranscriber struct {
	text   string
	err    error
	calls  int
	closed bool
}

func (f *fixedTranscriber) Process([]float32) (string, error) {
	f.calls++
	if f.err != nil && f.calls == 1 {
		return "", f.err
	}
	return f.text, nil
}

func (f *fixedTranscriber) Close() error { f.closed = true; return nil }

// alwaysSpeech classifies every frame as speech.
type alwaysSpeech struct{}

func (alwaysSpeech) Probability([]float32) (float32, error) { return 1, nil }
func (alwaysSpeech) Reset()                                  {}
func (alwaysSpeech) Close() error                            { return nil }

func frame(offset int64, n int) audio.Frame {
	return audio.Frame{Samples: make([]float32, n), Offset: offset}
}

type recorder struct{ events []Event }

func (r *recorder) emit(ev Event) { r.events = append(r.events, ev) }

func (r *recorder) kinds() []EventKind {
	out := make([]EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}
