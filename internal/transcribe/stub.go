package transcribe

import (
	"errors"
	"fmt"
	"math"

	"github.com/Cyronlee/TransFlow/internal/audio"
)

// silenceRMS is the energy below which stub backends treat audio as silent.
const silenceRMS = 1e-3

// stubChunk is the stub streaming decoder's internal step, 100 ms.
const stubChunk = audio.SampleRate / 10

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// StubTranscriber produces deterministic transcripts without a model.
// Silent segments decode to "".
type StubTranscriber struct {
	text string
}

// NewStubTranscriber returns a Transcriber that answers every non-silent
// segment with text, or with a duration placeholder when text is empty.
func NewStubTranscriber(text string) *StubTranscriber {
	return &StubTranscriber{text: text}
}

// Process implements Transcriber.
func (t *StubTranscriber) Process(samples []float32) (string, error) {
	if rms(samples) < silenceRMS {
		return "", nil
	}
	if t.text != "" {
		return t.text, nil
	}
	return fmt.Sprintf("[speech %.2fs]", float64(len(samples))/audio.SampleRate), nil
}

// Close implements Transcriber.
func (t *StubTranscriber) Close() error { return nil }

// StubStreamingDecoder simulates a streaming recognizer. Its hypothesis is
// the amount of voiced audio in the current utterance, and it endpoints
// after a fixed run of trailing silence.
type StubStreamingDecoder struct {
	trailing int

	pending  []float32
	voiced   int
	silence  int
	finished bool
}

// NewStubStreamingDecoder endpoints after trailingSeconds of silence
// following speech; <= 0 selects 0.8 s.
func NewStubStreamingDecoder(trailingSeconds float64) *StubStreamingDecoder {
	if trailingSeconds <= 0 {
		trailingSeconds = 0.8
	}
	return &StubStreamingDecoder{trailing: int(trailingSeconds * audio.SampleRate)}
}

// AcceptWaveform implements StreamingDecoder.
func (d *StubStreamingDecoder) AcceptWaveform(samples []float32) error {
	if d.finished {
		return errors.New("transcribe: stub: waveform after input finished")
	}
	d.pending = append(d.pending, samples...)
	return nil
}

// IsReady implements StreamingDecoder.
func (d *StubStreamingDecoder) IsReady() bool {
	return len(d.pending) >= stubChunk || (d.finished && len(d.pending) > 0)
}

// Decode implements StreamingDecoder.
func (d *StubStreamingDecoder) Decode() error {
	n := min(stubChunk, len(d.pending))
	chunk := d.pending[:n]
	switch {
	case rms(chunk) >= silenceRMS:
		d.voiced += n
		d.silence = 0
	case d.voiced > 0:
		d.silence += n
	}
	d.pending = d.pending[n:]
	return nil
}

// Text implements StreamingDecoder.
func (d *StubStreamingDecoder) Text() string {
	if d.voiced == 0 {
		return ""
	}
	return fmt.Sprintf("[speech %.1fs]", float64(d.voiced)/audio.SampleRate)
}

// IsEndpoint implements StreamingDecoder.
func (d *StubStreamingDecoder) IsEndpoint() bool {
	return d.voiced > 0 && d.silence >= d.trailing
}

// Reset implements StreamingDecoder.
func (d *StubStreamingDecoder) Reset() {
	d.voiced = 0
	d.silence = 0
}

// InputFinished implements StreamingDecoder.
func (d *StubStreamingDecoder) InputFinished() { d.finished = true }

// Close implements StreamingDecoder.
func (d *StubStreamingDecoder) Close() error { return nil }
