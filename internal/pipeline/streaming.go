package pipeline

import (
	"strings"

	"github.com/Cyronlee/TransFlow/internal/audio"
	"github.com/Cyronlee/TransFlow/internal/transcribe"
)

// StreamingStrategy feeds every frame to a streaming decoder and relies on
// the decoder's endpointing to finalize utterances.
type StreamingStrategy struct {
	base
	dec       transcribe.StreamingDecoder
	frameSize int

	lastPartial string
	uttStart    int64 // stream offset of the current utterance
	fed         int64 // stream offset after the last fed frame
}

// NewStreamingStrategy takes ownership of dec. Frames of frameSize samples
// are fed per AcceptFrame call.
func NewStreamingStrategy(dec transcribe.StreamingDecoder, frameSize int) *StreamingStrategy {
	return &StreamingStrategy{base: newBase(), dec: dec, frameSize: frameSize}
}

// FrameSize implements Strategy.
func (s *StreamingStrategy) FrameSize() int { return s.frameSize }

// AcceptFrame implements Strategy.
func (s *StreamingStrategy) AcceptFrame(f audio.Frame, emit EmitFunc) {
	if err := s.dec.AcceptWaveform(f.Samples); err != nil {
		s.stats.Failures.Add(1)
		s.log.Warn().Err(err).Int64("offset", f.Offset).Msg("decoder rejected frame, skipping")
		return
	}
	s.fed = f.Offset + int64(len(f.Samples))
	s.drain()

	text := strings.TrimSpace(s.dec.Text())
	if s.dec.IsEndpoint() {
		s.endUtterance(text, emit)
		return
	}
	if text != s.lastPartial {
		s.lastPartial = text
		emit(Partial(text, audio.SamplesToDuration(s.uttStart)))
	}
}

// Finish implements Strategy. Whatever hypothesis remains is finalized even
// if the decoder never reached an endpoint.
func (s *StreamingStrategy) Finish(emit EmitFunc) {
	s.dec.InputFinished()
	s.drain()
	s.endUtterance(strings.TrimSpace(s.dec.Text()), emit)
}

// drain decodes until the decoder has no ready work.
func (s *StreamingStrategy) drain() {
	for s.dec.IsReady() {
		if err := s.dec.Decode(); err != nil {
			s.stats.Failures.Add(1)
			s.log.Warn().Err(err).Int64("offset", s.fed).Msg("decode step failed")
			return
		}
	}
}

// endUtterance emits the final, resets the decoder and clears the preview.
func (s *StreamingStrategy) endUtterance(text string, emit EmitFunc) {
	emitted := false
	if text != "" {
		emit(Final(text, audio.SamplesToDuration(s.uttStart)))
		emitted = true
	}
	s.dec.Reset()
	if emitted || s.lastPartial != "" {
		emit(Partial("", audio.SamplesToDuration(s.fed)))
	}
	s.lastPartial = ""
	s.uttStart = s.fed
}

// Close releases the decoder. The strategy is unusable afterwards.
func (s *StreamingStrategy) Close() error {
	return s.dec.Close()
}
