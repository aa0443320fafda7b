package pipeline

import (
	"errors"
	"strings"

	"github.com/Cyronlee/TransFlow/internal/audio"
	"github.com/Cyronlee/TransFlow/internal/transcribe"
	"github.com/Cyronlee/TransFlow/internal/vad"
)

// OfflineStrategy gates audio with the VAD segmenter and decodes each
// completed segment in one call.
type OfflineStrategy struct {
	base
	seg *vad.Segmenter
	dec transcribe.Transcriber

	// OnSegment, if set, sees each segment before decoding.
	OnSegment func(vad.SpeechSegment)

	segments int
}

// NewOfflineStrategy takes ownership of seg and dec.
func NewOfflineStrategy(seg *vad.Segmenter, dec transcribe.Transcriber) *OfflineStrategy {
	return &OfflineStrategy{base: newBase(), seg: seg, dec: dec}
}

// FrameSize implements Strategy.
func (s *OfflineStrategy) FrameSize() int { return s.seg.FrameSize() }

// AcceptFrame implements Strategy.
func (s *OfflineStrategy) AcceptFrame(f audio.Frame, emit EmitFunc) {
	if err := s.seg.AcceptFrame(f); err != nil {
		s.stats.Failures.Add(1)
		s.log.Warn().Err(err).Int64("offset", f.Offset).Msg("vad frame failed, skipping")
		return
	}
	s.decodeCompleted(emit)
}

// Finish implements Strategy.
func (s *OfflineStrategy) Finish(emit EmitFunc) {
	s.seg.Flush()
	s.decodeCompleted(emit)
}

func (s *OfflineStrategy) decodeCompleted(emit EmitFunc) {
	for s.seg.HasCompletedSegment() {
		seg, err := s.seg.PopSegment()
		if err != nil {
			return
		}
		s.segments++
		s.stats.Segments.Add(1)
		if s.OnSegment != nil {
			s.OnSegment(seg)
		}

		text, err := s.dec.Process(seg.Samples)
		if err != nil {
			s.stats.Failures.Add(1)
			s.log.Warn().Err(err).
				Int("segment", s.segments).
				Dur("start", seg.StartTime()).
				Msg("segment decode failed, skipping")
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			s.log.Debug().Int("segment", s.segments).Dur("duration", seg.Duration()).Msg("empty decode suppressed")
			continue
		}
		emit(Final(text, seg.StartTime()))
	}
}

// Close releases the decoder and classifier.
func (s *OfflineStrategy) Close() error {
	return errors.Join(s.dec.Close(), s.seg.Close())
}
