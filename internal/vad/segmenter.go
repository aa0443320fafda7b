package vad

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Cyronlee/TransFlow/internal/audio"
	"github.com/Cyronlee/TransFlow/internal/config"
)

// ErrNoSegment is returned by PopSegment when no segment is queued.
var ErrNoSegment = errors.New("vad: no completed segment")

// State is the segmenter's position in the silence/speech state machine.
type State int

const (
	Silence State = iota
	Speech
)

func (s State) String() string {
	if s == Speech {
		return "speech"
	}
	return "silence"
}

// Config sizes the segmenter. Durations are in seconds and are rounded up
// to whole frames.
type Config struct {
	FrameSize          int
	Threshold          float32
	MinSpeechDuration  float64
	MinSilenceDuration float64
	MaxSpeechDuration  float64
	// BufferSeconds caps the audio held in completed but unpopped segments.
	// Zero disables the cap.
	BufferSeconds float64
}

// ConfigFrom converts the YAML VAD section.
func ConfigFrom(cfg *config.VADConfig) Config {
	return Config{
		FrameSize:          cfg.WindowSize,
		Threshold:          float32(cfg.Threshold),
		MinSpeechDuration:  cfg.MinSpeechDuration,
		MinSilenceDuration: cfg.MinSilenceDuration,
		MaxSpeechDuration:  cfg.MaxSpeechDuration,
		BufferSeconds:      cfg.BufferSeconds,
	}
}

// SpeechSegment is one contiguous speech region. Start is the stream offset
// of its first sample.
type SpeechSegment struct {
	Start   int64
	Samples []float32
}

// StartTime returns the stream time at which the segment begins.
func (s SpeechSegment) StartTime() time.Duration {
	return audio.SamplesToDuration(s.Start)
}

// Duration returns the segment length.
func (s SpeechSegment) Duration() time.Duration {
	return audio.SamplesToDuration(int64(len(s.Samples)))
}

// Segmenter turns classified frames into a FIFO of speech segments.
//
// In Silence, frames scoring above the threshold are held as pending; once
// MinSpeechDuration of consecutive speech frames has been seen they open a
// segment. In Speech, MinSilenceDuration of consecutive non-speech frames
// closes the segment with the trailing silence trimmed, and a segment
// reaching MaxSpeechDuration is split in place.
//
// A Segmenter is confined to one goroutine.
type Segmenter struct {
	cls       Classifier
	frameSize int
	threshold float32

	minSpeech  int // frames
	minSilence int // frames
	maxSamples int
	maxQueued  int // samples, 0 = unbounded

	state State

	pending      []float32
	pendingStart int64
	speechRun    int

	current      []float32
	currentStart int64
	silenceRun   int

	queue   []SpeechSegment
	queued  int
	dropped int
}

// NewSegmenter creates a Segmenter scoring frames with cls. The segmenter
// takes ownership of cls and closes it in Close.
func NewSegmenter(cfg Config, cls Classifier) (*Segmenter, error) {
	if cfg.FrameSize <= 0 {
		return nil, fmt.Errorf("vad: %w", audio.ErrInvalidFrameSize)
	}
	if cls == nil {
		return nil, errors.New("vad: nil classifier")
	}
	if cfg.MaxSpeechDuration <= 0 {
		return nil, errors.New("vad: max speech duration must be > 0")
	}
	s := &Segmenter{
		cls:        cls,
		frameSize:  cfg.FrameSize,
		threshold:  cfg.Threshold,
		minSpeech:  framesFor(cfg.MinSpeechDuration, cfg.FrameSize),
		minSilence: framesFor(cfg.MinSilenceDuration, cfg.FrameSize),
		maxSamples: int(math.Round(cfg.MaxSpeechDuration * audio.SampleRate)),
		maxQueued:  int(math.Round(cfg.BufferSeconds * audio.SampleRate)),
	}
	return s, nil
}

// framesFor converts seconds to a frame count, rounding up, at least 1.
func framesFor(seconds float64, frameSize int) int {
	n := int(math.Ceil(seconds*audio.SampleRate/float64(frameSize) - 1e-9))
	return max(n, 1)
}

// FrameSize returns the frame length the segmenter expects.
func (s *Segmenter) FrameSize() int { return s.frameSize }

// State returns the current state.
func (s *Segmenter) State() State { return s.state }

// IsSpeech reports whether a segment is open.
func (s *Segmenter) IsSpeech() bool { return s.state == Speech }

// Dropped returns how many completed segments were discarded because the
// queue exceeded its buffer cap.
func (s *Segmenter) Dropped() int { return s.dropped }

// AcceptFrame scores one frame and advances the state machine.
func (s *Segmenter) AcceptFrame(f audio.Frame) error {
	if len(f.Samples) != s.frameSize {
		return fmt.Errorf("vad: frame of %d samples, want %d: %w", len(f.Samples), s.frameSize, audio.ErrInvalidFrameSize)
	}
	p, err := s.cls.Probability(f.Samples)
	if err != nil {
		return fmt.Errorf("vad: classify frame at %d: %w", f.Offset, err)
	}
	speech := p > s.threshold

	switch s.state {
	case Silence:
		if !speech {
			s.pending = s.pending[:0]
			s.speechRun = 0
			return nil
		}
		if s.speechRun == 0 {
			s.pendingStart = f.Offset
		}
		s.pending = append(s.pending, f.Samples...)
		s.speechRun++
		if s.speechRun >= s.minSpeech {
			s.open()
		}

	case Speech:
		s.current = append(s.current, f.Samples...)
		if speech {
			s.silenceRun = 0
		} else {
			s.silenceRun++
		}
		switch {
		case s.silenceRun >= s.minSilence:
			s.closeCurrent(s.silenceRun * s.frameSize)
			s.state = Silence
		case len(s.current) >= s.maxSamples:
			next := f.Offset + int64(len(f.Samples))
			s.closeCurrent(0)
			s.currentStart = next
		}
	}
	return nil
}

func (s *Segmenter) open() {
	s.state = Speech
	s.current = append([]float32(nil), s.pending...)
	s.currentStart = s.pendingStart
	s.pending = s.pending[:0]
	s.speechRun = 0
	s.silenceRun = 0
}

// closeCurrent enqueues the open segment minus trim trailing samples.
func (s *Segmenter) closeCurrent(trim int) {
	n := len(s.current) - trim
	if n > 0 {
		s.enqueue(SpeechSegment{Start: s.currentStart, Samples: s.current[:n:n]})
	}
	s.current = nil
	s.silenceRun = 0
}

func (s *Segmenter) enqueue(seg SpeechSegment) {
	s.queue = append(s.queue, seg)
	s.queued += len(seg.Samples)
	for s.maxQueued > 0 && s.queued > s.maxQueued && len(s.queue) > 1 {
		s.queued -= len(s.queue[0].Samples)
		s.queue[0] = SpeechSegment{}
		s.queue = s.queue[1:]
		s.dropped++
	}
}

// HasCompletedSegment reports whether PopSegment has a segment to return.
func (s *Segmenter) HasCompletedSegment() bool {
	return len(s.queue) > 0
}

// PopSegment removes and returns the oldest completed segment. It returns
// ErrNoSegment when the queue is empty.
func (s *Segmenter) PopSegment() (SpeechSegment, error) {
	if len(s.queue) == 0 {
		return SpeechSegment{}, ErrNoSegment
	}
	seg := s.queue[0]
	s.queue[0] = SpeechSegment{}
	s.queue = s.queue[1:]
	s.queued -= len(seg.Samples)
	return seg, nil
}

// Flush closes the open segment at end of stream even if it is shorter than
// the usual minimum, trimming any trailing silence. A pending burst that
// never reached MinSpeechDuration is discarded.
func (s *Segmenter) Flush() {
	if s.state == Speech {
		s.closeCurrent(s.silenceRun * s.frameSize)
	}
	s.state = Silence
	s.pending = s.pending[:0]
	s.speechRun = 0
}

// Reset discards all state, including queued segments, and resets the
// classifier.
func (s *Segmenter) Reset() {
	s.state = Silence
	s.pending = s.pending[:0]
	s.speechRun = 0
	s.current = nil
	s.silenceRun = 0
	s.queue = nil
	s.queued = 0
	s.cls.Reset()
}

// Close releases the classifier.
func (s *Segmenter) Close() error {
	return s.cls.Close()
}
