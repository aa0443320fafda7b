//go:build silero

package vad

import (
	"fmt"

	"github.com/streamer45/silero-vad-go/speech"

	"github.com/Cyronlee/TransFlow/internal/audio"
)

// detector is the part of speech.Detector the classifier drives.
type detector interface {
	Detect(pcm []float32) ([]speech.Segment, error)
	Reset() error
	Destroy() error
}

// SileroClassifier wraps a Silero VAD ONNX detector. The detector owns
// native state; Close releases it exactly once.
type SileroClassifier struct {
	det    detector
	win    *windower
	active bool
	// resetErr is reported by the next Probability call.
	resetErr error
}

// NewSileroClassifier loads the Silero model at modelPath. Frames of any
// size are accepted; the detector sees them regrouped into 512-sample
// windows.
func NewSileroClassifier(modelPath string, threshold float32, speechPadMs int) (*SileroClassifier, error) {
	det, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:  modelPath,
		SampleRate: audio.SampleRate,
		Threshold:  threshold,
		// The segmenter applies its own silence hangover.
		MinSilenceDurationMs: 0,
		SpeechPadMs:          speechPadMs,
	})
	if err != nil {
		return nil, fmt.Errorf("vad: load silero model %q: %w", modelPath, err)
	}
	return newSileroClassifier(det), nil
}

func newSileroClassifier(det detector) *SileroClassifier {
	return &SileroClassifier{det: det, win: newWindower(sileroWindow)}
}

// Probability reports 1 while the detector is inside a speech region and 0
// otherwise. Samples short of a whole window are held until the next call,
// which keeps the previous state.
func (c *SileroClassifier) Probability(frame []float32) (float32, error) {
	if c.det == nil {
		return 0, fmt.Errorf("vad: silero classifier closed")
	}
	if err := c.resetErr; err != nil {
		c.resetErr = nil
		return 0, err
	}
	if batch := c.win.push(frame); batch != nil {
		segs, err := c.det.Detect(batch)
		if err != nil {
			return 0, fmt.Errorf("vad: silero detect: %w", err)
		}
		for _, s := range segs {
			c.active = s.SpeechEndAt == 0
		}
	}
	if c.active {
		return 1, nil
	}
	return 0, nil
}

// Reset clears the detector's recurrent state and any buffered samples. A
// detector reset failure is returned by the next Probability call.
func (c *SileroClassifier) Reset() {
	c.active = false
	c.win.reset()
	if c.det == nil {
		return
	}
	if err := c.det.Reset(); err != nil {
		c.resetErr = fmt.Errorf("vad: silero reset: %w", err)
	}
}

// Close releases the native detector.
func (c *SileroClassifier) Close() error {
	if c.det == nil {
		return nil
	}
	err := c.det.Destroy()
	c.det = nil
	if err != nil {
		return fmt.Errorf("vad: destroy silero detector: %w", err)
	}
	return nil
}
