// Package vad splits a frame stream into speech segments.
//
// A Classifier scores each fixed-size frame; the Segmenter runs the
// silence/speech state machine over those scores and queues completed
// segments for the decoder.
package vad

import (
	"errors"
	"fmt"
	"math"

	"github.com/Cyronlee/TransFlow/internal/config"
	"github.com/Cyronlee/TransFlow/internal/models"
)

// ErrClassifierUnavailable is returned when the requested classifier was not
// compiled into this binary.
var ErrClassifierUnavailable = errors.New("vad: classifier not available in this build")

// Classifier scores one frame with a speech probability in [0, 1].
// Implementations are stateful and confined to one goroutine.
type Classifier interface {
	Probability(frame []float32) (float32, error)
	Reset()
	Close() error
}

// EnergyClassifier scores frames by RMS energy. A frame whose RMS equals
// Level scores 0.5.
type EnergyClassifier struct {
	Level float64
}

// NewEnergyClassifier returns an EnergyClassifier; level <= 0 selects 0.01.
func NewEnergyClassifier(level float64) *EnergyClassifier {
	if level <= 0 {
		level = 0.01
	}
	return &EnergyClassifier{Level: level}
}

// Probability implements Classifier.
func (c *EnergyClassifier) Probability(frame []float32) (float32, error) {
	if len(frame) == 0 {
		return 0, nil
	}
	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(frame)))
	return float32(rms / (rms + c.Level)), nil
}

// Reset implements Classifier. Energy scoring is stateless.
func (c *EnergyClassifier) Reset() {}

// Close implements Classifier.
func (c *EnergyClassifier) Close() error { return nil }

// NewClassifier builds the classifier named by cfg.Classifier. Model files
// are resolved against modelDir.
func NewClassifier(cfg *config.VADConfig, modelDir string) (Classifier, error) {
	switch cfg.Classifier {
	case "energy", "":
		return NewEnergyClassifier(cfg.EnergyLevel), nil
	case "silero":
		c, err := NewSileroClassifier(models.VAD(modelDir, cfg.ModelFile), float32(cfg.Threshold), cfg.SpeechPadMs)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("vad: unknown classifier %q (supported: energy, silero)", cfg.Classifier)
	}
}
