//go:build whispercpp

package transcribe

import (
	"fmt"
	"io"
	"strings"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/Cyronlee/TransFlow/internal/config"
)

// WhisperTranscriber wraps a whisper.cpp model for speech-to-text. A fresh
// context is created per segment so no decoder state carries over.
type WhisperTranscriber struct {
	model    whisper.Model
	language string
	threads  uint
	beamSize int
}

// NewWhisperTranscriber loads a whisper model from the given path.
// The caller must call Close() when done.
func NewWhisperTranscriber(modelPath string, cfg *config.DecoderConfig) (*WhisperTranscriber, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: load whisper model %q: %w", modelPath, err)
	}
	t := &WhisperTranscriber{model: model, language: cfg.Language, beamSize: cfg.BeamSize}
	if cfg.NumThreads > 0 {
		t.threads = uint(cfg.NumThreads)
	}
	return t, nil
}

// Close releases the whisper model resources. It is safe to call twice.
func (t *WhisperTranscriber) Close() error {
	if t.model == nil {
		return nil
	}
	err := t.model.Close()
	t.model = nil
	return err
}

// Process transcribes mono 16kHz float32 audio samples to text.
func (t *WhisperTranscriber) Process(samples []float32) (string, error) {
	if t.model == nil {
		return "", fmt.Errorf("transcribe: whisper model closed")
	}
	ctx, err := t.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("transcribe: create context: %w", err)
	}
	if t.threads > 0 {
		ctx.SetThreads(t.threads)
	}
	if t.beamSize > 0 {
		ctx.SetBeamSize(t.beamSize)
	}
	if t.language != "" && t.language != "auto" {
		if err := ctx.SetLanguage(t.language); err != nil {
			return "", fmt.Errorf("transcribe: set language %q: %w", t.language, err)
		}
	}

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("transcribe: process: %w", err)
	}

	var segments []string
	for {
		seg, err := ctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("transcribe: next segment: %w", err)
		}
		segments = append(segments, strings.TrimSpace(seg.Text))
	}

	return strings.TrimSpace(strings.Join(segments, " ")), nil
}
