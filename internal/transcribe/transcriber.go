// Package transcribe provides speech-to-text backends.
//
// Supported backends:
//   - whisper: whisper.cpp via Go bindings, offline only (build tag whispercpp)
//   - sherpa: sherpa-onnx transducers, offline and streaming (build tag sherpa)
//   - stub: deterministic placeholder output, always available
package transcribe

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Cyronlee/TransFlow/internal/config"
	"github.com/Cyronlee/TransFlow/internal/models"
)

// ErrBackendUnavailable is returned when a backend was not compiled into
// this binary.
var ErrBackendUnavailable = errors.New("transcribe: backend not available in this build")

// Transcriber converts one bounded segment of audio to text. Calls are
// independent; nothing carries over between segments.
type Transcriber interface {
	// Process transcribes mono 16kHz float32 audio samples to text.
	Process(samples []float32) (string, error)
	// Close releases backend resources.
	Close() error
}

// StreamingDecoder is an incremental recognizer with its own endpointing.
//
// Legal call sequence per feed: AcceptWaveform, then Decode while IsReady,
// then Text and IsEndpoint. After an endpoint, Reset starts the next
// utterance. InputFinished marks end of stream; drain once more afterwards.
// Implementations wrap native state and must be confined to one goroutine.
type StreamingDecoder interface {
	AcceptWaveform(samples []float32) error
	IsReady() bool
	Decode() error
	Text() string
	IsEndpoint() bool
	Reset()
	InputFinished()
	Close() error
}

// New creates an offline Transcriber based on the backend setting.
func New(cfg *config.DecoderConfig, log zerolog.Logger) (Transcriber, error) {
	log = log.With().Str("component", "transcribe").Str("backend", cfg.Backend).Logger()
	switch cfg.Backend {
	case "whisper", "":
		t, err := NewWhisperTranscriber(models.Whisper(cfg.ModelDir, cfg.WhisperModel), cfg)
		if err != nil {
			return nil, err
		}
		return t, nil
	case "sherpa":
		t, err := NewSherpaTranscriber(models.Transducer(cfg.ModelDir), cfg)
		if err != nil {
			return nil, err
		}
		return t, nil
	case "stub":
		log.Warn().Msg("using stub transcriber, output is placeholder text")
		return NewStubTranscriber(""), nil
	default:
		return nil, fmt.Errorf("transcribe: unknown backend %q (supported: whisper, sherpa, stub)", cfg.Backend)
	}
}

// NewStreaming creates a StreamingDecoder based on the backend setting.
func NewStreaming(cfg *config.DecoderConfig, log zerolog.Logger) (StreamingDecoder, error) {
	log = log.With().Str("component", "transcribe").Str("backend", cfg.Backend).Logger()
	switch cfg.Backend {
	case "sherpa":
		d, err := NewSherpaStreamingDecoder(models.Transducer(models.Streaming(cfg.ModelDir)), cfg)
		if err != nil {
			return nil, err
		}
		return d, nil
	case "stub":
		log.Warn().Msg("using stub streaming decoder, output is placeholder text")
		return NewStubStreamingDecoder(cfg.Rule1MinTrailingSilence), nil
	case "whisper", "":
		return nil, fmt.Errorf("transcribe: backend %q has no streaming decoder", cfg.Backend)
	default:
		return nil, fmt.Errorf("transcribe: unknown backend %q (supported: sherpa, stub)", cfg.Backend)
	}
}
