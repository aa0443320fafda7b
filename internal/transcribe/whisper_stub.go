//go:build !whispercpp

package transcribe

import "github.com/Cyronlee/TransFlow/internal/config"

// WhisperTranscriber is unavailable without the whispercpp build tag.
type WhisperTranscriber struct{}

// NewWhisperTranscriber returns ErrBackendUnavailable in builds without the
// whispercpp tag.
func NewWhisperTranscriber(string, *config.DecoderConfig) (*WhisperTranscriber, error) {
	return nil, ErrBackendUnavailable
}

// Process implements Transcriber.
func (*WhisperTranscriber) Process([]float32) (string, error) {
	return "", ErrBackendUnavailable
}

// Close implements Transcriber.
func (*WhisperTranscriber) Close() error { return nil }
