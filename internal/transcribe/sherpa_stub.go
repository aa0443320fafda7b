//go:build !sherpa

package transcribe

import (
	"github.com/Cyronlee/TransFlow/internal/config"
	"github.com/Cyronlee/TransFlow/internal/models"
)

// SherpaTranscriber is unavailable without the sherpa build tag.
type SherpaTranscriber struct{}

// NewSherpaTranscriber returns ErrBackendUnavailable in builds without the
// sherpa tag.
func NewSherpaTranscriber(models.Paths, *config.DecoderConfig) (*SherpaTranscriber, error) {
	return nil, ErrBackendUnavailable
}

func (*SherpaTranscriber) Process([]float32) (string, error) { return "", ErrBackendUnavailable }
func (*SherpaTranscriber) Close() error                      { return nil }

// SherpaStreamingDecoder is unavailable without the sherpa build tag.
type SherpaStreamingDecoder struct{}

// NewSherpaStreamingDecoder returns ErrBackendUnavailable in builds without
// the sherpa tag.
func NewSherpaStreamingDecoder(models.Paths, *config.DecoderConfig) (*SherpaStreamingDecoder, error) {
	return nil, ErrBackendUnavailable
}

func (*SherpaStreamingDecoder) AcceptWaveform([]float32) error { return ErrBackendUnavailable }
func (*SherpaStreamingDecoder) IsReady() bool                  { return false }
func (*SherpaStreamingDecoder) Decode() error                  { return ErrBackendUnavailable }
func (*SherpaStreamingDecoder) Text() string                   { return "" }
func (*SherpaStreamingDecoder) IsEndpoint() bool               { return false }
func (*SherpaStreamingDecoder) Reset()                         {}
func (*SherpaStreamingDecoder) InputFinished()                 {}
func (*SherpaStreamingDecoder) Close() error                   { return nil }
