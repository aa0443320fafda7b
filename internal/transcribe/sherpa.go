//go:build sherpa

package transcribe

import (
	"errors"
	"fmt"
	"strings"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"github.com/Cyronlee/TransFlow/internal/audio"
	"github.com/Cyronlee/TransFlow/internal/config"
	"github.com/Cyronlee/TransFlow/internal/models"
)

const featureDim = 80

// SherpaTranscriber decodes whole segments with a sherpa-onnx offline
// transducer. Each Process call uses a fresh stream.
type SherpaTranscriber struct {
	rec *sherpa.OfflineRecognizer
}

// NewSherpaTranscriber loads an offline transducer from paths.
func NewSherpaTranscriber(paths models.Paths, cfg *config.DecoderConfig) (*SherpaTranscriber, error) {
	c := sherpa.OfflineRecognizerConfig{}
	c.FeatConfig = sherpa.FeatureConfig{SampleRate: audio.SampleRate, FeatureDim: featureDim}
	c.ModelConfig.Transducer = sherpa.OfflineTransducerModelConfig{
		Encoder: paths.Encoder,
		Decoder: paths.Decoder,
		Joiner:  paths.Joiner,
	}
	c.ModelConfig.Tokens = paths.Tokens
	c.ModelConfig.NumThreads = cfg.NumThreads
	c.ModelConfig.Provider = "cpu"
	c.DecodingMethod = cfg.DecodingMethod
	c.MaxActivePaths = cfg.BeamSize
	c.HotwordsFile = cfg.HotwordsFile

	rec := sherpa.NewOfflineRecognizer(&c)
	if rec == nil {
		return nil, fmt.Errorf("transcribe: load sherpa offline model from %q: initialization failed", paths.Encoder)
	}
	return &SherpaTranscriber{rec: rec}, nil
}

// Process implements Transcriber.
func (t *SherpaTranscriber) Process(samples []float32) (string, error) {
	if t.rec == nil {
		return "", errors.New("transcribe: sherpa recognizer closed")
	}
	stream := sherpa.NewOfflineStream(t.rec)
	if stream == nil {
		return "", errors.New("transcribe: create sherpa offline stream")
	}
	defer sherpa.DeleteOfflineStream(stream)

	stream.AcceptWaveform(audio.SampleRate, samples)
	t.rec.Decode(stream)
	return strings.TrimSpace(stream.GetResult().Text), nil
}

// Close implements Transcriber. It is safe to call twice.
func (t *SherpaTranscriber) Close() error {
	if t.rec != nil {
		sherpa.DeleteOfflineRecognizer(t.rec)
		t.rec = nil
	}
	return nil
}

// SherpaStreamingDecoder owns one online recognizer and its single stream.
type SherpaStreamingDecoder struct {
	rec    *sherpa.OnlineRecognizer
	stream *sherpa.OnlineStream
}

// NewSherpaStreamingDecoder loads a streaming transducer from paths with
// endpointing enabled.
func NewSherpaStreamingDecoder(paths models.Paths, cfg *config.DecoderConfig) (*SherpaStreamingDecoder, error) {
	c := sherpa.OnlineRecognizerConfig{}
	c.FeatConfig = sherpa.FeatureConfig{SampleRate: audio.SampleRate, FeatureDim: featureDim}
	c.ModelConfig.Transducer = sherpa.OnlineTransducerModelConfig{
		Encoder: paths.Encoder,
		Decoder: paths.Decoder,
		Joiner:  paths.Joiner,
	}
	c.ModelConfig.Tokens = paths.Tokens
	c.ModelConfig.NumThreads = cfg.NumThreads
	c.ModelConfig.Provider = "cpu"
	c.DecodingMethod = cfg.DecodingMethod
	c.MaxActivePaths = cfg.BeamSize
	c.HotwordsFile = cfg.HotwordsFile
	c.EnableEndpoint = 1
	c.Rule1MinTrailingSilence = float32(cfg.Rule1MinTrailingSilence)
	c.Rule2MinTrailingSilence = float32(cfg.Rule2MinTrailingSilence)
	c.Rule3MinUtteranceLength = float32(cfg.Rule3MinUtteranceLength)

	rec := sherpa.NewOnlineRecognizer(&c)
	if rec == nil {
		return nil, fmt.Errorf("transcribe: load sherpa streaming model from %q: initialization failed", paths.Encoder)
	}
	stream := sherpa.NewOnlineStream(rec)
	if stream == nil {
		sherpa.DeleteOnlineRecognizer(rec)
		return nil, errors.New("transcribe: create sherpa online stream")
	}
	return &SherpaStreamingDecoder{rec: rec, stream: stream}, nil
}

// AcceptWaveform implements StreamingDecoder.
func (d *SherpaStreamingDecoder) AcceptWaveform(samples []float32) error {
	if d.stream == nil {
		return errors.New("transcribe: sherpa decoder closed")
	}
	d.stream.AcceptWaveform(audio.SampleRate, samples)
	return nil
}

// IsReady implements StreamingDecoder.
func (d *SherpaStreamingDecoder) IsReady() bool {
	return d.stream != nil && d.rec.IsReady(d.stream)
}

// Decode implements StreamingDecoder.
func (d *SherpaStreamingDecoder) Decode() error {
	if d.stream == nil {
		return errors.New("transcribe: sherpa decoder closed")
	}
	d.rec.Decode(d.stream)
	return nil
}

// Text implements StreamingDecoder.
func (d *SherpaStreamingDecoder) Text() string {
	if d.stream == nil {
		return ""
	}
	return d.rec.GetResult(d.stream).Text
}

// IsEndpoint implements StreamingDecoder.
func (d *SherpaStreamingDecoder) IsEndpoint() bool {
	return d.stream != nil && d.rec.IsEndpoint(d.stream)
}

// Reset implements StreamingDecoder.
func (d *SherpaStreamingDecoder) Reset() {
	if d.stream != nil {
		d.rec.Reset(d.stream)
	}
}

// InputFinished implements StreamingDecoder.
func (d *SherpaStreamingDecoder) InputFinished() {
	if d.stream != nil {
		d.stream.InputFinished()
	}
}

// Close releases the stream and recognizer exactly once.
func (d *SherpaStreamingDecoder) Close() error {
	if d.stream != nil {
		sherpa.DeleteOnlineStream(d.stream)
		d.stream = nil
	}
	if d.rec != nil {
		sherpa.DeleteOnlineRecognizer(d.rec)
		d.rec = nil
	}
	return nil
}
