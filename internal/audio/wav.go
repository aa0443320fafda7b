package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrUnsupportedSampleRate is returned for WAV input not recorded at SampleRate.
var ErrUnsupportedSampleRate = errors.New("audio: unsupported sample rate")

// ReadWAV decodes a PCM WAV file into mono float32 samples normalized by the
// source bit depth. Multi-channel input is downmixed.
func ReadWAV(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open wav: %w", err)
	}
	defer func() { _ = f.Close() }()
	return DecodeWAV(f)
}

// DecodeWAV is ReadWAV over an open reader.
func DecodeWAV(r io.ReadSeeker) ([]float32, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("audio: invalid wav file")
	}
	if dec.SampleRate != SampleRate {
		return nil, fmt.Errorf("%w: %d Hz (want %d Hz)", ErrUnsupportedSampleRate, dec.SampleRate, SampleRate)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("audio: decode wav: %w", err)
	}
	if buf == nil {
		return nil, errors.New("audio: empty wav buffer")
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int(1) << (bitDepth - 1))

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}

	channels := int(dec.NumChans)
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		channels = buf.Format.NumChannels
	}
	return downmix(samples, channels), nil
}

// WriteWAV encodes mono samples as a 16-bit PCM WAV file at SampleRate.
func WriteWAV(path string, samples []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audio: create wav: %w", err)
	}

	enc := wav.NewEncoder(f, SampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: SampleRate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		buf.Data[i] = int(math.Round(float64(clamp(s)) * 32767))
	}

	if err := enc.Write(buf); err != nil {
		_ = f.Close()
		return fmt.Errorf("audio: write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("audio: finalize wav: %w", err)
	}
	return f.Close()
}

// Batches replays samples as a channel of batches of at most batchSize
// samples, the way a capture device would deliver them. The channel is
// closed after the last batch or when ctx is cancelled.
func Batches(ctx context.Context, samples []float32, batchSize int) <-chan []float32 {
	if batchSize <= 0 {
		batchSize = SampleRate / 10
	}
	out := make(chan []float32)
	go func() {
		defer close(out)
		for start := 0; start < len(samples); start += batchSize {
			end := min(start+batchSize, len(samples))
			select {
			case out <- samples[start:end]:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func clamp(s float32) float32 {
	switch {
	case s > 1:
		return 1
	case s < -1:
		return -1
	}
	return s
}
