package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

// ErrAlreadyStreaming is returned by Stream while a capture is active.
var ErrAlreadyStreaming = errors.New("audio: already streaming")

// Recorder captures audio from the default input device and delivers it as
// a channel of mono float32 batches.
type Recorder struct {
	ctx      *malgo.AllocatedContext
	channels uint32
	log      zerolog.Logger

	mu      sync.Mutex
	device  *malgo.Device
	out     chan []float32
	done    chan struct{}
	dropped atomic.Int64
}

// NewRecorder initializes the audio backend. Capture always runs at
// SampleRate; channels > 1 are downmixed to mono. Call Close when done.
func NewRecorder(channels uint32, log zerolog.Logger) (*Recorder, error) {
	if channels == 0 {
		channels = 1
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("audio: init context: %w", err)
	}
	return &Recorder{
		ctx:      ctx,
		channels: channels,
		log:      log.With().Str("component", "recorder").Logger(),
	}, nil
}

// Stream starts capturing and returns the batch channel. The channel holds
// up to buffered batches; when the consumer falls behind, new batches are
// dropped and counted. Capture stops and the channel closes when ctx is
// cancelled or Stop is called.
func (r *Recorder) Stream(ctx context.Context, buffered int) (<-chan []float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.device != nil {
		return nil, ErrAlreadyStreaming
	}
	if buffered <= 0 {
		buffered = 64
	}

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = malgo.FormatF32
	deviceCfg.Capture.Channels = r.channels
	deviceCfg.SampleRate = SampleRate

	out := make(chan []float32, buffered)
	r.out = out

	device, err := malgo.InitDevice(r.ctx.Context, deviceCfg, malgo.DeviceCallbacks{Data: r.onData})
	if err != nil {
		r.out = nil
		return nil, fmt.Errorf("audio: init capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		r.out = nil
		return nil, fmt.Errorf("audio: start capture device: %w", err)
	}
	done := make(chan struct{})
	r.device = device
	r.done = done
	r.dropped.Store(0)
	r.log.Debug().Uint32("channels", r.channels).Int("buffered", buffered).Msg("capture started")

	go func() {
		select {
		case <-ctx.Done():
			r.Stop()
		case <-done:
		}
	}()
	return out, nil
}

// Stop ends the capture and closes the batch channel. It is safe to call
// when not streaming.
func (r *Recorder) Stop() {
	r.mu.Lock()
	device, out, done := r.device, r.out, r.done
	r.device = nil
	r.done = nil
	r.mu.Unlock()
	if device == nil {
		return
	}

	// Uninit waits for an in-flight onData, which takes mu.
	device.Uninit()

	r.mu.Lock()
	r.out = nil
	r.mu.Unlock()
	close(out)
	close(done)

	if n := r.dropped.Load(); n > 0 {
		r.log.Warn().Int64("dropped", n).Msg("capture batches dropped")
	}
	r.log.Debug().Msg("capture stopped")
}

// IsStreaming reports whether a capture is active.
func (r *Recorder) IsStreaming() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.device != nil
}

// Dropped returns the number of batches dropped in the current capture.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops any capture and releases the audio backend.
func (r *Recorder) Close() error {
	r.Stop()

	if r.ctx != nil {
		if err := r.ctx.Uninit(); err != nil {
			return fmt.Errorf("audio: uninit context: %w", err)
		}
		r.ctx.Free()
		r.ctx = nil
	}
	return nil
}

// onData runs on the malgo audio thread.
func (r *Recorder) onData(_, pSample []byte, frameCount uint32) {
	samples := downmix(bytesToFloat32(pSample, frameCount*r.channels), int(r.channels))

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.out == nil {
		return
	}
	select {
	case r.out <- samples:
	default:
		r.dropped.Add(1)
	}
}

// bytesToFloat32 converts little-endian float32 bytes to samples.
func bytesToFloat32(data []byte, sampleCount uint32) []float32 {
	samples := make([]float32, 0, sampleCount)
	for i := uint32(0); i < sampleCount; i++ {
		offset := i * 4
		if offset+4 > uint32(len(data)) {
			break
		}
		bits := binary.LittleEndian.Uint32(data[offset : offset+4])
		samples = append(samples, math.Float32frombits(bits))
	}
	return samples
}

// downmix averages interleaved channels into mono. A trailing partial frame
// is discarded.
func downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	mono := make([]float32, len(samples)/channels)
	for i := range mono {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
