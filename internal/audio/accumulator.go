// Package audio handles sample ingestion for the transcription pipeline:
// framing of incoming batches, live microphone capture and WAV file I/O.
//
// All samples are mono float32 normalized to [-1.0, 1.0] at SampleRate.
package audio

import (
	"errors"
	"fmt"
	"time"
)

// SampleRate is the only sample rate the pipeline accepts. Nothing in this
// module resamples.
const SampleRate = 16000

// DefaultCompactFrames is the number of consumed frames after which the
// accumulator drops its consumed prefix.
const DefaultCompactFrames = 64

// ErrInvalidFrameSize is returned when a frame size is not positive.
var ErrInvalidFrameSize = errors.New("audio: frame size must be > 0")

// Frame is a fixed-size run of samples cut from the input stream.
// Offset is the index of the first sample within the whole stream.
type Frame struct {
	Samples []float32
	Offset  int64
}

// Start returns the stream time of the first sample in the frame.
func (f Frame) Start() time.Duration {
	return SamplesToDuration(f.Offset)
}

// SamplesToDuration converts a sample count at SampleRate to a duration.
func SamplesToDuration(n int64) time.Duration {
	return time.Duration(n) * time.Second / SampleRate
}

// Accumulator buffers pushed batches and cuts them into frames of a fixed
// size. It is not safe for concurrent use.
type Accumulator struct {
	frameSize int
	threshold int

	buf  []float32
	read int

	// taken counts samples handed out before buf[0].
	taken int64
}

// NewAccumulator creates an Accumulator cutting frames of frameSize samples.
// The consumed prefix is compacted once more than compactFrames frames have
// been read; compactFrames <= 0 selects DefaultCompactFrames.
func NewAccumulator(frameSize, compactFrames int) (*Accumulator, error) {
	if frameSize <= 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidFrameSize, frameSize)
	}
	if compactFrames <= 0 {
		compactFrames = DefaultCompactFrames
	}
	return &Accumulator{
		frameSize: frameSize,
		threshold: compactFrames * frameSize,
	}, nil
}

// FrameSize returns the frame length in samples.
func (a *Accumulator) FrameSize() int {
	return a.frameSize
}

// Push appends samples to the buffer.
func (a *Accumulator) Push(samples []float32) {
	a.buf = append(a.buf, samples...)
}

// Remaining returns the number of buffered samples not yet taken.
func (a *Accumulator) Remaining() int {
	return len(a.buf) - a.read
}

// TryTakeFrame returns the next full frame, or false if fewer than
// FrameSize samples are buffered. The returned samples are a copy.
func (a *Accumulator) TryTakeFrame() (Frame, bool) {
	if a.Remaining() < a.frameSize {
		return Frame{}, false
	}
	f := a.cut(a.frameSize)
	a.maybeCompact()
	return f, true
}

// TakePadded drains the sub-frame tail left at end of stream as one frame,
// zero-padded to FrameSize. It returns false when nothing is buffered.
// Callers should drain full frames with TryTakeFrame first.
func (a *Accumulator) TakePadded() (Frame, bool) {
	n := a.Remaining()
	if n == 0 {
		return Frame{}, false
	}
	if n >= a.frameSize {
		return a.TryTakeFrame()
	}
	f := a.cut(n)
	f.Samples = append(f.Samples, make([]float32, a.frameSize-n)...)
	a.compact()
	return f, true
}

// Reset discards all buffered samples. The stream offset is preserved so
// frame offsets stay monotonic.
func (a *Accumulator) Reset() {
	a.taken += int64(len(a.buf))
	a.buf = a.buf[:0]
	a.read = 0
}

func (a *Accumulator) cut(n int) Frame {
	out := make([]float32, n, a.frameSize)
	copy(out, a.buf[a.read:a.read+n])
	f := Frame{Samples: out, Offset: a.taken + int64(a.read)}
	a.read += n
	return f
}

func (a *Accumulator) maybeCompact() {
	if a.read > a.threshold {
		a.compact()
	}
}

func (a *Accumulator) compact() {
	n := copy(a.buf, a.buf[a.read:])
	a.taken += int64(a.read)
	a.buf = a.buf[:n]
	a.read = 0
}
