package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyronlee/TransFlow/internal/audio"
	"github.com/Cyronlee/TransFlow/internal/config"
	"github.com/Cyronlee/TransFlow/internal/transcribe"
	"github.com/Cyronlee/TransFlow/internal/vad"
)

func sine(seconds float64) []float32 {
	n := int(seconds * audio.SampleRate)
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/audio.SampleRate))
	}
	return out
}

func silence(seconds float64) []float32 {
	return make([]float32, int(seconds*audio.SampleRate))
}

func concat(parts ...[]float32) []float32 {
	var out []float32
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func offlineFactory(text string, segments *[]vad.SpeechSegment) Factory {
	return func() (Strategy, error) {
		seg, err := vad.NewSegmenter(vad.Config{
			FrameSize:          512,
			Threshold:          0.5,
			MinSpeechDuration:  0.25,
			MinSilenceDuration: 0.25,
			MaxSpeechDuration:  10,
		}, vad.NewEnergyClassifier(0.01))
		if err != nil {
			return nil, err
		}
		s := NewOfflineStrategy(seg, transcribe.NewStubTranscriber(text))
		if segments != nil {
			s.OnSegment = func(sg vad.SpeechSegment) { *segments = append(*segments, sg) }
		}
		return s, nil
	}
}

func runSamples(t *testing.T, samples []float32, f Factory, stats *Stats) []Event {
	t.Helper()
	ctx := context.Background()
	return collect(t, Run(ctx, audio.Batches(ctx, samples, 1600), f, Options{EventBuffer: 1024, Stats: stats}))
}

func finals(events []Event) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Kind == EventFinal {
			out = append(out, ev)
		}
	}
	return out
}

func TestRunOfflineSingleUtterance(t *testing.T) {
	var segments []vad.SpeechSegment
	stats := &Stats{}
	events := runSamples(t, concat(sine(3.0), silence(1.0)), offlineFactory("hello world", &segments), stats)

	require.Len(t, segments, 1)
	assert.InDelta(t, 3.0, segments[0].Duration().Seconds(), 0.05)
	require.Len(t, events, 1)
	assert.Equal(t, Final("hello world", 0), events[0])

	snap := stats.Snapshot()
	assert.Equal(t, int64(64000/512), snap.Frames)
	assert.Equal(t, int64(1), snap.Segments)
	assert.Equal(t, int64(1), snap.Finals)
}

func TestRunOfflineTwoUtterances(t *testing.T) {
	events := runSamples(t, concat(sine(1.0), silence(2.0), sine(1.5), silence(0.5)), offlineFactory("", nil), nil)

	require.Len(t, events, 2)
	assert.Equal(t, EventFinal, events[0].Kind)
	assert.Equal(t, EventFinal, events[1].Kind)
	assert.Less(t, events[0].Timestamp, events[1].Timestamp)
	assert.InDelta(t, 3.0, events[1].Timestamp.Seconds(), 0.05)
	assert.Regexp(t, `^\[speech 1\.5\ds\]$`, events[1].Text)
}

func TestRunOfflineTrailingSpeechFlushed(t *testing.T) {
	// Stream ends mid-utterance on a sub-frame tail.
	events := runSamples(t, concat(silence(0.5), sine(1.0001)), offlineFactory("tail", nil), nil)
	require.Len(t, events, 1)
	assert.Equal(t, "tail", events[0].Text)
}

func TestRunEmptyInput(t *testing.T) {
	factories := map[string]Factory{
		"offline": offlineFactory("x", nil),
		"streaming": func() (Strategy, error) {
			return NewStreamingStrategy(&scriptedDecoder{text: counting}, 160), nil
		},
	}
	for name, f := range factories {
		t.Run(name, func(t *testing.T) {
			batches := make(chan []float32)
			close(batches)
			events := collect(t, Run(context.Background(), batches, f, Options{}))
			assert.Empty(t, events)
		})
	}
}

func TestRunStreamingEndpointOnce(t *testing.T) {
	dec := &scriptedDecoder{text: counting, endpointAt: 10}
	f := func() (Strategy, error) { return NewStreamingStrategy(dec, 160), nil }

	events := runSamples(t, sine(0.2), f, nil) // 20 frames of 160

	// word1..word9, Final(word10), clear, word1..word10, then the end-of-stream final.
	require.Len(t, events, 9+2+10+2)
	for i := 0; i < 9; i++ {
		assert.Equal(t, EventPartial, events[i].Kind)
	}
	assert.Equal(t, Final("word10", 0), events[9])
	assert.Equal(t, EventPartial, events[10].Kind)
	assert.Equal(t, "", events[10].Text)
	for i := 0; i < 10; i++ {
		ev := events[11+i]
		assert.Equal(t, EventPartial, ev.Kind)
		assert.Equal(t, counting(i+1), ev.Text, "post-reset hypothesis only")
		assert.Equal(t, 100*time.Millisecond, ev.Timestamp)
	}
	assert.Equal(t, EventFinal, events[21].Kind)
	assert.Equal(t, "word10", events[21].Text)
	assert.Equal(t, Partial("", 200*time.Millisecond), events[22])
	assert.Len(t, finals(events[:21]), 1)
	assert.True(t, dec.closed)
}

func TestRunInitializationFailure(t *testing.T) {
	f := func() (Strategy, error) { return nil, errors.New("transcribe: load model: missing encoder") }
	batches := make(chan []float32)
	events := collect(t, Run(context.Background(), batches, f, Options{}))

	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Kind)
	assert.Contains(t, events[0].Text, "missing encoder")
	assert.Error(t, events[0].Err)
}

func TestRunUnknownBackendSurfacesAsError(t *testing.T) {
	cfg := config.Default()
	cfg.Decoder.Backend = "kaldi"

	batches := make(chan []float32)
	close(batches)
	events := collect(t, Run(context.Background(), batches, NewFactory(cfg, zerolog.Nop(), nil), Options{}))
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Kind)
	assert.Contains(t, events[0].Text, "kaldi")
}

func TestRunCancellationSkipsFlush(t *testing.T) {
	dec := &scriptedDecoder{text: counting}
	f := func() (Strategy, error) { return NewStreamingStrategy(dec, 160), nil }

	ctx, cancel := context.WithCancel(context.Background())
	batches := make(chan []float32)
	events := Run(ctx, batches, f, Options{})

	batches <- make([]float32, 160)
	ev := <-events
	assert.Equal(t, Partial("word1", 0), ev)

	cancel()
	rest := collect(t, events)
	assert.Empty(t, finals(rest))
	assert.False(t, dec.finished, "cancelled runs must not run the end-of-stream flush")
	assert.True(t, dec.closed)
}

func TestNewFactoryStub(t *testing.T) {
	cfg := config.Default()
	cfg.Decoder.Backend = "stub"

	s, err := NewFactory(cfg, zerolog.Nop(), nil)()
	require.NoError(t, err)
	assert.IsType(t, &OfflineStrategy{}, s)
	assert.Equal(t, cfg.VAD.WindowSize, s.FrameSize())
	require.NoError(t, s.Close())

	cfg.Pipeline.Strategy = "streaming"
	s, err = NewFactory(cfg, zerolog.Nop(), nil)()
	require.NoError(t, err)
	assert.IsType(t, &StreamingStrategy{}, s)
	assert.Equal(t, cfg.Pipeline.FrameSize, s.FrameSize())
	require.NoError(t, s.Close())
}

func TestRunStubStreamingEndToEnd(t *testing.T) {
	cfg := config.Default()
	cfg.Decoder.Backend = "stub"
	cfg.Pipeline.Strategy = "streaming"
	cfg.Decoder.Rule1MinTrailingSilence = 0.5

	events := runSamples(t, concat(sine(1.0), silence(1.0), sine(0.5)), NewFactory(cfg, zerolog.Nop(), nil), nil)
	got := finals(events)
	require.Len(t, got, 2)
	assert.Equal(t, "[speech 1.0s]", got[0].Text)
	assert.Equal(t, "[speech 0.5s]", got[1].Text)
	assert.Equal(t, time.Duration(0), got[0].Timestamp)
}
