package pipeline

import (
	"github.com/rs/zerolog"

	"github.com/Cyronlee/TransFlow/internal/audio"
	"github.com/Cyronlee/TransFlow/internal/config"
	"github.com/Cyronlee/TransFlow/internal/transcribe"
	"github.com/Cyronlee/TransFlow/internal/vad"
)

// EmitFunc receives events in production order.
type EmitFunc func(Event)

// Strategy consumes fixed-size frames and produces events. A strategy owns
// its decoder (and classifier) and is driven from one goroutine.
type Strategy interface {
	// FrameSize is the frame length AcceptFrame expects.
	FrameSize() int
	AcceptFrame(f audio.Frame, emit EmitFunc)
	// Finish runs the end-of-stream flush.
	Finish(emit EmitFunc)
	Close() error
}

// Factory builds the strategy for one run. Construction happens on the run
// goroutine so that initialization failures surface as an Error event.
type Factory func() (Strategy, error)

// instrumented is implemented by strategies that log and count through the
// run's logger and Stats.
type instrumented interface {
	attach(log zerolog.Logger, stats *Stats)
}

type base struct {
	log   zerolog.Logger
	stats *Stats
}

func newBase() base {
	return base{log: zerolog.Nop(), stats: &Stats{}}
}

func (b *base) attach(log zerolog.Logger, stats *Stats) {
	b.log = log
	b.stats = stats
}

// NewFactory returns a Factory building the strategy selected by
// cfg.Pipeline.Strategy from the configured backends. onSegment, if not nil,
// observes every VAD segment before it is decoded.
func NewFactory(cfg *config.Config, log zerolog.Logger, onSegment func(vad.SpeechSegment)) Factory {
	return func() (Strategy, error) {
		if cfg.Pipeline.Strategy == "streaming" {
			dec, err := transcribe.NewStreaming(&cfg.Decoder, log)
			if err != nil {
				return nil, err
			}
			return NewStreamingStrategy(dec, cfg.Pipeline.FrameSize), nil
		}

		cls, err := vad.NewClassifier(&cfg.VAD, cfg.Decoder.ModelDir)
		if err != nil {
			return nil, err
		}
		seg, err := vad.NewSegmenter(vad.ConfigFrom(&cfg.VAD), cls)
		if err != nil {
			_ = cls.Close()
			return nil, err
		}
		dec, err := transcribe.New(&cfg.Decoder, log)
		if err != nil {
			_ = seg.Close()
			return nil, err
		}
		s := NewOfflineStrategy(seg, dec)
		s.OnSegment = onSegment
		return s, nil
	}
}
