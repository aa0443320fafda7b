package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Cyronlee/TransFlow/internal/audio"
)

// Options tune a run. The zero value is usable.
type Options struct {
	CompactFrames int
	EventBuffer   int
	// Stats, if set, receives the run's counters.
	Stats  *Stats
	Logger *zerolog.Logger
}

// Run builds a strategy with newStrategy and drives it over batches on a
// dedicated goroutine. The returned channel delivers events in order and is
// closed when the run ends.
//
// A closed batches channel ends the run normally: full frames are drained,
// the sub-frame tail is zero-padded into one last frame and the strategy's
// end-of-stream flush runs. Cancelling ctx ends the run after the frame in
// progress without a flush; recovering any trailing hypothesis is the
// caller's job.
//
// If the strategy cannot be built, a single Error event is delivered.
func Run(ctx context.Context, batches <-chan []float32, newStrategy Factory, opts Options) <-chan Event {
	stats := opts.Stats
	if stats == nil {
		stats = &Stats{}
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	log = log.With().Str("component", "pipeline").Logger()

	em := NewEmitter(opts.EventBuffer, stats)
	go func() {
		defer em.Close()
		run(ctx, batches, newStrategy, opts.CompactFrames, em.Emit, stats, log)
	}()
	return em.Events()
}

func run(ctx context.Context, batches <-chan []float32, newStrategy Factory, compactFrames int, emit EmitFunc, stats *Stats, log zerolog.Logger) {
	strategy, err := newStrategy()
	if err != nil {
		log.Error().Err(err).Msg("pipeline initialization failed")
		emit(Failure(err))
		return
	}
	defer func() {
		if err := strategy.Close(); err != nil {
			log.Warn().Err(err).Msg("closing strategy")
		}
	}()
	if s, ok := strategy.(instrumented); ok {
		s.attach(log, stats)
	}

	acc, err := audio.NewAccumulator(strategy.FrameSize(), compactFrames)
	if err != nil {
		log.Error().Err(err).Msg("pipeline initialization failed")
		emit(Failure(err))
		return
	}

	log.Debug().Int("frame_size", acc.FrameSize()).Msg("pipeline started")
	for {
		select {
		case <-ctx.Done():
			log.Debug().Int("buffered", acc.Remaining()).Msg("pipeline cancelled")
			return

		case batch, ok := <-batches:
			if !ok {
				if !takeFrames(ctx, acc, strategy, emit, stats) {
					return
				}
				if f, ok := acc.TakePadded(); ok {
					stats.Frames.Add(1)
					strategy.AcceptFrame(f, emit)
				}
				strategy.Finish(emit)
				log.Debug().Int64("frames", stats.Frames.Load()).Msg("pipeline finished")
				return
			}
			acc.Push(batch)
			if !takeFrames(ctx, acc, strategy, emit, stats) {
				log.Debug().Msg("pipeline cancelled")
				return
			}
		}
	}
}

// takeFrames feeds every full frame, stopping between frames on
// cancellation. It reports whether the run should continue.
func takeFrames(ctx context.Context, acc *audio.Accumulator, strategy Strategy, emit EmitFunc, stats *Stats) bool {
	for {
		if ctx.Err() != nil {
			return false
		}
		f, ok := acc.TryTakeFrame()
		if !ok {
			return true
		}
		stats.Frames.Add(1)
		strategy.AcceptFrame(f, emit)
	}
}
