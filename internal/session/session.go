// Package session owns one pipeline run and turns its events into
// sentences delivered to sinks.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Cyronlee/TransFlow/internal/pipeline"
)

// ErrAlreadyStarted is returned by Start on a session that has run.
var ErrAlreadyStarted = errors.New("session: already started")

// sentenceBuffer bounds sentences waiting for slow sinks.
const sentenceBuffer = 64

// Sink receives every sentence in creation order. Sinks run one at a time
// on the fan-out goroutine; a sink may fill in Translation.
type Sink interface {
	Handle(ctx context.Context, s *pipeline.Sentence) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, s *pipeline.Sentence) error

// Handle implements Sink.
func (f SinkFunc) Handle(ctx context.Context, s *pipeline.Sentence) error { return f(ctx, s) }

// Option configures a Session.
type Option func(*Session)

// WithSinks appends sinks. They are called in the order given.
func WithSinks(sinks ...Sink) Option {
	return func(s *Session) { s.sinks = append(s.sinks, sinks...) }
}

// WithLogger sets the session logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithEventBuffer sets the pipeline emitter capacity.
func WithEventBuffer(n int) Option {
	return func(s *Session) { s.opts.EventBuffer = n }
}

// WithCompactFrames sets the accumulator compaction threshold.
func WithCompactFrames(n int) Option {
	return func(s *Session) { s.opts.CompactFrames = n }
}

// WithEventHook registers fn to see every pipeline event, including
// partials, on the consumer goroutine.
func WithEventHook(fn func(pipeline.Event)) Option {
	return func(s *Session) { s.onEvent = fn }
}

// Session is a single transcription session.
type Session struct {
	ID string

	newStrategy pipeline.Factory
	opts        pipeline.Options
	sinks       []Sink
	onEvent     func(pipeline.Event)
	log         zerolog.Logger
	stats       *pipeline.Stats
	now         func() time.Time

	mu        sync.Mutex
	started   bool
	cancel    context.CancelFunc
	group     *errgroup.Group
	sentences []pipeline.Sentence
	errs      []error
}

// New prepares a session that will build its strategy with newStrategy.
func New(newStrategy pipeline.Factory, opts ...Option) *Session {
	s := &Session{
		ID:          uuid.NewString(),
		newStrategy: newStrategy,
		log:         zerolog.Nop(),
		stats:       &pipeline.Stats{},
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With().Str("component", "session").Str("session", s.ID).Logger()
	s.opts.Stats = s.stats
	s.opts.Logger = &s.log
	return s
}

// Start begins consuming batches. The session ends when batches is closed,
// when ctx is cancelled, or on Stop. Sinks keep running until every
// sentence has been delivered, even after ctx is done.
func (s *Session) Start(ctx context.Context, batches <-chan []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	events := pipeline.Run(runCtx, batches, s.newStrategy, s.opts)

	sinkCtx := context.WithoutCancel(ctx)
	out := make(chan *pipeline.Sentence, sentenceBuffer)
	g := &errgroup.Group{}
	g.Go(func() error {
		defer close(out)
		s.consume(events, out)
		return nil
	})
	g.Go(func() error {
		s.fanOut(sinkCtx, out)
		return nil
	})
	s.group = g

	s.log.Info().Msg("session started")
	return nil
}

func (s *Session) consume(events <-chan pipeline.Event, out chan<- *pipeline.Sentence) {
	var trailing *pipeline.Event
	for ev := range events {
		if s.onEvent != nil {
			s.onEvent(ev)
		}
		switch ev.Kind {
		case pipeline.EventPartial:
			if strings.TrimSpace(ev.Text) == "" {
				trailing = nil
				continue
			}
			trailing = &ev
		case pipeline.EventFinal:
			trailing = nil
			out <- s.record(ev.Text, ev.Timestamp)
		case pipeline.EventError:
			s.log.Error().Err(ev.Err).Msg("pipeline error")
			s.mu.Lock()
			s.errs = append(s.errs, ev.Err)
			s.mu.Unlock()
		}
	}
	if trailing != nil {
		s.log.Debug().Str("text", trailing.Text).Msg("promoting trailing partial")
		out <- s.record(strings.TrimSpace(trailing.Text), trailing.Timestamp)
	}
}

func (s *Session) record(text string, ts time.Duration) *pipeline.Sentence {
	sent := pipeline.Sentence{
		ID:        uuid.NewString(),
		SessionID: s.ID,
		Timestamp: ts,
		Text:      text,
		CreatedAt: s.now(),
	}
	s.mu.Lock()
	s.sentences = append(s.sentences, sent)
	s.mu.Unlock()
	s.log.Info().Dur("at", ts).Str("text", text).Msg("sentence")
	return &sent
}

func (s *Session) fanOut(ctx context.Context, in <-chan *pipeline.Sentence) {
	for sent := range in {
		for _, sink := range s.sinks {
			if err := sink.Handle(ctx, sent); err != nil {
				s.log.Warn().Err(err).Str("sentence", sent.ID).Msg("sink failed")
			}
		}
		if sent.Translation != "" {
			s.setTranslation(sent.ID, sent.Translation)
		}
	}
}

func (s *Session) setTranslation(id, translation string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sentences {
		if s.sentences[i].ID == id {
			s.sentences[i].Translation = translation
			return
		}
	}
}

// Stop cancels the pipeline, waits for the session to drain and returns
// the same error as Wait. A trailing partial that never became final is
// kept as a sentence.
func (s *Session) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return s.Wait()
}

// Wait blocks until the pipeline has ended and every sentence has reached
// the sinks. It returns the pipeline's error events joined, or nil.
func (s *Session) Wait() error {
	s.mu.Lock()
	g := s.group
	s.mu.Unlock()
	if g == nil {
		return nil
	}
	_ = g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	snap := s.stats.Snapshot()
	s.log.Info().
		Int("sentences", len(s.sentences)).
		Int64("frames", snap.Frames).
		Int64("segments", snap.Segments).
		Int64("dropped_partials", snap.DroppedPartials).
		Msg("session ended")
	return errors.Join(s.errs...)
}

// Sentences returns a copy of the sentences produced so far.
func (s *Session) Sentences() []pipeline.Sentence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pipeline.Sentence(nil), s.sentences...)
}

// Text joins the sentence texts with single spaces.
func (s *Session) Text() string {
	sents := s.Sentences()
	parts := make([]string, len(sents))
	for i, sent := range sents {
		parts[i] = sent.Text
	}
	return strings.Join(parts, " ")
}

// Stats returns the pipeline counters.
func (s *Session) Stats() pipeline.StatsSnapshot {
	return s.stats.Snapshot()
}
