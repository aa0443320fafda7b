package translate

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Cyronlee/TransFlow/internal/pipeline"
)

// Translator is the part of Client a Sink needs.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Attacher stores a translation for an already persisted sentence.
type Attacher interface {
	AttachTranslation(ctx context.Context, id, translation string) error
}

// Sink translates each sentence and writes the result back to the
// sentence and, if set, to Store.
type Sink struct {
	Translator Translator
	Source     string
	Target     string
	Store      Attacher
	Log        zerolog.Logger
}

// Handle implements the session sink contract.
func (s *Sink) Handle(ctx context.Context, sent *pipeline.Sentence) error {
	translated, err := s.Translator.Translate(ctx, sent.Text, s.Source, s.Target)
	if err != nil {
		return err
	}
	sent.Translation = translated
	s.Log.Debug().Str("sentence", sent.ID).Str("translation", translated).Msg("translated")
	if s.Store == nil {
		return nil
	}
	if err := s.Store.AttachTranslation(ctx, sent.ID, translated); err != nil {
		return fmt.Errorf("translate: store: %w", err)
	}
	return nil
}
