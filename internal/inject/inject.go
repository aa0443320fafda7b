// Package inject types finished sentences into the focused application
// using robotgo keystroke simulation or a clipboard paste.
package inject

import (
	"context"
	"fmt"
	"runtime"

	"github.com/go-vgo/robotgo"
	"github.com/rs/zerolog"

	"github.com/Cyronlee/TransFlow/internal/pipeline"
)

// keyboard is the slice of robotgo the injector drives.
type keyboard interface {
	Type(text string)
	ReadClipboard() (string, error)
	WriteClipboard(text string) error
	Paste() error
}

type robotKeyboard struct{}

func (robotKeyboard) Type(text string)                 { robotgo.Type(text) }
func (robotKeyboard) ReadClipboard() (string, error)   { return robotgo.ReadAll() }
func (robotKeyboard) WriteClipboard(text string) error { return robotgo.WriteAll(text) }

func (robotKeyboard) Paste() error {
	mod := "ctrl"
	if runtime.GOOS == "darwin" {
		mod = "cmd"
	}
	return robotgo.KeyTap("v", mod)
}

// Injector sends sentence text to the active application.
type Injector struct {
	method string // "type" or "paste"
	kb     keyboard
	log    zerolog.Logger

	sent int
}

// NewInjector creates an Injector with the given method.
// method must be "type" (keystroke simulation) or "paste" (clipboard).
func NewInjector(method string, log zerolog.Logger) *Injector {
	return &Injector{method: method, kb: robotKeyboard{}, log: log.With().Str("component", "inject").Logger()}
}

// Inject sends text using the configured method.
func (inj *Injector) Inject(text string) error {
	if text == "" {
		return nil
	}
	switch inj.method {
	case "paste":
		return inj.paste(text)
	default:
		inj.kb.Type(text)
		return nil
	}
}

// Handle injects each sentence, separated from the previous one by a
// space, so an Injector can be used as a session sink.
func (inj *Injector) Handle(_ context.Context, s *pipeline.Sentence) error {
	if s.Text == "" {
		return nil
	}
	text := s.Text
	if inj.sent > 0 {
		text = " " + text
	}
	if err := inj.Inject(text); err != nil {
		return err
	}
	inj.sent++
	inj.log.Debug().Str("sentence", s.ID).Str("method", inj.method).Msg("text injected")
	return nil
}

// paste overwrites the clipboard, pastes, then restores the previous
// clipboard contents on a best-effort basis.
func (inj *Injector) paste(text string) error {
	prev, _ := inj.kb.ReadClipboard()

	if err := inj.kb.WriteClipboard(text); err != nil {
		return fmt.Errorf("inject: write to clipboard: %w", err)
	}
	if err := inj.kb.Paste(); err != nil {
		return fmt.Errorf("inject: paste: %w", err)
	}

	_ = inj.kb.WriteClipboard(prev)
	return nil
}
