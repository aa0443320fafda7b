package inject

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Cyronlee/TransFlow/internal/pipeline"
)

type fakeKeyboard struct {
	typed     []string
	clipboard string
	pasted    []string
	pasteErr  error
}

func (f *fakeKeyboard) Type(text string)               { f.typed = append(f.typed, text) }
func (f *fakeKeyboard) ReadClipboard() (string, error) { return f.clipboard, nil }
func (f *fakeKeyboard) WriteClipboard(text string) error {
	f.clipboard = text
	return nil
}
func (f *fakeKeyboard) Paste() error {
	if f.pasteErr != nil {
		return f.pasteErr
	}
	f.pasted = append(f.pasted, f.clipboard)
	return nil
}

func newTestInjector(method string) (*Injector, *fakeKeyboard) {
	kb := &fakeKeyboard{clipboard: "saved"}
	inj := NewInjector(method, zerolog.Nop())
	inj.kb = kb
	return inj, kb
}

func TestInjectType(t *testing.T) {
	inj, kb := newTestInjector("type")
	if err := inj.Inject("hello"); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	if len(kb.typed) != 1 || kb.typed[0] != "hello" {
		t.Errorf("typed = %v, want [hello]", kb.typed)
	}
}

func TestInjectEmptyIsNoop(t *testing.T) {
	inj, kb := newTestInjector("type")
	if err := inj.Inject(""); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	if len(kb.typed) != 0 {
		t.Errorf("typed = %v, want nothing", kb.typed)
	}
}

func TestInjectPasteRestoresClipboard(t *testing.T) {
	inj, kb := newTestInjector("paste")
	if err := inj.Inject("hello"); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	if len(kb.pasted) != 1 || kb.pasted[0] != "hello" {
		t.Errorf("pasted = %v, want [hello]", kb.pasted)
	}
	if kb.clipboard != "saved" {
		t.Errorf("clipboard = %q, want restored %q", kb.clipboard, "saved")
	}
}

func TestInjectPasteError(t *testing.T) {
	inj, kb := newTestInjector("paste")
	kb.pasteErr = errors.New("no display")
	if err := inj.Inject("hello"); err == nil {
		t.Error("Inject() should fail when paste fails")
	}
}

func TestHandleSeparatesSentences(t *testing.T) {
	inj, kb := newTestInjector("type")
	ctx := context.Background()
	for _, text := range []string{"one", "", "two"} {
		if err := inj.Handle(ctx, &pipeline.Sentence{Text: text}); err != nil {
			t.Fatalf("Handle(%q) error = %v", text, err)
		}
	}
	want := []string{"one", " two"}
	if len(kb.typed) != len(want) {
		t.Fatalf("typed = %q, want %q", kb.typed, want)
	}
	for i := range want {
		if kb.typed[i] != want[i] {
			t.Errorf("typed[%d] = %q, want %q", i, kb.typed[i], want[i])
		}
	}
}
