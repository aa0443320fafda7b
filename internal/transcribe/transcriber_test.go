package transcribe

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/Cyronlee/TransFlow/internal/config"
)

func tone(n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		if i%2 == 0 {
			s[i] = 0.3
		} else {
			s[i] = -0.3
		}
	}
	return s
}

func TestNewStubBackend(t *testing.T) {
	cfg := config.Default().Decoder
	cfg.Backend = "stub"

	tr, err := New(&cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = tr.Close() }()
	if _, ok := tr.(*StubTranscriber); !ok {
		t.Errorf("New() returned %T, want *StubTranscriber", tr)
	}

	dec, err := NewStreaming(&cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStreaming() error = %v", err)
	}
	defer func() { _ = dec.Close() }()
	if _, ok := dec.(*StubStreamingDecoder); !ok {
		t.Errorf("NewStreaming() returned %T, want *StubStreamingDecoder", dec)
	}
}

func TestNewUnknownBackend(t *testing.T) {
	cfg := config.Default().Decoder
	cfg.Backend = "parakeet"
	if _, err := New(&cfg, zerolog.Nop()); err == nil {
		t.Error("New() should fail for unknown backend")
	}
	if _, err := NewStreaming(&cfg, zerolog.Nop()); err == nil {
		t.Error("NewStreaming() should fail for unknown backend")
	}
}

func TestNewStreamingWhisperUnsupported(t *testing.T) {
	cfg := config.Default().Decoder
	if _, err := NewStreaming(&cfg, zerolog.Nop()); err == nil {
		t.Error("NewStreaming() should reject the whisper backend")
	}
}

func TestStubTranscriber(t *testing.T) {
	tr := NewStubTranscriber("hello world")

	text, err := tr.Process(make([]float32, 16000))
	if err != nil || text != "" {
		t.Errorf("Process(silence) = %q, %v; want empty", text, err)
	}
	text, err = tr.Process(tone(16000))
	if err != nil || text != "hello world" {
		t.Errorf("Process(tone) = %q, %v; want %q", text, err, "hello world")
	}

	text, _ = NewStubTranscriber("").Process(tone(24000))
	if text != "[speech 1.50s]" {
		t.Errorf("placeholder text = %q", text)
	}
}

func TestStubStreamingDecoder(t *testing.T) {
	d := NewStubStreamingDecoder(0.5)

	drain := func() {
		for d.IsReady() {
			if err := d.Decode(); err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
		}
	}

	if err := d.AcceptWaveform(make([]float32, 8000)); err != nil {
		t.Fatal(err)
	}
	drain()
	if d.Text() != "" || d.IsEndpoint() {
		t.Fatalf("leading silence: text %q endpoint %v", d.Text(), d.IsEndpoint())
	}

	_ = d.AcceptWaveform(tone(16000))
	drain()
	if d.Text() != "[speech 1.0s]" {
		t.Errorf("Text() = %q, want [speech 1.0s]", d.Text())
	}
	if d.IsEndpoint() {
		t.Error("endpoint during speech")
	}

	_ = d.AcceptWaveform(make([]float32, 8000))
	drain()
	if !d.IsEndpoint() {
		t.Fatal("expected endpoint after 0.5 s of trailing silence")
	}

	d.Reset()
	if d.Text() != "" || d.IsEndpoint() {
		t.Errorf("after Reset: text %q endpoint %v", d.Text(), d.IsEndpoint())
	}

	_ = d.AcceptWaveform(tone(1200))
	if d.IsReady() {
		t.Error("IsReady() with less than one chunk buffered")
	}
	d.InputFinished()
	if !d.IsReady() {
		t.Error("IsReady() should flush a short tail after InputFinished")
	}
	drain()
	if d.Text() != "[speech 0.1s]" {
		t.Errorf("Text() = %q, want [speech 0.1s]", d.Text())
	}
	if err := d.AcceptWaveform(tone(10)); err == nil {
		t.Error("AcceptWaveform after InputFinished should fail")
	}
}
