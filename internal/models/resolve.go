// Package models resolves backend model artifacts inside a model directory.
//
// Resolution only builds paths. Checking that files exist and are intact
// belongs to whoever installs the models; a bad path surfaces when the
// backend fails to load it.
package models

import (
	"os"
	"path/filepath"
)

// Paths lists the artifacts a backend may need. Unused entries stay empty.
type Paths struct {
	Encoder string
	Decoder string
	Joiner  string
	Tokens  string
	Whisper string
	VAD     string
}

// Transducer resolves encoder/decoder/joiner/tokens for a sherpa-onnx
// transducer model directory. int8-quantized variants are preferred when
// present.
func Transducer(dir string) Paths {
	return Paths{
		Encoder: pick(dir, "encoder.int8.onnx", "encoder.onnx"),
		Decoder: pick(dir, "decoder.int8.onnx", "decoder.onnx"),
		Joiner:  pick(dir, "joiner.int8.onnx", "joiner.onnx"),
		Tokens:  filepath.Join(dir, "tokens.txt"),
	}
}

// Whisper resolves a ggml whisper model file.
func Whisper(dir, file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dir, file)
}

// VAD resolves the voice activity model file.
func VAD(dir, file string) string {
	return Whisper(dir, file)
}

// Streaming returns the directory holding the streaming transducer, which
// lives in a "streaming" subdirectory when both kinds are installed.
func Streaming(dir string) string {
	sub := filepath.Join(dir, "streaming")
	if info, err := os.Stat(sub); err == nil && info.IsDir() {
		return sub
	}
	return dir
}

// pick returns the first candidate present in dir, or the last candidate.
func pick(dir string, candidates ...string) string {
	for _, name := range candidates[:len(candidates)-1] {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(dir, candidates[len(candidates)-1])
}
