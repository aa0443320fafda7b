package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Audio     AudioConfig     `yaml:"audio"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	VAD       VADConfig       `yaml:"vad"`
	Decoder   DecoderConfig   `yaml:"decoder"`
	History   HistoryConfig   `yaml:"history"`
	Translate TranslateConfig `yaml:"translate"`
	Inject    InjectConfig    `yaml:"inject"`
	Hotkey    HotkeyConfig    `yaml:"hotkey"`
	LogLevel  string          `yaml:"log_level"`
}

// AudioConfig holds capture settings. The pipeline only accepts 16 kHz.
type AudioConfig struct {
	SampleRate uint32 `yaml:"sample_rate"`
	Channels   uint32 `yaml:"channels"`
	BatchMS    int    `yaml:"batch_ms"`
	Buffered   int    `yaml:"buffered_batches"`
}

// PipelineConfig selects the decode strategy and sizes its buffers.
type PipelineConfig struct {
	Strategy      string `yaml:"strategy"`   // "offline" or "streaming"
	FrameSize     int    `yaml:"frame_size"` // streaming feed size in samples
	CompactFrames int    `yaml:"compact_frames"`
	EventBuffer   int    `yaml:"event_buffer"`
}

// VADConfig holds voice activity segmentation settings (offline strategy).
// Durations are in seconds.
type VADConfig struct {
	Classifier         string  `yaml:"classifier"` // "energy" or "silero"
	ModelFile          string  `yaml:"model_file"`
	Threshold          float64 `yaml:"threshold"`
	MinSilenceDuration float64 `yaml:"min_silence_duration"`
	MinSpeechDuration  float64 `yaml:"min_speech_duration"`
	MaxSpeechDuration  float64 `yaml:"max_speech_duration"`
	WindowSize         int     `yaml:"window_size"`
	BufferSeconds      float64 `yaml:"buffer_seconds"`
	EnergyLevel        float64 `yaml:"energy_level"`
	SpeechPadMs        int     `yaml:"speech_pad_ms"`
}

// DecoderConfig holds recognition backend settings.
type DecoderConfig struct {
	Backend        string `yaml:"backend"` // "whisper", "sherpa" or "stub"
	ModelDir       string `yaml:"model_dir"`
	WhisperModel   string `yaml:"whisper_model"`
	Language       string `yaml:"language"`
	NumThreads     int    `yaml:"num_threads"`
	BeamSize       int    `yaml:"beam_size"`
	DecodingMethod string `yaml:"decoding_method"` // "greedy_search" or "modified_beam_search"
	HotwordsFile   string `yaml:"hotwords_file"`

	// Streaming endpoint rules, in seconds.
	Rule1MinTrailingSilence float64 `yaml:"rule1_min_trailing_silence"`
	Rule2MinTrailingSilence float64 `yaml:"rule2_min_trailing_silence"`
	Rule3MinUtteranceLength float64 `yaml:"rule3_min_utterance_length"`
}

// HistoryConfig controls sentence persistence.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TranslateConfig controls the LibreTranslate-compatible translation sink.
type TranslateConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Source  string        `yaml:"source"`
	Target  string        `yaml:"target"`
	Timeout time.Duration `yaml:"timeout"`
}

// InjectConfig holds text injection settings.
type InjectConfig struct {
	Enabled bool   `yaml:"enabled"`
	Method  string `yaml:"method"` // "type" or "paste"
}

// HotkeyConfig holds hotkey-related settings.
type HotkeyConfig struct {
	Keys []string `yaml:"keys"`
	Mode string   `yaml:"mode"` // "hold" or "toggle"
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "transflow")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultDataDir returns the directory holding models and history.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "transflow")
}

// DefaultModelsDir returns the default model directory path.
func DefaultModelsDir() string {
	return filepath.Join(DefaultDataDir(), "models")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
			BatchMS:    100,
			Buffered:   64,
		},
		Pipeline: PipelineConfig{
			Strategy:      "offline",
			FrameSize:     1600,
			CompactFrames: 64,
			EventBuffer:   256,
		},
		VAD: VADConfig{
			Classifier:         "energy",
			ModelFile:          "silero_vad.onnx",
			Threshold:          0.5,
			MinSilenceDuration: 0.25,
			MinSpeechDuration:  0.25,
			MaxSpeechDuration:  8,
			WindowSize:         512,
			BufferSeconds:      30,
			EnergyLevel:        0.01,
			SpeechPadMs:        30,
		},
		Decoder: DecoderConfig{
			Backend:                 "whisper",
			ModelDir:                DefaultModelsDir(),
			WhisperModel:            "ggml-base.en.bin",
			Language:                "en",
			NumThreads:              2,
			BeamSize:                4,
			DecodingMethod:          "greedy_search",
			Rule1MinTrailingSilence: 2.4,
			Rule2MinTrailingSilence: 1.2,
			Rule3MinUtteranceLength: 20,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(DefaultDataDir(), "history.db"),
		},
		Translate: TranslateConfig{
			BaseURL: "http://localhost:5000",
			Source:  "auto",
			Target:  "zh",
			Timeout: 10 * time.Second,
		},
		Inject: InjectConfig{
			Method: "type",
		},
		Hotkey: HotkeyConfig{
			Keys: []string{"ctrl", "shift", "t"},
			Mode: "toggle",
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in paths is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.expandPaths()
	return cfg, nil
}

// ApplyEnv overrides selected fields from environment variables. lookup is
// usually os.LookupEnv; a nil lookup uses it.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup("TRANSFLOW_LOG_LEVEL"); ok && v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookup("TRANSFLOW_MODEL_DIR"); ok && v != "" {
		c.Decoder.ModelDir = expandTilde(v)
	}
	if v, ok := lookup("TRANSFLOW_STRATEGY"); ok && v != "" {
		c.Pipeline.Strategy = strings.ToLower(v)
	}
	if v, ok := lookup("TRANSFLOW_BACKEND"); ok && v != "" {
		c.Decoder.Backend = strings.ToLower(v)
	}
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Audio.SampleRate != 16000 {
		return fmt.Errorf("audio.sample_rate must be 16000, got %d", c.Audio.SampleRate)
	}
	if c.Audio.Channels == 0 {
		return fmt.Errorf("audio.channels must be > 0")
	}
	if c.Audio.BatchMS <= 0 {
		return fmt.Errorf("audio.batch_ms must be > 0")
	}

	switch c.Pipeline.Strategy {
	case "offline", "streaming":
	default:
		return fmt.Errorf("pipeline.strategy must be \"offline\" or \"streaming\", got %q", c.Pipeline.Strategy)
	}
	if c.Pipeline.FrameSize <= 0 {
		return fmt.Errorf("pipeline.frame_size must be > 0")
	}
	if c.Pipeline.EventBuffer <= 0 {
		return fmt.Errorf("pipeline.event_buffer must be > 0")
	}

	if err := c.VAD.validate(); err != nil {
		return err
	}

	switch c.Decoder.Backend {
	case "whisper":
		if c.Pipeline.Strategy == "streaming" {
			return fmt.Errorf("decoder.backend \"whisper\" does not support the streaming strategy")
		}
	case "sherpa", "stub":
	default:
		return fmt.Errorf("decoder.backend must be whisper, sherpa, or stub, got %q", c.Decoder.Backend)
	}
	if c.Decoder.ModelDir == "" && c.Decoder.Backend != "stub" {
		return fmt.Errorf("decoder.model_dir must not be empty")
	}
	if c.Decoder.NumThreads <= 0 {
		return fmt.Errorf("decoder.num_threads must be > 0")
	}
	switch c.Decoder.DecodingMethod {
	case "greedy_search", "modified_beam_search":
	default:
		return fmt.Errorf("decoder.decoding_method must be greedy_search or modified_beam_search, got %q", c.Decoder.DecodingMethod)
	}

	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history.path must not be empty when history is enabled")
	}
	if c.Translate.Enabled {
		if c.Translate.BaseURL == "" {
			return fmt.Errorf("translate.base_url must not be empty when translation is enabled")
		}
		if c.Translate.Target == "" {
			return fmt.Errorf("translate.target must not be empty when translation is enabled")
		}
	}

	switch c.Inject.Method {
	case "type", "paste":
	default:
		return fmt.Errorf("inject.method must be \"type\" or \"paste\", got %q", c.Inject.Method)
	}

	if len(c.Hotkey.Keys) == 0 {
		return fmt.Errorf("hotkey.keys must not be empty")
	}
	switch c.Hotkey.Mode {
	case "hold", "toggle":
	default:
		return fmt.Errorf("hotkey.mode must be \"hold\" or \"toggle\", got %q", c.Hotkey.Mode)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

func (v *VADConfig) validate() error {
	switch v.Classifier {
	case "energy", "silero":
	default:
		return fmt.Errorf("vad.classifier must be \"energy\" or \"silero\", got %q", v.Classifier)
	}
	if v.Threshold <= 0 || v.Threshold >= 1 {
		return fmt.Errorf("vad.threshold must be in (0, 1), got %g", v.Threshold)
	}
	if v.MinSilenceDuration <= 0 {
		return fmt.Errorf("vad.min_silence_duration must be > 0")
	}
	if v.MinSpeechDuration <= 0 {
		return fmt.Errorf("vad.min_speech_duration must be > 0")
	}
	if v.MaxSpeechDuration <= v.MinSpeechDuration {
		return fmt.Errorf("vad.max_speech_duration must exceed vad.min_speech_duration")
	}
	if v.WindowSize <= 0 {
		return fmt.Errorf("vad.window_size must be > 0")
	}
	if v.BufferSeconds < v.MaxSpeechDuration {
		return fmt.Errorf("vad.buffer_seconds must be >= vad.max_speech_duration")
	}
	return nil
}

func (c *Config) expandPaths() {
	c.Decoder.ModelDir = expandTilde(c.Decoder.ModelDir)
	c.Decoder.HotwordsFile = expandTilde(c.Decoder.HotwordsFile)
	c.History.Path = expandTilde(c.History.Path)
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
