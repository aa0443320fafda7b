package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Cyronlee/TransFlow/internal/audio"
	"github.com/Cyronlee/TransFlow/internal/config"
	"github.com/Cyronlee/TransFlow/internal/history"
	"github.com/Cyronlee/TransFlow/internal/hotkey"
	"github.com/Cyronlee/TransFlow/internal/inject"
	"github.com/Cyronlee/TransFlow/internal/logging"
	"github.com/Cyronlee/TransFlow/internal/pipeline"
	"github.com/Cyronlee/TransFlow/internal/session"
	"github.com/Cyronlee/TransFlow/internal/transcribe"
	"github.com/Cyronlee/TransFlow/internal/translate"
	"github.com/Cyronlee/TransFlow/internal/vad"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/transflow/config.yaml)")
	file := flag.String("file", "", "transcribe a 16 kHz WAV file instead of the microphone")
	reference := flag.String("reference", "", "reference transcript to score -file output against (WER)")
	dumpDir := flag.String("dump-segments", "", "write each VAD segment to this directory as WAV")
	strategy := flag.String("strategy", "", "override pipeline strategy (offline or streaming)")
	writeConfig := flag.Bool("write-config", false, "write the default config file and exit")
	flag.Parse()

	log := logging.New("info", nil)

	if *writeConfig {
		path, err := config.WriteDefault()
		if err != nil {
			log.Fatal().Err(err).Msg("writing default config")
		}
		if path == "" {
			fmt.Println("Config already exists at", config.DefaultConfigPath())
			return
		}
		fmt.Println("Wrote", path)
		return
	}

	cfg, err := loadConfig(*configPath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	cfg.ApplyEnv(nil)
	if *strategy != "" {
		cfg.Pipeline.Strategy = *strategy
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	log = log.Level(logging.ParseLevel(cfg.LogLevel))

	printBanner(cfg)

	var onSegment func(vad.SpeechSegment)
	if *dumpDir != "" {
		onSegment, err = segmentDumper(*dumpDir, log)
		if err != nil {
			log.Fatal().Err(err).Msg("segment dump")
		}
	}
	factory := pipeline.NewFactory(cfg, log, onSegment)

	sinks, closeSinks, err := buildSinks(cfg, log, *file == "")
	if err != nil {
		log.Fatal().Err(err).Msg("sinks")
	}
	defer closeSinks()

	if *file != "" {
		if err := transcribeFile(cfg, factory, sinks, *file, *reference, log); err != nil {
			closeSinks()
			log.Fatal().Err(err).Msg("transcription failed")
		}
		return
	}
	runLive(cfg, factory, sinks, closeSinks, log)
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string, log zerolog.Logger) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Info().Str("path", defaultPath).Msg("config loaded")
		return cfg, nil
	}

	log.Info().Msg("no config file found, using defaults")
	return config.Default(), nil
}

func sessionOptions(cfg *config.Config, sinks []session.Sink, log zerolog.Logger, extra ...session.Option) []session.Option {
	opts := []session.Option{
		session.WithSinks(sinks...),
		session.WithLogger(log),
		session.WithEventBuffer(cfg.Pipeline.EventBuffer),
		session.WithCompactFrames(cfg.Pipeline.CompactFrames),
	}
	return append(opts, extra...)
}

// buildSinks wires history, translation and (live only) injection in the
// order sentences must visit them.
func buildSinks(cfg *config.Config, log zerolog.Logger, live bool) ([]session.Sink, func(), error) {
	var sinks []session.Sink
	closeFn := func() {}

	var store *history.Store
	if cfg.History.Enabled {
		var err error
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			return nil, closeFn, err
		}
		log.Info().Str("path", cfg.History.Path).Msg("history store ready")
		sinks = append(sinks, store)
		closeFn = func() {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("closing history store")
			}
		}
	}

	if cfg.Translate.Enabled {
		t := &translate.Sink{
			Translator: translate.New(cfg.Translate.BaseURL, cfg.Translate.APIKey, cfg.Translate.Timeout),
			Source:     cfg.Translate.Source,
			Target:     cfg.Translate.Target,
			Log:        logging.Component(log, "translate"),
		}
		if store != nil {
			t.Store = store
		}
		sinks = append(sinks, t)
		log.Info().Str("target", cfg.Translate.Target).Msg("translation enabled")
	}

	if live && cfg.Inject.Enabled {
		sinks = append(sinks, inject.NewInjector(cfg.Inject.Method, log))
		log.Info().Str("method", cfg.Inject.Method).Msg("text injector ready")
	}
	return sinks, closeFn, nil
}

func segmentDumper(dir string, log zerolog.Logger) (func(vad.SpeechSegment), error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	n := 0
	return func(seg vad.SpeechSegment) {
		n++
		path := filepath.Join(dir, fmt.Sprintf("segment-%04d-%dms.wav", n, seg.StartTime().Milliseconds()))
		if err := audio.WriteWAV(path, seg.Samples); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("segment dump failed")
		}
	}, nil
}

func printEvent(ev pipeline.Event) {
	switch ev.Kind {
	case pipeline.EventFinal:
		fmt.Printf("[%s] %s\n", formatOffset(ev.Timestamp), ev.Text)
	case pipeline.EventError:
		fmt.Fprintln(os.Stderr, ev)
	}
}

func formatOffset(d time.Duration) string {
	d = d.Round(time.Millisecond)
	m := d / time.Minute
	s := (d % time.Minute).Seconds()
	return fmt.Sprintf("%02d:%06.3f", m, s)
}

func transcribeFile(cfg *config.Config, factory pipeline.Factory, sinks []session.Sink, path, reference string, log zerolog.Logger) error {
	samples, err := audio.ReadWAV(path)
	if err != nil {
		return err
	}
	log.Info().Str("file", path).Dur("duration", audio.SamplesToDuration(int64(len(samples)))).Msg("transcribing file")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	sess := session.New(factory, sessionOptions(cfg, sinks, log, session.WithEventHook(printEvent))...)
	batch := cfg.Audio.BatchMS * audio.SampleRate / 1000
	if err := sess.Start(ctx, audio.Batches(ctx, samples, batch)); err != nil {
		return err
	}
	if err := sess.Wait(); err != nil {
		return err
	}

	stats := sess.Stats()
	log.Info().
		Dur("elapsed", time.Since(start).Round(time.Millisecond)).
		Int("sentences", len(sess.Sentences())).
		Int64("failures", stats.Failures).
		Msg("file done")

	if reference == "" {
		return nil
	}
	ref, err := os.ReadFile(reference)
	if err != nil {
		return fmt.Errorf("reading reference: %w", err)
	}
	res := transcribe.ComputeWER(string(ref), sess.Text())
	fmt.Printf("WER: %.2f%% (S=%d I=%d D=%d, %d reference words)\n",
		res.WER*100, res.Substitutions, res.Insertions, res.Deletions, res.RefWords)
	return nil
}

func runLive(cfg *config.Config, factory pipeline.Factory, sinks []session.Sink, closeSinks func(), log zerolog.Logger) {
	recorder, err := audio.NewRecorder(cfg.Audio.Channels, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize audio recorder; check microphone permissions")
	}
	log.Info().Msg("audio recorder ready")

	listener := hotkey.NewListener(cfg.Hotkey.Keys, cfg.Hotkey.Mode, log)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go listener.Start()

	log.Info().Msgf("Ready! Press %s to transcribe. Ctrl+C to quit.", strings.Join(cfg.Hotkey.Keys, "+"))

	var sess *session.Session
	finish := func() {
		if sess == nil {
			return
		}
		// Closing the batch channel lets the pipeline flush its last utterance.
		recorder.Stop()
		if err := sess.Wait(); err != nil {
			log.Error().Err(err).Msg("session failed")
		}
		if d := recorder.Dropped(); d > 0 {
			log.Warn().Int64("batches", d).Msg("capture batches dropped")
		}
		sess = nil
	}

	events := listener.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				log.Info().Msg("hotkey listener stopped")
				finish()
				_ = recorder.Close()
				return
			}

			switch ev.Type {
			case hotkey.EventStart:
				if sess != nil {
					continue
				}
				batches, err := recorder.Stream(context.Background(), cfg.Audio.Buffered)
				if err != nil {
					log.Error().Err(err).Msg("failed to start capture")
					continue
				}
				sess = session.New(factory, sessionOptions(cfg, sinks, log, session.WithEventHook(printEvent))...)
				if err := sess.Start(context.Background(), batches); err != nil {
					log.Error().Err(err).Msg("failed to start session")
					recorder.Stop()
					sess = nil
					continue
				}
				log.Info().Str("session", sess.ID).Msg("listening...")

			case hotkey.EventStop:
				finish()
			}

		case sig := <-sigCh:
			log.Info().Stringer("signal", sig).Msg("shutting down")
			if sess != nil {
				if err := sess.Stop(); err != nil {
					log.Error().Err(err).Msg("session failed")
				}
				recorder.Stop()
			}
			_ = recorder.Close()
			closeSinks()
			log.Info().Msg("goodbye")
			// Exit directly to avoid gohook's C cleanup crash.
			// The OS reclaims the event hook on process exit.
			os.Exit(0)
		}
	}
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== transflow ===")
	fmt.Printf("  Strategy:  %s\n", cfg.Pipeline.Strategy)
	fmt.Printf("  Backend:   %s (%s)\n", cfg.Decoder.Backend, cfg.Decoder.ModelDir)
	if cfg.Pipeline.Strategy == "offline" {
		fmt.Printf("  VAD:       %s (threshold %.2f)\n", cfg.VAD.Classifier, cfg.VAD.Threshold)
	}
	fmt.Printf("  Hotkey:    %s (%s mode)\n", strings.Join(cfg.Hotkey.Keys, "+"), cfg.Hotkey.Mode)
	fmt.Printf("  Audio:     %dHz, %dch\n", cfg.Audio.SampleRate, cfg.Audio.Channels)
	if cfg.Translate.Enabled {
		fmt.Printf("  Translate: %s -> %s\n", cfg.Translate.Source, cfg.Translate.Target)
	}
	fmt.Printf("  Log:       %s\n", cfg.LogLevel)
	fmt.Println("=================")
}
