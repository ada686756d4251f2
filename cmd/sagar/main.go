package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"sagar/internal/assistant"
	"sagar/internal/audio"
	"sagar/internal/bus"
	"sagar/internal/chat"
	"sagar/internal/config"
	"sagar/internal/ipc"
	"sagar/internal/launcher"
	"sagar/internal/library"
	"sagar/internal/notify"
	"sagar/internal/proxy"
	"sagar/internal/tts"
	"sagar/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Control socket path")
	config.RegisterFlags(cli.CommandLine)
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      logLevelMap[*logLevel],
		TimeFormat: time.TimeOnly,
	})))

	log.Info("Booting up")

	cfg, err := config.Load(*envFile, cli.CommandLine)
	if err != nil {
		log.Error("Bad configuration", "err", err)
		os.Exit(2)
	}

	if err := run(cfg, *socket); err != nil {
		log.Error("Assistant failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, socket string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var deps assistant.Deps

	if cfg.ReplayDir != "" {
		replay, err := audio.NewReplay(cfg.ReplayDir)
		if err != nil {
			return err
		}
		deps.Capturer = replay
	} else {
		rec := audio.NewRecorder()
		if err := rec.Init(); err != nil {
			return fmt.Errorf("init audio: %w", err)
		}
		defer rec.Close()
		deps.Capturer = rec
	}
	log.Debug("Loaded capture")

	whisper, err := stt.NewTranscriber(cfg.WhisperModel, stt.Options{Language: cfg.WhisperLanguage})
	if err != nil {
		return fmt.Errorf("init whisper: %w", err)
	}
	defer whisper.Close()
	deps.Transcriber = whisper
	log.Debug("Loaded whisper", "model", cfg.WhisperModel)

	voice, err := tts.NewVoice(cfg.EspeakVoice)
	if err != nil {
		return fmt.Errorf("init espeak: %w", err)
	}
	deps.Speaker = voice

	if cfg.BeepFile != "" {
		if chime, err := notify.NewChime(cfg.BeepFile); err != nil {
			log.Warn("Wake chime disabled", "err", err)
		} else {
			defer chime.Close()
			deps.Chimer = chime
		}
	}

	if cfg.DuckFactor > 0 {
		deps.Ducker = audio.NewDucker([]string{"sagar", "eSpeak", "espeak-ng"}, cfg.DuckFactor, 5, 300*time.Millisecond)
	}

	if cfg.BusURL != "" {
		b, err := bus.New(cfg.BusURL, "sagar", 2*time.Second)
		if err != nil {
			return fmt.Errorf("bus url: %w", err)
		}
		go b.Run(ctx)
		deps.Observer = b
	}

	procs := launcher.New()
	act := assistant.Actions{
		Browser: launcher.NewBrowser(procs),
		Editor:  launcher.NewEditor(cfg.EditorPath, procs),
	}

	switch songs, err := library.Load(cfg.SongsFile); {
	case errors.Is(err, assistant.ErrNotInstalled):
		log.Info("No song library", "file", cfg.SongsFile)
	case err != nil:
		log.Warn("Song library unusable", "err", err)
	default:
		log.Debug("Loaded song library", "songs", songs.Len())
		act.Songs = songs
	}

	switch client, err := newChat(cfg); {
	case errors.Is(err, assistant.ErrNotInstalled):
		log.Warn("GROQ_API_KEY not set, AI replies disabled")
	case err != nil:
		return err
	default:
		act.Chat = client
	}

	srv, err := ipc.StartServer(socket, func(msg ipc.ControlMessage) {
		switch msg.Cmd {
		case ipc.CmdStop:
			log.Info("Stop requested")
			stop()
		default:
			log.Warn("Unknown command", "cmd", msg.Cmd)
		}
	})
	if err != nil {
		return fmt.Errorf("control socket: %w", err)
	}
	defer srv.Close()

	log.Info("Boot up - successful")

	session := assistant.NewSession(cfg.Session, deps, assistant.NewDispatcher(voice, act))
	return session.Run(ctx)
}

func newChat(cfg *config.Config) (*chat.Client, error) {
	opts := chat.Options{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.ChatTimeout,
	}

	if cfg.SocksProxy != "" {
		httpClient, err := proxy.NewSocksClient(cfg.SocksProxy, cfg.ChatTimeout)
		if err != nil {
			return nil, fmt.Errorf("socks proxy %s: %w", cfg.SocksProxy, err)
		}
		opts.HTTPClient = httpClient
		log.Debug("Loaded proxy", "addr", cfg.SocksProxy)
	}

	return chat.New(opts)
}
