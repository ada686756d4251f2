// Package config resolves the assistant's tunables from an env file, the
// process environment and command line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strings"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"sagar/internal/assistant"
)

// Config is read once at start-up and never modified afterwards.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	ChatTimeout time.Duration
	SocksProxy  string

	Session assistant.SessionConfig

	EditorPath      string
	WhisperModel    string
	WhisperLanguage string
	SongsFile       string
	EspeakVoice     string
	BeepFile        string
	BusURL          string
	DuckFactor      float64
	ReplayDir       string
}

type key struct {
	name  string
	def   any
	usage string
}

var keys = []key{
	{"GROQ_API_KEY", "", "API key of the chat backend"},
	{"GROQ_MODEL", "llama-3.1-8b-instant", "chat model"},
	{"GROQ_BASE_URL", "https://api.groq.com/openai/v1", "OpenAI compatible endpoint"},
	{"CHAT_TIMEOUT", 30.0, "seconds per chat request"},
	{"SOCKS_PROXY", "", "SOCKS5 proxy address for the chat backend"},
	{"LISTEN_TIMEOUT", 20.0, "seconds to wait for a command"},
	{"PHRASE_TIME_LIMIT", 6.0, "max seconds of one command"},
	{"WAKEWORD_TIMEOUT", 5.0, "seconds to wait for the wake word"},
	{"WAKEWORD_PHRASE_LIMIT", 2.0, "max seconds of the wake phrase"},
	{"AMBIENT_ADJUST_DURATION", 0.8, "seconds of ambient noise calibration"},
	{"WAKEWORD_RECALIBRATE_EVERY", 5, "recalibrate every N wake checks, 0 disables"},
	{"RECALIBRATE_AFTER_FAILURES", 3, "recalibrate after N unintelligible captures, 0 disables"},
	{"MIN_COMMAND_WORDS", assistant.DefaultMinCommandWords, "commands shorter than this get a follow-up capture"},
	{"FOLLOWUP_TIMEOUT", 4.0, "seconds to wait for a follow-up"},
	{"FOLLOWUP_PHRASE_LIMIT", 5.0, "max seconds of a follow-up"},
	{"FOLLOWUP_MAX_CAPTURES", 2, "follow-up captures per command (at most 2)"},
	{"VSCODE_PATH", "", "path of the Visual Studio Code executable"},
	{"WHISPER_MODEL", "models/ggml-base.en.bin", "whisper.cpp model file"},
	{"WHISPER_LANGUAGE", "en", "whisper language, or auto"},
	{"SONGS_FILE", "songs.yaml", "YAML table of song names to links"},
	{"ESPEAK_VOICE", "en", "espeak-ng voice language"},
	{"BEEP_FILE", "beep.mp3", "wake chime, empty disables"},
	{"BUS_URL", "", "websocket URL for dialogue events, empty disables"},
	{"DUCK_FACTOR", 0.0, "volume factor for other streams while active, 0 disables"},
	{"REPLAY_DIR", "", "replay audio files from this directory instead of the microphone"},
}

// flagName maps LISTEN_TIMEOUT to listen-timeout.
func flagName(k string) string {
	return strings.ReplaceAll(strings.ToLower(k), "_", "-")
}

// RegisterFlags adds one long flag per configuration key to flags.
func RegisterFlags(flags *cli.FlagSet) {
	for _, k := range keys {
		name := flagName(k.name)
		switch d := k.def.(type) {
		case string:
			flags.String(name, d, k.usage)
		case float64:
			flags.Float64(name, d, k.usage)
		case int:
			flags.Int(name, d, k.usage)
		}
	}
}

// Load reads envFile (a missing file is not an error), then the environment,
// then any flag of flags that was set explicitly.
func Load(envFile string, flags *cli.FlagSet) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	for _, k := range keys {
		v.SetDefault(k.name, k.def)
		if err := v.BindEnv(k.name); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", k.name, err)
		}
		if flags == nil {
			continue
		}
		if f := flags.Lookup(flagName(k.name)); f != nil && f.Changed {
			if err := v.BindPFlag(k.name, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", f.Name, err)
			}
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		APIKey:          strings.TrimSpace(v.GetString("GROQ_API_KEY")),
		Model:           v.GetString("GROQ_MODEL"),
		BaseURL:         v.GetString("GROQ_BASE_URL"),
		SocksProxy:      v.GetString("SOCKS_PROXY"),
		EditorPath:      v.GetString("VSCODE_PATH"),
		WhisperModel:    v.GetString("WHISPER_MODEL"),
		WhisperLanguage: v.GetString("WHISPER_LANGUAGE"),
		SongsFile:       v.GetString("SONGS_FILE"),
		EspeakVoice:     v.GetString("ESPEAK_VOICE"),
		BeepFile:        v.GetString("BEEP_FILE"),
		BusURL:          v.GetString("BUS_URL"),
		DuckFactor:      v.GetFloat64("DUCK_FACTOR"),
		ReplayDir:       v.GetString("REPLAY_DIR"),
	}

	var err error
	cfg.ChatTimeout, err = seconds(v, "CHAT_TIMEOUT")
	if err != nil {
		return nil, err
	}

	s := assistant.DefaultSessionConfig()
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"LISTEN_TIMEOUT", &s.ListenTimeout},
		{"PHRASE_TIME_LIMIT", &s.PhraseTimeLimit},
		{"WAKEWORD_TIMEOUT", &s.WakeTimeout},
		{"WAKEWORD_PHRASE_LIMIT", &s.WakePhraseLimit},
		{"AMBIENT_ADJUST_DURATION", &s.AmbientAdjust},
		{"FOLLOWUP_TIMEOUT", &s.FollowupTimeout},
		{"FOLLOWUP_PHRASE_LIMIT", &s.FollowupPhraseLimit},
	}
	for _, d := range durations {
		if *d.dst, err = seconds(v, d.key); err != nil {
			return nil, err
		}
	}

	s.WakeRecalibrateEvery = v.GetInt("WAKEWORD_RECALIBRATE_EVERY")
	s.RecalibrateAfterFailures = v.GetInt("RECALIBRATE_AFTER_FAILURES")
	s.MinCommandWords = v.GetInt("MIN_COMMAND_WORDS")
	s.FollowupMaxCaptures = v.GetInt("FOLLOWUP_MAX_CAPTURES")

	if s.WakeRecalibrateEvery < 0 || s.RecalibrateAfterFailures < 0 || s.FollowupMaxCaptures < 0 {
		return nil, errors.New("recalibration and follow-up counts must not be negative")
	}
	if s.MinCommandWords <= 0 {
		s.MinCommandWords = assistant.DefaultMinCommandWords
	}
	if s.FollowupMaxCaptures > 2 {
		s.FollowupMaxCaptures = 2
	}
	if cfg.DuckFactor < 0 || cfg.DuckFactor > 1 {
		return nil, fmt.Errorf("DUCK_FACTOR must be within [0, 1], got %v", cfg.DuckFactor)
	}

	cfg.Session = s
	return cfg, nil
}

// seconds reads a fractional number of seconds.
func seconds(v *viper.Viper, key string) (time.Duration, error) {
	f := v.GetFloat64(key)
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s must be a non-negative number of seconds, got %q", key, v.GetString(key))
	}
	return time.Duration(f * float64(time.Second)), nil
}
