// Package config loads settings from defaults, an optional YAML file, an
// optional .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"transcriptqa/internal/adapters/apify"
	"transcriptqa/internal/adapters/gemini"
	"transcriptqa/internal/adapters/httpapi"
	"transcriptqa/internal/adapters/ytdlp"
	"transcriptqa/internal/core/domain"
)

const (
	SourceApify = "apify"
	SourceYtDlp = "ytdlp"
)

// Config holds all application configuration.
type Config struct {
	Apify      ApifyConfig      `yaml:"apify"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	HTTP       HTTPConfig       `yaml:"http"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Cache      CacheConfig      `yaml:"cache"`
	ArchiveDir string           `yaml:"archive_dir"`
	LogLevel   string           `yaml:"log_level"`
}

// ApifyConfig holds transcript job service settings.
type ApifyConfig struct {
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	Actor           string        `yaml:"actor"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxPollAttempts int           `yaml:"max_poll_attempts"`
}

// GeminiConfig holds upload and generation settings.
type GeminiConfig struct {
	APIKey           string        `yaml:"api_key"`
	BaseURL          string        `yaml:"base_url"`
	Model            string        `yaml:"model"`
	ReadyInterval    time.Duration `yaml:"ready_interval"`
	ReadyMaxAttempts int           `yaml:"ready_max_attempts"` // 0 = wait once, don't verify
}

// HTTPConfig holds transport settings shared by both services.
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"` // 0 = unlimited
}

// TranscriptConfig selects where transcripts come from.
type TranscriptConfig struct {
	Source       string `yaml:"source"` // "apify" or "ytdlp"
	YtDlpPath    string `yaml:"ytdlp_path"`
	SubtitleLang string `yaml:"subtitle_lang"`
}

// CacheConfig controls the in-process artifact cache used by chat.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "transcript-qa", "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Apify: ApifyConfig{
			BaseURL:         apify.DefaultBaseURL,
			Actor:           apify.DefaultActor,
			PollInterval:    apify.DefaultPollInterval,
			MaxPollAttempts: apify.DefaultMaxPollAttempts,
		},
		Gemini: GeminiConfig{
			BaseURL:          gemini.DefaultBaseURL,
			Model:            gemini.DefaultModel,
			ReadyInterval:    gemini.DefaultReadyInterval,
			ReadyMaxAttempts: gemini.DefaultReadyMaxAttempts,
		},
		HTTP: HTTPConfig{
			Timeout: httpapi.DefaultTimeout,
		},
		Transcript: TranscriptConfig{
			Source:       SourceApify,
			SubtitleLang: ytdlp.DefaultLanguage,
		},
		Cache: CacheConfig{
			TTL: time.Hour,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// FromEnvironment builds the effective configuration: the YAML file at path
// (or the default path when it exists), then envFile, then the environment.
// The result is validated.
func FromEnvironment(path, envFile string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if p := DefaultConfigPath(); p != "" {
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	}
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, configError(err)
		}
		cfg = loaded
	}

	if err := LoadEnvFile(envFile); err != nil {
		return nil, configError(err)
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFile loads variables from a .env file without overriding ones
// already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables that are set.
func (c *Config) ApplyEnv() {
	c.Apify.APIKey = env.Str("APIFY_API_KEY", c.Apify.APIKey)
	c.Apify.BaseURL = env.Str("APIFY_BASE_URL", c.Apify.BaseURL)
	c.Apify.Actor = env.Str("APIFY_ACTOR", c.Apify.Actor)
	c.Apify.PollInterval = env.Duration("POLL_INTERVAL", c.Apify.PollInterval)
	c.Apify.MaxPollAttempts = env.Int("POLL_MAX_ATTEMPTS", c.Apify.MaxPollAttempts)

	c.Gemini.APIKey = env.Str("GEMINI_API_KEY", c.Gemini.APIKey)
	c.Gemini.BaseURL = env.Str("GEMINI_BASE_URL", c.Gemini.BaseURL)
	c.Gemini.Model = env.Str("GEMINI_MODEL", c.Gemini.Model)
	c.Gemini.ReadyInterval = env.Duration("UPLOAD_READY_INTERVAL", c.Gemini.ReadyInterval)
	c.Gemini.ReadyMaxAttempts = env.Int("UPLOAD_READY_MAX_ATTEMPTS", c.Gemini.ReadyMaxAttempts)

	c.HTTP.Timeout = env.Duration("HTTP_TIMEOUT", c.HTTP.Timeout)
	c.HTTP.RequestsPerSecond = env.Float("HTTP_RPS", c.HTTP.RequestsPerSecond)

	c.Transcript.Source = env.Str("TRANSCRIPT_SOURCE", c.Transcript.Source)
	c.Transcript.YtDlpPath = env.Str("YTDLP_PATH", c.Transcript.YtDlpPath)
	c.Transcript.SubtitleLang = env.Str("SUBTITLE_LANG", c.Transcript.SubtitleLang)

	c.Cache.TTL = env.Duration("CACHE_TTL", c.Cache.TTL)
	c.ArchiveDir = env.Str("ARCHIVE_DIR", c.ArchiveDir)
	c.LogLevel = env.Str("LOG_LEVEL", c.LogLevel)
}

// Validate checks the config for missing credentials and invalid values.
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return configError(fmt.Errorf("%w: GEMINI_API_KEY environment variable not set", domain.ErrMissingCredential))
	}

	switch c.Transcript.Source {
	case SourceApify:
		if c.Apify.APIKey == "" {
			return configError(fmt.Errorf("%w: APIFY_API_KEY environment variable not set", domain.ErrMissingCredential))
		}
	case SourceYtDlp:
	default:
		return configError(fmt.Errorf("transcript.source must be %q or %q, got %q", SourceApify, SourceYtDlp, c.Transcript.Source))
	}

	if c.Apify.PollInterval <= 0 {
		return configError(fmt.Errorf("apify.poll_interval must be > 0"))
	}
	if c.Apify.MaxPollAttempts <= 0 {
		return configError(fmt.Errorf("apify.max_poll_attempts must be > 0"))
	}
	if c.Gemini.ReadyInterval <= 0 {
		return configError(fmt.Errorf("gemini.ready_interval must be > 0"))
	}
	if c.Gemini.ReadyMaxAttempts < 0 {
		return configError(fmt.Errorf("gemini.ready_max_attempts must be >= 0"))
	}
	if c.HTTP.Timeout <= 0 {
		return configError(fmt.Errorf("http.timeout must be > 0"))
	}
	if c.HTTP.RequestsPerSecond < 0 {
		return configError(fmt.Errorf("http.requests_per_second must be >= 0"))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return configError(fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel))
	}
	return nil
}

// SlogLevel maps LogLevel to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func configError(err error) error {
	return domain.NewError(domain.StageConfig, domain.KindConfiguration, err)
}
