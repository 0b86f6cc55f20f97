// Package gemini talks to the Generative Language API: the File API for
// uploading transcripts and generateContent for answering questions.
package gemini

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"transcriptqa/internal/adapters/httpapi"
	"transcriptqa/internal/clock"
	"transcriptqa/internal/core/domain"
)

const (
	DefaultBaseURL          = "https://generativelanguage.googleapis.com"
	DefaultModel            = "gemini-2.5-flash"
	DefaultReadyInterval    = 3 * time.Second
	DefaultReadyMaxAttempts = 10
)

// Config controls the Gemini client.
//
// ReadyMaxAttempts bounds how often an uploaded file's state is polled
// until it is ACTIVE. Zero keeps the one-shot behaviour: wait ReadyInterval
// once and return the reference without checking again.
type Config struct {
	APIKey           string
	BaseURL          string
	Model            string
	ReadyInterval    time.Duration
	ReadyMaxAttempts int
}

// Client implements ports.ArtifactUploader and ports.QuestionAnswerer.
type Client struct {
	cfg    Config
	http   *httpapi.Client
	clock  clock.Clock
	logger *slog.Logger
}

// NewClient creates a Client. A negative ReadyMaxAttempts is treated as zero.
func NewClient(cfg Config, hc *httpapi.Client, clk clock.Clock, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, domain.NewError(domain.StageConfig, domain.KindConfiguration,
			fmt.Errorf("%w: GEMINI_API_KEY is not set", domain.ErrMissingCredential))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.ReadyInterval <= 0 {
		cfg.ReadyInterval = DefaultReadyInterval
	}
	if cfg.ReadyMaxAttempts < 0 {
		cfg.ReadyMaxAttempts = 0
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: hc, clock: clk, logger: logger}, nil
}

func (c *Client) url(path string) string {
	return c.cfg.BaseURL + path + "?key=" + url.QueryEscape(c.cfg.APIKey)
}
