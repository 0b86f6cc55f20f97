package apify

import (
	"context"
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
	DefaultBaseURL = "https://api.apify.com/v2"
	// DefaultActor is streamers/youtube-scraper, which returns the caption text.
	DefaultActor = "streamers~youtube-scraper"

	DefaultPollInterval    = 5 * time.Second
	DefaultMaxPollAttempts = 60

	sourceName = "apify"
)

// Config controls the job client. Zero values fall back to the defaults.
type Config struct {
	APIKey          string
	BaseURL         string
	Actor           string
	PollInterval    time.Duration
	MaxPollAttempts int
}

// Client implements ports.TranscriptFetcher by running an Apify actor.
type Client struct {
	cfg    Config
	http   *httpapi.Client
	clock  clock.Clock
	logger *slog.Logger
}

// NewClient creates a Client.
func NewClient(cfg Config, hc *httpapi.Client, clk clock.Clock, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, domain.NewError(domain.StageConfig, domain.KindConfiguration,
			fmt.Errorf("%w: APIFY_API_KEY is not set", domain.ErrMissingCredential))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Actor == "" {
		cfg.Actor = DefaultActor
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = DefaultMaxPollAttempts
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: hc, clock: clk, logger: logger}, nil
}

type runInput struct {
	StartURLs  []startURL `json:"startUrls"`
	MaxResults int        `json:"maxResults"`
}

type startURL struct {
	URL string `json:"url"`
}

type runEnvelope struct {
	Data struct {
		ID     string           `json:"id"`
		Status domain.RunStatus `json:"status"`
	} `json:"data"`
}

type datasetItem struct {
	Text        *string `json:"text"`
	ChannelName *string `json:"channelName"`
	Title       *string `json:"title"`
}

// Fetch runs the transcript job for videoURL and returns its first result.
func (c *Client) Fetch(ctx context.Context, videoURL string) (domain.TranscriptRecord, error) {
	runID, err := c.startRun(ctx, videoURL)
	if err != nil {
		return domain.TranscriptRecord{}, fmt.Errorf("start actor run: %w", err)
	}

	c.logger.Info("waiting for transcript job", slog.String("run_id", runID))
	if err := c.waitForRun(ctx, runID); err != nil {
		return domain.TranscriptRecord{}, fmt.Errorf("wait for run %s: %w", runID, err)
	}

	rec, err := c.collect(ctx, runID)
	if err != nil {
		return domain.TranscriptRecord{}, fmt.Errorf("collect run %s: %w", runID, err)
	}

	c.logger.Info("transcript fetched",
		slog.String("run_id", runID),
		slog.String("title", rec.Title),
		slog.String("channel", rec.Channel),
		slog.Int("chars", len(rec.Text)),
	)
	return rec, nil
}

func (c *Client) startRun(ctx context.Context, videoURL string) (string, error) {
	input := runInput{
		StartURLs:  []startURL{{URL: videoURL}},
		MaxResults: 1,
	}

	var out runEnvelope
	if err := c.http.PostJSON(ctx, domain.StageSubmit, c.endpoint("runs"), input, &out); err != nil {
		return "", err
	}
	if out.Data.ID == "" {
		return "", domain.NewError(domain.StageSubmit, domain.KindProtocol, fmt.Errorf("response has no run id"))
	}
	return out.Data.ID, nil
}

// waitForRun polls until the run reaches a terminal state or the attempt
// budget runs out. A failed status check ends the wait immediately.
func (c *Client) waitForRun(ctx context.Context, runID string) error {
	statusURL := c.endpoint("runs", runID)

	for attempt := 1; ; attempt++ {
		if err := c.clock.Sleep(ctx, c.cfg.PollInterval); err != nil {
			return domain.NewError(domain.StagePoll, domain.KindNetwork, err)
		}

		var out runEnvelope
		if err := c.http.GetJSON(ctx, domain.StagePoll, statusURL, &out); err != nil {
			return err
		}
		status := out.Data.Status
		if status == "" {
			return domain.NewError(domain.StagePoll, domain.KindProtocol, fmt.Errorf("response has no run status"))
		}

		switch status.State() {
		case domain.JobSucceeded:
			c.logger.Info("transcript job complete", slog.String("run_id", runID), slog.Int("attempt", attempt))
			return nil
		case domain.JobFailed, domain.JobTimedOut:
			return domain.NewError(domain.StagePoll, domain.KindDomain,
				fmt.Errorf("%w with status %s", domain.ErrJobFailed, status))
		}

		c.logger.Debug("transcript job pending",
			slog.String("run_id", runID),
			slog.Int("attempt", attempt),
			slog.String("status", string(status)),
		)
		if attempt >= c.cfg.MaxPollAttempts {
			return domain.NewError(domain.StagePoll, domain.KindLocalTimeout,
				fmt.Errorf("%w after %d attempts", domain.ErrPollBudgetExhausted, attempt))
		}
	}
}

func (c *Client) collect(ctx context.Context, runID string) (domain.TranscriptRecord, error) {
	var items []datasetItem
	if err := c.http.GetJSON(ctx, domain.StageCollect, c.endpoint("runs", runID, "dataset", "items"), &items); err != nil {
		return domain.TranscriptRecord{}, err
	}
	if len(items) == 0 {
		return domain.TranscriptRecord{}, domain.NewError(domain.StageCollect, domain.KindDomain,
			fmt.Errorf("%w: the video might not have captions", domain.ErrNoTranscript))
	}

	item := items[0]
	if item.Text == nil || *item.Text == "" {
		return domain.TranscriptRecord{}, domain.NewError(domain.StageCollect, domain.KindDomain, domain.ErrNoTranscriptText)
	}

	return domain.TranscriptRecord{
		Text:    *item.Text,
		Title:   deref(item.Title),
		Channel: deref(item.ChannelName),
		Source:  sourceName,
	}, nil
}

func (c *Client) endpoint(parts ...string) string {
	segs := append([]string{c.cfg.BaseURL, "acts", c.cfg.Actor}, parts...)
	return strings.Join(segs, "/") + "?token=" + url.QueryEscape(c.cfg.APIKey)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
