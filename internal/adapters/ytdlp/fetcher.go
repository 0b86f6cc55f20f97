package ytdlp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"transcriptqa/internal/core/domain"
)

const (
	DefaultLanguage = "en.*"
	defaultTimeout  = 2 * time.Minute
	sourceName      = "ytdlp"
)

// SubtitleFetcher implements ports.TranscriptFetcher with the local yt-dlp
// binary: it downloads the video's subtitles as WebVTT and flattens them.
type SubtitleFetcher struct {
	binaryPath string
	lang       string
	timeout    time.Duration
	logger     *slog.Logger
}

// NewSubtitleFetcher creates a fetcher. An empty binaryPath looks for
// yt-dlp.exe in the working directory on Windows, then yt-dlp on PATH.
func NewSubtitleFetcher(binaryPath, lang string, logger *slog.Logger) *SubtitleFetcher {
	if binaryPath == "" {
		binaryPath = "yt-dlp"
		if runtime.GOOS == "windows" {
			if _, err := os.Stat("yt-dlp.exe"); err == nil {
				binaryPath = ".\\yt-dlp.exe"
			}
		}
	}
	if lang == "" {
		lang = DefaultLanguage
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SubtitleFetcher{binaryPath: binaryPath, lang: lang, timeout: defaultTimeout, logger: logger}
}

// Fetch downloads subtitles for videoURL and returns them as plain text.
func (d *SubtitleFetcher) Fetch(ctx context.Context, videoURL string) (domain.TranscriptRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	dir, err := os.MkdirTemp("", "transcript-qa-subs-")
	if err != nil {
		return domain.TranscriptRecord{}, domain.NewError(domain.StageCollect, domain.KindNetwork, fmt.Errorf("create temp dir: %w", err))
	}
	defer os.RemoveAll(dir)

	cmd := exec.CommandContext(ctx, d.binaryPath, d.args(dir, videoURL)...)

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	d.logger.Info("fetching subtitles via yt-dlp", slog.String("lang", d.lang))
	if err := cmd.Run(); err != nil {
		return domain.TranscriptRecord{}, domain.NewError(domain.StageCollect, domain.KindNetwork,
			fmt.Errorf("yt-dlp failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String())))
	}

	files, _ := filepath.Glob(filepath.Join(dir, "*.vtt"))
	if len(files) == 0 {
		return domain.TranscriptRecord{}, domain.NewError(domain.StageCollect, domain.KindDomain,
			fmt.Errorf("%w: no %s subtitles", domain.ErrNoTranscript, d.lang))
	}

	f, err := os.Open(files[0])
	if err != nil {
		return domain.TranscriptRecord{}, domain.NewError(domain.StageCollect, domain.KindNetwork, err)
	}
	defer f.Close()

	text, err := FlattenVTT(f)
	if err != nil {
		return domain.TranscriptRecord{}, domain.NewError(domain.StageCollect, domain.KindProtocol, err)
	}
	if text == "" {
		return domain.TranscriptRecord{}, domain.NewError(domain.StageCollect, domain.KindDomain, domain.ErrNoTranscriptText)
	}

	// --print writes one line per template: title, then channel.
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	rec := domain.TranscriptRecord{Text: text, Source: sourceName}
	if len(lines) > 0 {
		rec.Title = strings.TrimSpace(lines[0])
	}
	if len(lines) > 1 {
		rec.Channel = strings.TrimSpace(lines[1])
	}

	d.logger.Info("transcript fetched",
		slog.String("title", rec.Title),
		slog.String("channel", rec.Channel),
		slog.Int("chars", len(rec.Text)),
	)
	return rec, nil
}

func (d *SubtitleFetcher) args(dir, videoURL string) []string {
	return []string{
		"--skip-download",
		"--no-simulate",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", d.lang,
		"--sub-format", "vtt",
		"--no-warnings",
		"--print", "%(title)s",
		"--print", "%(channel)s",
		"-o", filepath.Join(dir, "subs.%(ext)s"),
		videoURL,
	}
}
