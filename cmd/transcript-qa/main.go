package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"transcriptqa/internal/adapters/apify"
	"transcriptqa/internal/adapters/gemini"
	"transcriptqa/internal/adapters/httpapi"
	"transcriptqa/internal/adapters/localstorage"
	"transcriptqa/internal/adapters/memcache"
	"transcriptqa/internal/adapters/ytdlp"
	"transcriptqa/internal/clock"
	"transcriptqa/internal/config"
	"transcriptqa/internal/core/ports"
	"transcriptqa/internal/service"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

const usage = `Usage: transcript-qa [-config path] [-env-file path] <command> [flags]

Commands:
  index  -url <video-url>                     fetch and index a video transcript
  ask    -url <video-url> -question <text>    ask a question about a video (re-indexes it)
  query  -url <video-url> -question <text>    index a video and immediately ask a question
  chat   -url <video-url>                     index once, then answer questions from stdin

Example:
  transcript-qa query -url https://www.youtube.com/watch?v=dQw4w9WgXcQ -question "What is this about?"
`

// command is a parsed CLI invocation.
type command struct {
	name       string
	url        string
	question   string
	configPath string
	envFile    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd, err := parseArgs(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "Error: %v\n\n", err)
		}
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	cfg, err := config.FromEnvironment(cmd.configPath, cmd.envFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	orch, err := buildOrchestrator(cfg, logger, cmd.name == "chat")
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	switch cmd.name {
	case "index":
		err = runIndex(ctx, orch, cmd, stdout)
	case "ask":
		fmt.Fprintln(stdout, "Note: this re-indexes the video. Use 'query' or 'chat' to avoid repeated work.")
		err = runAnswer(ctx, orch.Ask, cmd, stdout)
	case "query":
		err = runAnswer(ctx, orch.Query, cmd, stdout)
	case "chat":
		err = runChat(ctx, orch, cmd, stdin, stdout)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}

func parseArgs(args []string, stderr io.Writer) (command, error) {
	var cmd command

	global := flag.NewFlagSet("transcript-qa", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	global.StringVar(&cmd.configPath, "config", "", "path to config file (default: ~/.config/transcript-qa/config.yaml)")
	global.StringVar(&cmd.envFile, "env-file", ".env", "path to a .env file")
	if err := global.Parse(args); err != nil {
		return cmd, err
	}

	rest := global.Args()
	if len(rest) == 0 {
		return cmd, errors.New("missing command")
	}
	cmd.name = rest[0]

	needsQuestion := false
	switch cmd.name {
	case "index", "chat":
	case "ask", "query":
		needsQuestion = true
	default:
		return cmd, fmt.Errorf("unknown command %q", cmd.name)
	}

	sub := flag.NewFlagSet(cmd.name, flag.ContinueOnError)
	sub.SetOutput(stderr)
	sub.StringVar(&cmd.url, "url", "", "video URL")
	sub.StringVar(&cmd.url, "u", "", "video URL (shorthand)")
	if needsQuestion {
		sub.StringVar(&cmd.question, "question", "", "question to ask about the video")
		sub.StringVar(&cmd.question, "q", "", "question (shorthand)")
	}
	if err := sub.Parse(rest[1:]); err != nil {
		return cmd, err
	}

	if cmd.url == "" {
		return cmd, fmt.Errorf("%s: -url is required", cmd.name)
	}
	if needsQuestion && strings.TrimSpace(cmd.question) == "" {
		return cmd, fmt.Errorf("%s: -question is required", cmd.name)
	}
	return cmd, nil
}

func buildOrchestrator(cfg *config.Config, logger *slog.Logger, withCache bool) (*service.Orchestrator, error) {
	hc := httpapi.NewClient(cfg.HTTP.Timeout, cfg.HTTP.RequestsPerSecond)
	clk := clock.Real{}

	var fetcher ports.TranscriptFetcher
	switch cfg.Transcript.Source {
	case config.SourceYtDlp:
		fetcher = ytdlp.NewSubtitleFetcher(cfg.Transcript.YtDlpPath, cfg.Transcript.SubtitleLang, logger)
	default:
		c, err := apify.NewClient(apify.Config{
			APIKey:          cfg.Apify.APIKey,
			BaseURL:         cfg.Apify.BaseURL,
			Actor:           cfg.Apify.Actor,
			PollInterval:    cfg.Apify.PollInterval,
			MaxPollAttempts: cfg.Apify.MaxPollAttempts,
		}, hc, clk, logger)
		if err != nil {
			return nil, err
		}
		fetcher = c
	}

	gem, err := gemini.NewClient(gemini.Config{
		APIKey:           cfg.Gemini.APIKey,
		BaseURL:          cfg.Gemini.BaseURL,
		Model:            cfg.Gemini.Model,
		ReadyInterval:    cfg.Gemini.ReadyInterval,
		ReadyMaxAttempts: cfg.Gemini.ReadyMaxAttempts,
	}, hc, clk, logger)
	if err != nil {
		return nil, err
	}

	var opts []service.Option
	if withCache {
		opts = append(opts, service.WithCache(memcache.New(cfg.Cache.TTL, clk)))
	}
	if cfg.ArchiveDir != "" {
		opts = append(opts, service.WithArchive(localstorage.NewLocalStorage(cfg.ArchiveDir)))
	}
	return service.NewOrchestrator(fetcher, gem, gem, logger, opts...), nil
}

func runIndex(ctx context.Context, orch *service.Orchestrator, cmd command, stdout io.Writer) error {
	res, err := orch.Index(ctx, cmd.url)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, "\n=== Video indexed ===")
	if res.Transcript.Title != "" {
		fmt.Fprintf(stdout, "Title:    %s\n", res.Transcript.Title)
	}
	if res.Transcript.Channel != "" {
		fmt.Fprintf(stdout, "Channel:  %s\n", res.Transcript.Channel)
	}
	fmt.Fprintf(stdout, "Chars:    %d\n", len(res.Transcript.Text))
	fmt.Fprintf(stdout, "File URI: %s\n", res.Artifact.URI)
	fmt.Fprintf(stdout, "\nAsk questions with:\n  transcript-qa query -url %q -question \"Your question here\"\n", cmd.url)
	return nil
}

func runAnswer(ctx context.Context, answer func(context.Context, string, string) (string, error), cmd command, stdout io.Writer) error {
	text, err := answer(ctx, cmd.url, cmd.question)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "\nAnswer:\n%s\n", text)
	return nil
}

// runChat indexes the video once and answers each stdin line against it.
// "/reindex" drops the cached upload, "/quit" or EOF ends the session.
func runChat(ctx context.Context, orch *service.Orchestrator, cmd command, stdin io.Reader, stdout io.Writer) error {
	if _, err := orch.Index(ctx, cmd.url); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Video indexed. Type a question, /reindex or /quit.")

	sc := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "> ")
		if !sc.Scan() {
			fmt.Fprintln(stdout)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reindex":
			if err := orch.Invalidate(cmd.url); err != nil {
				return err
			}
			if _, err := orch.Index(ctx, cmd.url); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Video re-indexed.")
			continue
		}

		text, err := orch.Ask(ctx, cmd.url, line)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s\n\n", text)
	}
}
