package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"transcriptqa/internal/core/domain"
	"transcriptqa/internal/core/ports"
	"transcriptqa/internal/core/videoid"
)

// Orchestrator coordinates the transcript → upload → answer workflow.
type Orchestrator struct {
	fetcher  ports.TranscriptFetcher
	uploader ports.ArtifactUploader
	answerer ports.QuestionAnswerer
	cache    ports.ArtifactCache
	archive  ports.TranscriptArchive
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures optional collaborators of the Orchestrator.
type Option func(*Orchestrator)

// WithCache makes Ask and Query reuse references uploaded earlier in the
// same process instead of re-indexing.
func WithCache(c ports.ArtifactCache) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// WithArchive keeps a copy of every fetched transcript.
func WithArchive(a ports.TranscriptArchive) Option {
	return func(o *Orchestrator) { o.archive = a }
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(
	fetcher ports.TranscriptFetcher,
	uploader ports.ArtifactUploader,
	answerer ports.QuestionAnswerer,
	logger *slog.Logger,
	opts ...Option,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		fetcher:  fetcher,
		uploader: uploader,
		answerer: answerer,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Index fetches the transcript for url and uploads it, returning the
// uploaded artifact. The cache, when set, is updated but never consulted.
func (o *Orchestrator) Index(ctx context.Context, url string) (*domain.IndexResult, error) {
	video, err := videoid.Parse(url)
	if err != nil {
		return nil, err
	}
	return o.index(ctx, uuid.New().String(), video)
}

// Ask answers question about the video at url. Without a cache the video
// is indexed again on every call.
func (o *Orchestrator) Ask(ctx context.Context, url, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", domain.NewError(domain.StageAsk, domain.KindInvalidInput, domain.ErrEmptyQuestion)
	}
	video, err := videoid.Parse(url)
	if err != nil {
		return "", err
	}

	opID := uuid.New().String()
	log := o.logger.With(slog.String("op", opID), slog.String("video_id", video.ID))

	artifact, ok := o.cached(video.ID)
	if ok {
		log.Info("reusing uploaded transcript", slog.String("uri", artifact.URI))
	} else {
		res, err := o.index(ctx, opID, video)
		if err != nil {
			return "", err
		}
		artifact = res.Artifact
	}

	answer, err := o.answerer.Ask(ctx, artifact, question)
	if err != nil {
		log.Error("answer failed", slog.Any("error", err))
		return "", fmt.Errorf("answer question: %w", err)
	}
	log.Info("question answered", slog.Int("chars", len(answer)))
	return answer, nil
}

// Query indexes the video and answers question in one operation.
func (o *Orchestrator) Query(ctx context.Context, url, question string) (string, error) {
	return o.Ask(ctx, url, question)
}

// Invalidate forgets the cached reference for the video at url.
func (o *Orchestrator) Invalidate(url string) error {
	video, err := videoid.Parse(url)
	if err != nil {
		return err
	}
	if o.cache != nil {
		o.cache.Invalidate(video.ID)
	}
	return nil
}

func (o *Orchestrator) cached(videoID string) (domain.ArtifactReference, bool) {
	if o.cache == nil {
		return domain.ArtifactReference{}, false
	}
	return o.cache.Get(videoID)
}

func (o *Orchestrator) index(ctx context.Context, opID string, video domain.VideoReference) (*domain.IndexResult, error) {
	log := o.logger.With(slog.String("op", opID), slog.String("video_id", video.ID))
	log.Info("indexing video", slog.String("url", video.URL))

	rec, err := o.fetcher.Fetch(ctx, video.URL)
	if err != nil {
		log.Error("transcript fetch failed", slog.Any("error", err))
		return nil, fmt.Errorf("fetch transcript: %w", err)
	}

	if o.archive != nil {
		dir, err := o.archive.SaveTranscript(ctx, opID, video, rec)
		if err != nil {
			log.Error("archive failed", slog.Any("error", err))
			return nil, domain.NewError(domain.StageArchive, domain.KindStorage, err)
		}
		log.Info("transcript archived", slog.String("dir", dir))
	}

	artifact, err := o.uploader.Upload(ctx, rec.Text, video)
	if err != nil {
		log.Error("upload failed", slog.Any("error", err))
		return nil, fmt.Errorf("upload transcript: %w", err)
	}

	if o.cache != nil {
		o.cache.Put(video.ID, artifact)
	}

	log.Info("video indexed", slog.String("uri", artifact.URI))
	return &domain.IndexResult{
		OperationID: opID,
		Video:       video,
		Transcript:  rec,
		Artifact:    artifact,
		CompletedAt: o.now().UTC(),
	}, nil
}
