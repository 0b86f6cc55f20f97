package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcriptqa/internal/adapters/memcache"
	"transcriptqa/internal/core/domain"
)

const testURL = "https://www.youtube.com/watch?v=abc123&t=5"

type fakeFetcher struct {
	calls int
	rec   domain.TranscriptRecord
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, videoURL string) (domain.TranscriptRecord, error) {
	f.calls++
	return f.rec, f.err
}

type fakeUploader struct {
	calls   int
	gotText string
	gotRef  domain.VideoReference
	ref     domain.ArtifactReference
	err     error
}

func (f *fakeUploader) Upload(ctx context.Context, text string, video domain.VideoReference) (domain.ArtifactReference, error) {
	f.calls++
	f.gotText = text
	f.gotRef = video
	return f.ref, f.err
}

type fakeAnswerer struct {
	calls       int
	gotArtifact domain.ArtifactReference
	gotQuestion string
	answer      string
	err         error
}

func (f *fakeAnswerer) Ask(ctx context.Context, artifact domain.ArtifactReference, question string) (string, error) {
	f.calls++
	f.gotArtifact = artifact
	f.gotQuestion = question
	return f.answer, f.err
}

type fakeArchive struct {
	opIDs []string
	err   error
}

func (f *fakeArchive) SaveTranscript(ctx context.Context, operationID string, video domain.VideoReference, rec domain.TranscriptRecord) (string, error) {
	f.opIDs = append(f.opIDs, operationID)
	return "/tmp/" + operationID, f.err
}

type fixture struct {
	fetcher  *fakeFetcher
	uploader *fakeUploader
	answerer *fakeAnswerer
}

func newFixture() fixture {
	return fixture{
		fetcher:  &fakeFetcher{rec: domain.TranscriptRecord{Text: "hello world", Source: "apify"}},
		uploader: &fakeUploader{ref: domain.ArtifactReference{Name: "files/1", URI: "ref://1", State: domain.FileStateActive}},
		answerer: &fakeAnswerer{answer: "42"},
	}
}

func (f fixture) orchestrator(opts ...Option) *Orchestrator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOrchestrator(f.fetcher, f.uploader, f.answerer, logger, opts...)
}

func TestIndex(t *testing.T) {
	f := newFixture()
	res, err := f.orchestrator().Index(context.Background(), testURL)
	require.NoError(t, err)

	assert.Equal(t, "ref://1", res.Artifact.URI)
	assert.Equal(t, domain.VideoReference{URL: testURL, ID: "abc123"}, res.Video)
	assert.NotEmpty(t, res.OperationID)
	assert.False(t, res.CompletedAt.IsZero())
	assert.Equal(t, "hello world", f.uploader.gotText)
	assert.Equal(t, "abc123", f.uploader.gotRef.ID)
}

func TestIndexRejectsUnknownURL(t *testing.T) {
	f := newFixture()
	_, err := f.orchestrator().Index(context.Background(), "https://vimeo.com/1")

	assert.ErrorIs(t, err, domain.ErrNoIdentifierFound)
	assert.Zero(t, f.fetcher.calls)
}

func TestIndexFetchFailureSkipsUpload(t *testing.T) {
	f := newFixture()
	f.fetcher.err = domain.NewError(domain.StageCollect, domain.KindDomain, domain.ErrNoTranscript)

	res, err := f.orchestrator().Index(context.Background(), testURL)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrNoTranscript)
	assert.Equal(t, domain.StageCollect, domain.StageOf(err))
	assert.Zero(t, f.uploader.calls)
}

func TestIndexUploadFailure(t *testing.T) {
	f := newFixture()
	f.uploader.err = domain.RemoteError(domain.StageUpload, 500, "boom")

	_, err := f.orchestrator().Index(context.Background(), testURL)
	assert.Equal(t, domain.KindRemoteRequest, domain.KindOf(err))
	assert.Contains(t, err.Error(), "upload transcript")
}

func TestAskReindexesWithoutCache(t *testing.T) {
	f := newFixture()
	o := f.orchestrator()

	for i := 0; i < 2; i++ {
		answer, err := o.Ask(context.Background(), testURL, "what is it")
		require.NoError(t, err)
		assert.Equal(t, "42", answer)
	}
	assert.Equal(t, 2, f.fetcher.calls)
	assert.Equal(t, 2, f.uploader.calls)
	assert.Equal(t, "ref://1", f.answerer.gotArtifact.URI)
	assert.Equal(t, "what is it", f.answerer.gotQuestion)
}

func TestAskUsesCache(t *testing.T) {
	f := newFixture()
	cache := memcache.New(0, nil)
	o := f.orchestrator(WithCache(cache))

	for i := 0; i < 3; i++ {
		_, err := o.Ask(context.Background(), testURL, "q")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, f.fetcher.calls)
	assert.Equal(t, 3, f.answerer.calls)

	// The same video through another URL shape shares the entry.
	_, err := o.Query(context.Background(), "https://youtu.be/abc123", "q")
	require.NoError(t, err)
	assert.Equal(t, 1, f.fetcher.calls)

	require.NoError(t, o.Invalidate(testURL))
	_, err = o.Ask(context.Background(), testURL, "q")
	require.NoError(t, err)
	assert.Equal(t, 2, f.fetcher.calls)
}

func TestIndexRefreshesCache(t *testing.T) {
	f := newFixture()
	cache := memcache.New(0, nil)
	cache.Put("abc123", domain.ArtifactReference{URI: "ref://stale"})
	o := f.orchestrator(WithCache(cache))

	_, err := o.Index(context.Background(), testURL)
	require.NoError(t, err)
	assert.Equal(t, 1, f.fetcher.calls, "index never short-circuits on the cache")

	got, ok := cache.Get("abc123")
	require.True(t, ok)
	assert.Equal(t, "ref://1", got.URI)
}

func TestAskFailedUploadIsNotCached(t *testing.T) {
	f := newFixture()
	f.uploader.err = errors.New("upload broke")
	cache := memcache.New(0, nil)

	_, err := f.orchestrator(WithCache(cache)).Ask(context.Background(), testURL, "q")
	require.Error(t, err)
	assert.Zero(t, cache.Len())
	assert.Zero(t, f.answerer.calls)
}

func TestAskEmptyQuestion(t *testing.T) {
	f := newFixture()
	_, err := f.orchestrator().Ask(context.Background(), testURL, "   ")

	assert.ErrorIs(t, err, domain.ErrEmptyQuestion)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
	assert.Zero(t, f.fetcher.calls)
}

func TestAskNoAnswer(t *testing.T) {
	f := newFixture()
	f.answerer.err = domain.NewError(domain.StageGenerate, domain.KindDomain, domain.ErrNoAnswer)

	answer, err := f.orchestrator().Query(context.Background(), testURL, "q")
	assert.Empty(t, answer)
	assert.ErrorIs(t, err, domain.ErrNoAnswer)
	assert.Equal(t, domain.StageGenerate, domain.StageOf(err))
}

func TestIndexArchivesTranscript(t *testing.T) {
	f := newFixture()
	archive := &fakeArchive{}

	res, err := f.orchestrator(WithArchive(archive)).Index(context.Background(), testURL)
	require.NoError(t, err)
	assert.Equal(t, []string{res.OperationID}, archive.opIDs)
}

func TestIndexArchiveFailureStops(t *testing.T) {
	f := newFixture()
	archive := &fakeArchive{err: errors.New("disk full")}

	_, err := f.orchestrator(WithArchive(archive)).Index(context.Background(), testURL)
	assert.Equal(t, domain.KindStorage, domain.KindOf(err))
	assert.Equal(t, domain.StageArchive, domain.StageOf(err))
	assert.Zero(t, f.uploader.calls)
}

func TestInvalidateWithoutCache(t *testing.T) {
	f := newFixture()
	assert.NoError(t, f.orchestrator().Invalidate(testURL))
	assert.ErrorIs(t, f.orchestrator().Invalidate("nope"), domain.ErrNoIdentifierFound)
}
