package ports

import (
	"context"

	"transcriptqa/internal/core/domain"
)

// TranscriptFetcher retrieves the transcript of a video.
type TranscriptFetcher interface {
	// Fetch blocks until the transcript is available or the attempt fails.
	Fetch(ctx context.Context, videoURL string) (domain.TranscriptRecord, error)
}

// ArtifactUploader stores transcript text in the document service.
type ArtifactUploader interface {
	// Upload returns a reference that later questions can point at.
	Upload(ctx context.Context, text string, video domain.VideoReference) (domain.ArtifactReference, error)
}

// QuestionAnswerer answers a question from an uploaded artifact.
type QuestionAnswerer interface {
	Ask(ctx context.Context, artifact domain.ArtifactReference, question string) (string, error)
}

// ArtifactCache remembers uploaded references by video identifier.
type ArtifactCache interface {
	Get(videoID string) (domain.ArtifactReference, bool)
	Put(videoID string, ref domain.ArtifactReference)
	Invalidate(videoID string)
}

// TranscriptArchive keeps a copy of each fetched transcript.
type TranscriptArchive interface {
	// SaveTranscript writes the transcript for one operation and returns
	// the directory it was written to.
	SaveTranscript(ctx context.Context, operationID string, video domain.VideoReference, rec domain.TranscriptRecord) (string, error)
}
