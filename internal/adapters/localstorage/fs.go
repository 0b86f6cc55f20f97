package localstorage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"transcriptqa/internal/core/domain"
)

// LocalStorage implements ports.TranscriptArchive on the local filesystem.
// Each operation gets its own directory under <BaseDir>/jobs.
type LocalStorage struct {
	BaseDir string
	now     func() time.Time
}

// NewLocalStorage creates a new LocalStorage instance.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir, now: time.Now}
}

type record struct {
	OperationID string                  `json:"operation_id"`
	Video       domain.VideoReference   `json:"video"`
	Transcript  domain.TranscriptRecord `json:"transcript"`
	Chars       int                     `json:"chars"`
	SavedAt     time.Time               `json:"saved_at"`
}

// SaveTranscript writes transcript_<id>.txt and record.json for one operation.
func (s *LocalStorage) SaveTranscript(ctx context.Context, operationID string, video domain.VideoReference, rec domain.TranscriptRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := s.GetJobPath(operationID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create job directory %s: %w", dir, err)
	}

	textPath := filepath.Join(dir, "transcript_"+video.ID+".txt")
	if err := os.WriteFile(textPath, []byte(rec.Text), 0644); err != nil {
		return "", fmt.Errorf("failed to save transcript: %w", err)
	}

	data, err := json.MarshalIndent(record{
		OperationID: operationID,
		Video:       video,
		Transcript:  rec,
		Chars:       len(rec.Text),
		SavedAt:     s.now().UTC(),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode record.json: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "record.json"), data, 0644); err != nil {
		return "", fmt.Errorf("failed to save record.json: %w", err)
	}
	return dir, nil
}

// GetJobPath returns the path for an operation's directory.
func (s *LocalStorage) GetJobPath(operationID string) string {
	return filepath.Join(s.BaseDir, "jobs", operationID)
}
