package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"transcriptqa/internal/adapters/httpapi"
	"transcriptqa/internal/core/domain"
)

type fileMetadata struct {
	File struct {
		DisplayName string `json:"display_name"`
	} `json:"file"`
}

type fileInfo struct {
	Name  string           `json:"name"`
	URI   string           `json:"uri"`
	State domain.FileState `json:"state"`
}

type fileEnvelope struct {
	File *fileInfo `json:"file"`
}

// DisplayName is the name an uploaded transcript is given in the File API.
func DisplayName(videoID string) string {
	return "youtube_transcript_" + videoID + ".txt"
}

// Upload stores text in the File API and returns the resulting reference
// once the file is usable (see Config.ReadyMaxAttempts).
func (c *Client) Upload(ctx context.Context, text string, video domain.VideoReference) (domain.ArtifactReference, error) {
	body, contentType, err := buildUploadBody(DisplayName(video.ID), text)
	if err != nil {
		return domain.ArtifactReference{}, domain.NewError(domain.StageUpload, domain.KindProtocol, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/upload/v1beta/files"), body)
	if err != nil {
		return domain.ArtifactReference{}, domain.NewError(domain.StageUpload, domain.KindNetwork, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Goog-Upload-Protocol", "multipart")

	raw, err := c.http.Do(domain.StageUpload, req)
	if err != nil {
		return domain.ArtifactReference{}, err
	}

	var out fileEnvelope
	if err := httpapi.Decode(domain.StageUpload, raw, &out); err != nil {
		return domain.ArtifactReference{}, err
	}
	if out.File == nil || out.File.URI == "" {
		return domain.ArtifactReference{}, domain.NewError(domain.StageUpload, domain.KindProtocol, fmt.Errorf("response has no file uri"))
	}

	ref := domain.ArtifactReference{Name: out.File.Name, URI: out.File.URI, State: out.File.State}
	c.logger.Info("transcript uploaded",
		slog.String("name", ref.Name),
		slog.String("uri", ref.URI),
		slog.String("state", string(ref.State)),
	)

	if ref.State == domain.FileStateActive {
		return ref, nil
	}
	return c.awaitActive(ctx, ref)
}

// awaitActive waits for an uploaded file to leave PROCESSING.
func (c *Client) awaitActive(ctx context.Context, ref domain.ArtifactReference) (domain.ArtifactReference, error) {
	if c.cfg.ReadyMaxAttempts == 0 {
		c.logger.Info("waiting for file to be processed", slog.Duration("wait", c.cfg.ReadyInterval))
		if err := c.clock.Sleep(ctx, c.cfg.ReadyInterval); err != nil {
			return domain.ArtifactReference{}, domain.NewError(domain.StageFileState, domain.KindNetwork, err)
		}
		return ref, nil
	}
	if ref.Name == "" {
		return domain.ArtifactReference{}, domain.NewError(domain.StageFileState, domain.KindProtocol, fmt.Errorf("file %s has no resource name to poll", ref.URI))
	}

	for attempt := 1; attempt <= c.cfg.ReadyMaxAttempts; attempt++ {
		if err := c.clock.Sleep(ctx, c.cfg.ReadyInterval); err != nil {
			return domain.ArtifactReference{}, domain.NewError(domain.StageFileState, domain.KindNetwork, err)
		}

		var info fileInfo
		if err := c.http.GetJSON(ctx, domain.StageFileState, c.url("/v1beta/"+ref.Name), &info); err != nil {
			return domain.ArtifactReference{}, err
		}

		switch info.State {
		case domain.FileStateActive:
			ref.State = info.State
			if info.URI != "" {
				ref.URI = info.URI
			}
			return ref, nil
		case domain.FileStateFailed:
			return domain.ArtifactReference{}, domain.NewError(domain.StageFileState, domain.KindDomain,
				fmt.Errorf("%w: %s", domain.ErrFileProcessingFailed, ref.Name))
		}
		c.logger.Debug("file still processing", slog.String("name", ref.Name), slog.Int("attempt", attempt))
	}

	return domain.ArtifactReference{}, domain.NewError(domain.StageFileState, domain.KindLocalTimeout,
		fmt.Errorf("%w after %d attempts: %s", domain.ErrFileNotReady, c.cfg.ReadyMaxAttempts, ref.Name))
}

func buildUploadBody(displayName, text string) (*bytes.Buffer, string, error) {
	var meta fileMetadata
	meta.File.DisplayName = displayName
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, "", fmt.Errorf("encode metadata: %w", err)
	}

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	if err := writePart(w, "metadata", "application/json; charset=utf-8", metaJSON); err != nil {
		return nil, "", err
	}
	if err := writePart(w, "file", "text/plain; charset=utf-8", []byte(text)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

func writePart(w *multipart.Writer, name, contentType string, data []byte) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"`, name))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create %s part: %w", name, err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("write %s part: %w", name, err)
	}
	return nil
}
