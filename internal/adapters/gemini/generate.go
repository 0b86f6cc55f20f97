package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"transcriptqa/internal/core/domain"
)

const answerPrompt = "Based on the content of this video transcript, please answer the following question: %s\n\n" +
	"Provide a detailed and accurate answer based solely on the information in the transcript."

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text     *string   `json:"text,omitempty"`
	FileData *fileData `json:"file_data,omitempty"`
}

type fileData struct {
	FileURI  string `json:"file_uri"`
	MimeType string `json:"mime_type"`
}

type generateResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Ask answers question using only the uploaded transcript behind artifact.
func (c *Client) Ask(ctx context.Context, artifact domain.ArtifactReference, question string) (string, error) {
	c.logger.Info("asking question", slog.String("question", question), slog.String("model", c.cfg.Model))

	var out generateResponse
	endpoint := c.url("/v1beta/models/" + c.cfg.Model + ":generateContent")
	if err := c.http.PostJSON(ctx, domain.StageGenerate, endpoint, buildGenerateRequest(artifact.URI, question), &out); err != nil {
		return "", err
	}

	answer, ok := out.firstText()
	if !ok {
		return "", domain.NewError(domain.StageGenerate, domain.KindDomain, domain.ErrNoAnswer)
	}
	return answer, nil
}

func buildGenerateRequest(fileURI, question string) generateRequest {
	instruction := fmt.Sprintf(answerPrompt, question)
	return generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: &instruction},
				{FileData: &fileData{FileURI: fileURI, MimeType: "text/plain"}},
			},
		}},
	}
}

// firstText walks candidates[0].content.parts[0].text.
func (r generateResponse) firstText() (string, bool) {
	if len(r.Candidates) == 0 {
		return "", false
	}
	cand := r.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", false
	}
	text := cand.Content.Parts[0].Text
	if text == nil || *text == "" {
		return "", false
	}
	return *text, true
}
