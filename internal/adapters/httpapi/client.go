// Package httpapi is the shared HTTP transport for the remote services.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"transcriptqa/internal/core/domain"
)

// DefaultTimeout tolerates slow remote processing on every call.
const DefaultTimeout = 300 * time.Second

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 4 << 10

// Client wraps http.Client with request pacing and uniform error mapping.
type Client struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Client. A non-positive rps disables pacing.
func NewClient(timeout time.Duration, rps float64) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewClientWith(&http.Client{Timeout: timeout}, rps)
}

// NewClientWith wraps an existing http.Client.
func NewClientWith(hc *http.Client, rps float64) *Client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Client{client: hc, limiter: rate.NewLimiter(limit, 1)}
}

// Do sends req and returns the body of a 2xx response.
// Transport failures become KindNetwork errors, any other status a
// KindRemoteRequest error carrying the status and body.
func (c *Client) Do(stage domain.Stage, req *http.Request) ([]byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, domain.NewError(stage, domain.KindNetwork, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.NewError(stage, domain.KindNetwork, scrub(req, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewError(stage, domain.KindNetwork, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, domain.RemoteError(stage, resp.StatusCode, string(body))
	}
	return body, nil
}

// GetJSON fetches rawURL and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, stage domain.Stage, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return domain.NewError(stage, domain.KindNetwork, fmt.Errorf("build request: %w", err))
	}
	body, err := c.Do(stage, req)
	if err != nil {
		return err
	}
	return Decode(stage, body, out)
}

// PostJSON sends in as a JSON body and decodes the JSON response into out.
func (c *Client) PostJSON(ctx context.Context, stage domain.Stage, rawURL string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return domain.NewError(stage, domain.KindProtocol, fmt.Errorf("encode request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return domain.NewError(stage, domain.KindNetwork, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.Do(stage, req)
	if err != nil {
		return err
	}
	return Decode(stage, body, out)
}

// Decode unmarshals body into out, reporting malformed JSON as a protocol error.
func Decode(stage domain.Stage, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return domain.NewError(stage, domain.KindProtocol, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// scrub drops credentials from the URL that net/http embeds in transport errors.
func scrub(req *http.Request, err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	return fmt.Errorf("%s %s: %w", req.Method, Redact(req.URL), uerr.Err)
}

// Redact returns u as a string with API key query parameters masked.
func Redact(u *url.URL) string {
	if u == nil {
		return ""
	}
	cp := *u
	q := cp.Query()
	for _, k := range []string{"key", "token"} {
		if q.Has(k) {
			q.Set(k, "REDACTED")
		}
	}
	cp.RawQuery = q.Encode()
	return cp.String()
}
