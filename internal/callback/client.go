// Package callback delivers processing results to the webhook the submitting
// platform registered for the request. Delivery is best-effort: a refused or
// failed callback is reported to the caller as false, never as an error that
// could disturb processing.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"veridoc/internal/domain"
)

const userAgent = "veridoc/1.0"

// Client posts results to owner-supplied webhooks, falling back to a
// configured default URL when the request carries none.
type Client struct {
	defaultURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// New constructs a Client. defaultURL may be empty, in which case requests
// without their own webhook get no callback.
func New(defaultURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		defaultURL: defaultURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// batchPayload mirrors the shape the platform expects back: the owner plus
// every result of the request.
type batchPayload struct {
	Owner   string                   `json:"owner_user_name"`
	Results []domain.ProcessedResult `json:"results"`
}

// Deliver posts a single result. Returns whether the webhook accepted it.
func (c *Client) Deliver(ctx context.Context, url string, result domain.ProcessedResult) bool {
	return c.post(ctx, url, result, result.ExternalID)
}

// DeliverBatch posts all results of one request in a single call. Returns
// whether the webhook accepted the payload.
func (c *Client) DeliverBatch(ctx context.Context, url, owner string, results []domain.ProcessedResult) bool {
	return c.post(ctx, url, batchPayload{Owner: owner, Results: results}, "batch:"+owner)
}

func (c *Client) post(ctx context.Context, url string, payload any, ref string) bool {
	if url == "" {
		url = c.defaultURL
	}
	if url == "" {
		return true
	}

	body, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("callback payload marshal failed", "ref", ref, "error", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.logger.Error("callback request build failed", "ref", ref, "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("callback delivery failed", "ref", ref, "url", url, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("callback refused", "ref", ref, "url", url, "status", resp.StatusCode)
		return false
	}
	return true
}
