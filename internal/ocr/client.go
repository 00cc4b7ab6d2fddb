// Package ocr extracts plain text from documents through an asynchronous
// Azure Vision Read-style backend: submit the bytes, then poll the result
// endpoint until the analysis reaches a terminal state.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Default polling budget: one probe per second for thirty seconds. The wait
// legitimately blocks the calling worker; multi-document requests fan out
// across workers instead.
const (
	DefaultPollInterval = time.Second
	DefaultPollAttempts = 30
)

// ErrAnalysisFailed signals the backend reported a terminal "failed" status
// for the submitted document.
var ErrAnalysisFailed = fmt.Errorf("ocr: analysis failed")

// ErrPollTimeout signals the backend never reached a terminal state within
// the polling budget.
var ErrPollTimeout = fmt.Errorf("ocr: timed out waiting for analysis result")

// Extraction is the provider's normalized output.
type Extraction struct {
	Text       string
	LineCount  int
	Confidence float64
}

// Client talks to the OCR backend. All calls are synchronous from the
// caller's perspective; the async protocol is hidden behind Extract.
type Client struct {
	Endpoint     string
	APIKey       string
	PollInterval time.Duration
	PollAttempts int

	HTTPClient *http.Client
}

// New constructs a Client with the default polling budget.
func New(endpoint, apiKey string, timeout time.Duration) *Client {
	return &Client{
		Endpoint:     strings.TrimRight(endpoint, "/"),
		APIKey:       apiKey,
		PollInterval: DefaultPollInterval,
		PollAttempts: DefaultPollAttempts,
		HTTPClient:   &http.Client{Timeout: timeout},
	}
}

// Extract downloads the document at fileURL, submits it for analysis and
// waits for the result. Transport failures and backend failures propagate as
// errors; the pipeline decides what they mean for the document.
func (c *Client) Extract(ctx context.Context, fileURL string) (Extraction, error) {
	payload, err := c.download(ctx, fileURL)
	if err != nil {
		return Extraction{}, fmt.Errorf("ocr: download document: %w", err)
	}

	operationID, err := c.submit(ctx, payload)
	if err != nil {
		return Extraction{}, fmt.Errorf("ocr: submit document: %w", err)
	}

	return c.waitForResult(ctx, operationID)
}

func (c *Client) download(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) submit(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/vision/v3.2/read/analyze", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	location := resp.Header.Get("Operation-Location")
	if location == "" {
		return "", fmt.Errorf("missing Operation-Location header")
	}
	parts := strings.Split(location, "/")
	return parts[len(parts)-1], nil
}

type readResult struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		ReadResults []struct {
			Lines []struct {
				Text       string   `json:"text"`
				Confidence *float64 `json:"confidence"`
			} `json:"lines"`
		} `json:"readResults"`
	} `json:"analyzeResult"`
}

func (c *Client) waitForResult(ctx context.Context, operationID string) (Extraction, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	attempts := c.PollAttempts
	if attempts <= 0 {
		attempts = DefaultPollAttempts
	}

	for attempt := 0; attempt < attempts; attempt++ {
		result, err := c.fetchResult(ctx, operationID)
		if err != nil {
			return Extraction{}, fmt.Errorf("ocr: fetch result: %w", err)
		}

		switch result.Status {
		case "succeeded":
			return parseExtraction(result), nil
		case "failed":
			return Extraction{}, ErrAnalysisFailed
		}

		select {
		case <-ctx.Done():
			return Extraction{}, ctx.Err()
		case <-time.After(interval):
		}
	}

	return Extraction{}, ErrPollTimeout
}

func (c *Client) fetchResult(ctx context.Context, operationID string) (*readResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint+"/vision/v3.2/read/analyzeResults/"+operationID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.APIKey)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var result readResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// parseExtraction concatenates recognized lines in backend-reported order
// across pages and averages the per-line confidence scores.
func parseExtraction(result *readResult) Extraction {
	var lines []string
	var confidenceSum float64
	var confidenceCount int

	for _, page := range result.AnalyzeResult.ReadResults {
		for _, line := range page.Lines {
			lines = append(lines, line.Text)
			if line.Confidence != nil {
				confidenceSum += *line.Confidence
				confidenceCount++
			}
		}
	}

	confidence := 0.0
	if confidenceCount > 0 {
		confidence = confidenceSum / float64(confidenceCount)
	}

	return Extraction{
		Text:       strings.Join(lines, "\n"),
		LineCount:  len(lines),
		Confidence: confidence,
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}
