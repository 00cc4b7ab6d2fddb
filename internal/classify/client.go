// Package classify determines a document's type and pulls structured fields
// out of its text through an OpenAI-compatible chat-completion backend.
//
// Model responses that are not valid JSON are a soft failure, not an error:
// Classify degrades to TypeUnknown with zero confidence and ExtractFields to
// an empty map, letting the pipeline's business rules deal with the document.
// Only transport failures propagate as errors.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"veridoc/internal/domain"
)

// Token prices in USD per million tokens, DeepSeek list pricing. Close enough
// for the per-document cost figure surfaced in results.
const (
	inputCostPerMTok  = 0.14
	outputCostPerMTok = 0.28
)

// Classification is the normalized output of Classify. Label preserves the
// raw model answer for result reporting even when it maps to TypeUnknown.
type Classification struct {
	Type       domain.DocumentType
	Label      string
	Confidence float64
	Reasoning  string
	CostUSD    float64
}

// Client calls a chat-completion endpoint. One request per operation, no
// internal retries; the queue layer owns redelivery.
type Client struct {
	BaseURL         string
	APIKey          string
	ClassifyModel   string
	ExtractionModel string
	Catalog         Catalog

	HTTPClient *http.Client
}

// New constructs a Client with the default schema catalog.
func New(baseURL, apiKey, classifyModel, extractionModel string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:         strings.TrimRight(baseURL, "/"),
		APIKey:          apiKey,
		ClassifyModel:   classifyModel,
		ExtractionModel: extractionModel,
		Catalog:         DefaultCatalog(),
		HTTPClient:      &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (r chatResponse) costUSD() float64 {
	return float64(r.Usage.PromptTokens)*inputCostPerMTok/1e6 +
		float64(r.Usage.CompletionTokens)*outputCostPerMTok/1e6
}

// Classify determines the document type from extracted text.
func (c *Client) Classify(ctx context.Context, text string) (Classification, error) {
	content, cost, err := c.chat(ctx, c.ClassifyModel, classificationPrompt(text))
	if err != nil {
		return Classification{}, fmt.Errorf("classify document: %w", err)
	}

	var parsed struct {
		DocumentType string  `json:"document_type"`
		Confidence   float64 `json:"confidence"`
		Reasoning    string  `json:"reasoning"`
	}
	if !decodeFirstJSONObject(content, &parsed) {
		return Classification{
			Type:      domain.TypeUnknown,
			Label:     string(domain.TypeUnknown),
			Reasoning: "unparseable model response",
			CostUSD:   cost,
		}, nil
	}

	return Classification{
		Type:       domain.ParseDocumentType(parsed.DocumentType),
		Label:      parsed.DocumentType,
		Confidence: parsed.Confidence,
		Reasoning:  parsed.Reasoning,
		CostUSD:    cost,
	}, nil
}

// ExtractFields pulls the type-specific field set out of the text along with
// the call's token cost. The result only contains fields the model actually
// produced.
func (c *Client) ExtractFields(ctx context.Context, text string, docType domain.DocumentType) (map[string]string, float64, error) {
	schema := c.catalog().Lookup(docType)
	content, cost, err := c.chat(ctx, c.ExtractionModel, extractionPrompt(text, schema))
	if err != nil {
		return nil, 0, fmt.Errorf("extract fields: %w", err)
	}

	var parsed map[string]any
	if !decodeFirstJSONObject(content, &parsed) {
		return map[string]string{}, cost, nil
	}

	fields := make(map[string]string, len(parsed))
	for key, value := range parsed {
		switch v := value.(type) {
		case string:
			fields[key] = v
		case float64, bool:
			fields[key] = fmt.Sprint(v)
		}
	}
	return fields, cost, nil
}

func (c *Client) chat(ctx context.Context, model, prompt string) (string, float64, error) {
	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.1,
		MaxTokens:   2000,
	})
	if err != nil {
		return "", 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", 0, err
	}
	if payload.Error != nil {
		return "", 0, fmt.Errorf("model error: %s", payload.Error.Message)
	}
	if len(payload.Choices) == 0 {
		return "", 0, fmt.Errorf("empty model response")
	}
	return payload.Choices[0].Message.Content, payload.costUSD(), nil
}

// decodeFirstJSONObject finds the first JSON object embedded in the model's
// answer and decodes it into dst. Models often wrap JSON in prose or code
// fences, so scanning for the opening brace is more robust than decoding the
// whole answer.
func decodeFirstJSONObject(content string, dst any) bool {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return false
	}
	decoder := json.NewDecoder(strings.NewReader(content[start:]))
	return decoder.Decode(dst) == nil
}

func (c *Client) catalog() Catalog {
	if c.Catalog != nil {
		return c.Catalog
	}
	return DefaultCatalog()
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}
