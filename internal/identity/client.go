// Package identity cross-checks extracted identity fields against the
// national identity registry (Boostr).
//
// A registry miss is a normal business outcome, not an error: HTTP 404 maps
// to an invalid Validation with NotFound set. Only transport failures and
// unexpected statuses propagate as errors.
package identity

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

// Validation is the registry's answer about one identity.
type Validation struct {
	Valid      bool              `json:"valid"`
	Confidence float64           `json:"confidence"`
	Details    map[string]string `json:"details,omitempty"`
	NotFound   bool              `json:"not_found,omitempty"`
	Source     string            `json:"source"`
}

// Validator is the interface the pipeline depends on. The HTTP client and
// the cache decorator both implement it.
type Validator interface {
	Validate(ctx context.Context, idNumber, fullName, birthDate string) (Validation, error)
	ValidateFromFields(ctx context.Context, fields map[string]string) (Validation, error)
}

// Client calls the Boostr identity validation API.
type Client struct {
	BaseURL string
	APIKey  string

	HTTPClient *http.Client
}

var _ Validator = (*Client)(nil)

// New constructs a Client.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type validateRequest struct {
	RUT       string `json:"rut"`
	FullName  string `json:"full_name"`
	BirthDate string `json:"birth_date,omitempty"`
}

type validateResponse struct {
	Valid      bool              `json:"valid"`
	Confidence float64           `json:"confidence"`
	Details    map[string]string `json:"details"`
}

// Validate checks one identity against the registry. The id number is
// normalized before sending; birthDate is optional.
func (c *Client) Validate(ctx context.Context, idNumber, fullName, birthDate string) (Validation, error) {
	body, err := json.Marshal(validateRequest{
		RUT:       NormalizeRUT(idNumber),
		FullName:  fullName,
		BirthDate: birthDate,
	})
	if err != nil {
		return Validation{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/identity/validate", bytes.NewReader(body))
	if err != nil {
		return Validation{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Validation{}, fmt.Errorf("identity: registry request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var parsed validateResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return Validation{}, fmt.Errorf("identity: decode registry response: %w", err)
		}
		return Validation{
			Valid:      parsed.Valid,
			Confidence: parsed.Confidence,
			Details:    parsed.Details,
			Source:     "boostr",
		}, nil
	case http.StatusNotFound:
		// The registry answered; the subject simply is not there.
		return Validation{
			Valid:    false,
			NotFound: true,
			Details:  map[string]string{"error": "RUT not found in registry"},
			Source:   "boostr",
		}, nil
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Validation{}, fmt.Errorf("identity: registry error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
}

// ValidateFromFields derives the id number and full name from extracted
// structured data and validates them. When either cannot be derived it
// returns a synthetic invalid result without touching the network.
func (c *Client) ValidateFromFields(ctx context.Context, fields map[string]string) (Validation, error) {
	idNumber, fullName, birthDate, reason := DeriveIdentity(fields)
	if reason != "" {
		return Validation{
			Valid:   false,
			Details: map[string]string{"error": reason},
			Source:  "boostr",
		}, nil
	}
	return c.Validate(ctx, idNumber, fullName, birthDate)
}

// DeriveIdentity pulls (id number, full name, birth date) out of extracted
// fields. The id number comes from "id_number" or the "document_number"
// fallback; the full name prefers an explicit "full_name" over concatenated
// name parts. A non-empty reason means derivation failed.
func DeriveIdentity(fields map[string]string) (idNumber, fullName, birthDate, reason string) {
	idNumber = fields["id_number"]
	if idNumber == "" {
		idNumber = fields["document_number"]
	}
	if idNumber == "" {
		return "", "", "", "id number not found in document"
	}

	fullName = fields["full_name"]
	if fullName == "" {
		parts := make([]string, 0, 3)
		for _, key := range []string{"first_name", "paternal_surname", "maternal_surname"} {
			if v := strings.TrimSpace(fields[key]); v != "" {
				parts = append(parts, v)
			}
		}
		fullName = strings.Join(parts, " ")
	}
	if fullName == "" {
		return "", "", "", "name not found in document"
	}

	return idNumber, fullName, fields["birth_date"], ""
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}
