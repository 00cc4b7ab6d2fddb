package classify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veridoc/internal/domain"
)

// newModelServer returns a client pointed at a fake chat-completions backend
// that always answers with the given message content.
func newModelServer(t *testing.T, content string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Messages)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"role": "assistant", "content": content}},
			},
			"usage": map[string]any{"prompt_tokens": 1000, "completion_tokens": 500},
		})
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL, "key", "test-model", "test-model", 5*time.Second)
}

func TestClassifyParsesModelAnswer(t *testing.T) {
	c := newModelServer(t, `{"document_type": "Cédula de Identidad CL (Frontal)", "confidence": 0.93, "reasoning": "RUN and surname fields present"}`)

	got, err := c.Classify(context.Background(), "REPUBLICA DE CHILE CEDULA DE IDENTIDAD")

	require.NoError(t, err)
	assert.Equal(t, domain.TypeNationalIDFront, got.Type)
	assert.Equal(t, "Cédula de Identidad CL (Frontal)", got.Label)
	assert.InDelta(t, 0.93, got.Confidence, 1e-9)
	// 1000 prompt tokens at 0.14/MTok plus 500 completion tokens at 0.28/MTok.
	assert.InDelta(t, 0.00028, got.CostUSD, 1e-9)
}

func TestClassifyHandlesJSONWrappedInProse(t *testing.T) {
	c := newModelServer(t, "Sure, here is the classification:\n```json\n{\"document_type\": \"Pasaporte\", \"confidence\": 0.8, \"reasoning\": \"MRZ detected\"}\n```")

	got, err := c.Classify(context.Background(), "P<CHL...")

	require.NoError(t, err)
	assert.Equal(t, domain.TypePassport, got.Type)
}

func TestClassifySoftFailsOnUnparseableAnswer(t *testing.T) {
	c := newModelServer(t, "I cannot determine the document type.")

	got, err := c.Classify(context.Background(), "garbled text")

	require.NoError(t, err)
	assert.Equal(t, domain.TypeUnknown, got.Type)
	assert.Zero(t, got.Confidence)
	assert.Equal(t, "unparseable model response", got.Reasoning)
}

func TestClassifyMapsUnlistedLabelToUnknown(t *testing.T) {
	c := newModelServer(t, `{"document_type": "Boleta de Honorarios", "confidence": 0.9, "reasoning": ""}`)

	got, err := c.Classify(context.Background(), "some invoice")

	require.NoError(t, err)
	assert.Equal(t, domain.TypeUnknown, got.Type)
	assert.Equal(t, "Boleta de Honorarios", got.Label)
}

func TestClassifyPropagatesTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	c := New(srv.URL, "key", "m", "m", time.Second)

	_, err := c.Classify(context.Background(), "text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestExtractFieldsReturnsStringFields(t *testing.T) {
	c := newModelServer(t, `{"first_name": "Juan", "paternal_surname": "Pérez", "id_number": "12.345.678-9", "confidence": 0.9}`)

	got, cost, err := c.ExtractFields(context.Background(), "text", domain.TypeNationalIDFront)

	require.NoError(t, err)
	assert.Equal(t, "Juan", got["first_name"])
	assert.Equal(t, "12.345.678-9", got["id_number"])
	assert.Equal(t, "0.9", got["confidence"])
	assert.Greater(t, cost, 0.0)
}

func TestExtractFieldsSoftFailsToEmptyMap(t *testing.T) {
	c := newModelServer(t, "no structured data found")

	got, _, err := c.ExtractFields(context.Background(), "text", domain.TypeDriverLicense)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCatalogLookupFallsBackToGeneric(t *testing.T) {
	catalog := DefaultCatalog()

	schema := catalog.Lookup(domain.TypeBirthCertificate)

	assert.Equal(t, []string{"general_information"}, schema.Fields)
}

func TestClassificationPromptListsKnownTypes(t *testing.T) {
	prompt := classificationPrompt("hello")

	for _, docType := range domain.KnownTypes() {
		assert.Contains(t, prompt, string(docType))
	}
	assert.NotContains(t, prompt, string(domain.TypeUnknown))
}

func TestPromptTruncatesLongText(t *testing.T) {
	long := make([]rune, 3*promptTextLimit)
	for i := range long {
		long[i] = 'a'
	}

	prompt := extractionPrompt(string(long), genericSchema)

	assert.Less(t, len(prompt), 2*promptTextLimit+500)
}
