package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"veridoc/internal/domain"
	"veridoc/internal/platform/auth"
	"veridoc/internal/store"
	"veridoc/internal/transport/http/mocks"
	"veridoc/internal/worker"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bearerToken(t *testing.T, tokens *auth.TokenService) string {
	t.Helper()
	token, err := tokens.GenerateToken("platform-a", time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func processBody(t *testing.T, req ProcessRequest) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func validRequest() ProcessRequest {
	return ProcessRequest{
		OwnerUserName: "jperez",
		Documents: []DocumentPayload{
			{FileURL: "https://storage.example.com/cedula.jpg", FileName: "cedula.jpg", ExternalID: "doc-1"},
		},
	}
}

func newTestRouter(t *testing.T, service BatchService, results ResultFinder, opts ...HandlerOption) (http.Handler, *auth.TokenService) {
	t.Helper()
	tokens := auth.NewTokenService("test-key")
	h := New(service, results, quietLogger(), opts...)
	return NewRouter(h, tokens, quietLogger()), tokens
}

func TestProcessRequiresAuth(t *testing.T) {
	ctrl := gomock.NewController(t)
	router, _ := newTestRouter(t, mocks.NewMockBatchService(ctrl), mocks.NewMockResultFinder(ctrl))

	req := httptest.NewRequest(http.MethodPost, "/documents/process", processBody(t, validRequest()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProcessDelegatesToService(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := mocks.NewMockBatchService(ctrl)
	service.EXPECT().
		ProcessBatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, req worker.Request) []domain.ProcessedResult {
			assert.Equal(t, "jperez", req.Owner)
			require.Len(t, req.Documents, 1)
			return []domain.ProcessedResult{{
				ExternalID:    "doc-1",
				FinalDecision: domain.DecisionApproved,
				Status:        domain.StatusCompleted,
				Owner:         "jperez",
			}}
		})
	router, tokens := newTestRouter(t, service, mocks.NewMockResultFinder(ctrl))

	req := httptest.NewRequest(http.MethodPost, "/documents/process", processBody(t, validRequest()))
	req.Header.Set("Authorization", bearerToken(t, tokens))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ProcessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "jperez", resp.OwnerUserName)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, domain.DecisionApproved, resp.Results[0].FinalDecision)
}

func TestProcessRejectsEmptyBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	router, tokens := newTestRouter(t, mocks.NewMockBatchService(ctrl), mocks.NewMockResultFinder(ctrl))

	payload := validRequest()
	payload.Documents = nil
	req := httptest.NewRequest(http.MethodPost, "/documents/process", processBody(t, payload))
	req.Header.Set("Authorization", bearerToken(t, tokens))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessRejectsOversizedBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	router, tokens := newTestRouter(t, mocks.NewMockBatchService(ctrl), mocks.NewMockResultFinder(ctrl),
		WithMaxDocuments(2))

	payload := validRequest()
	for i := 0; i < 3; i++ {
		payload.Documents = append(payload.Documents, payload.Documents[0])
	}
	req := httptest.NewRequest(http.MethodPost, "/documents/process", processBody(t, payload))
	req.Header.Set("Authorization", bearerToken(t, tokens))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessRejectsMissingOwner(t *testing.T) {
	ctrl := gomock.NewController(t)
	router, tokens := newTestRouter(t, mocks.NewMockBatchService(ctrl), mocks.NewMockResultFinder(ctrl))

	payload := validRequest()
	payload.OwnerUserName = "  "
	req := httptest.NewRequest(http.MethodPost, "/documents/process", processBody(t, payload))
	req.Header.Set("Authorization", bearerToken(t, tokens))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetResultReturnsStoredResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	results := mocks.NewMockResultFinder(ctrl)
	results.EXPECT().
		FindByExternalID(gomock.Any(), "doc-1").
		Return(domain.ProcessedResult{ExternalID: "doc-1", FinalDecision: domain.DecisionRejected}, nil)
	router, tokens := newTestRouter(t, mocks.NewMockBatchService(ctrl), results)

	req := httptest.NewRequest(http.MethodGet, "/documents/doc-1", nil)
	req.Header.Set("Authorization", bearerToken(t, tokens))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.ProcessedResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, domain.DecisionRejected, got.FinalDecision)
}

func TestGetResultUnknownIDIs404(t *testing.T) {
	ctrl := gomock.NewController(t)
	results := mocks.NewMockResultFinder(ctrl)
	results.EXPECT().
		FindByExternalID(gomock.Any(), "absent").
		Return(domain.ProcessedResult{}, store.ErrNotFound)
	router, tokens := newTestRouter(t, mocks.NewMockBatchService(ctrl), results)

	req := httptest.NewRequest(http.MethodGet, "/documents/absent", nil)
	req.Header.Set("Authorization", bearerToken(t, tokens))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthReportsComponents(t *testing.T) {
	ctrl := gomock.NewController(t)
	router, _ := newTestRouter(t, mocks.NewMockBatchService(ctrl), mocks.NewMockResultFinder(ctrl),
		WithHealthCheck("postgres", func(context.Context) error { return nil }),
		WithHealthCheck("redis", func(context.Context) error { return errors.New("connection refused") }),
	)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "ok", resp.Components["postgres"])
	assert.Equal(t, "connection refused", resp.Components["redis"])
}

func TestHealthAllOK(t *testing.T) {
	ctrl := gomock.NewController(t)
	router, _ := newTestRouter(t, mocks.NewMockBatchService(ctrl), mocks.NewMockResultFinder(ctrl),
		WithHealthCheck("postgres", func(context.Context) error { return nil }),
	)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
