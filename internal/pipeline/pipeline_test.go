package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veridoc/internal/classify"
	"veridoc/internal/domain"
	"veridoc/internal/identity"
	"veridoc/internal/notify"
	"veridoc/internal/ocr"
)

type fakeValidator struct {
	valid   bool
	message string
	calls   int
}

func (f *fakeValidator) Validate(context.Context, string, string) (bool, string) {
	f.calls++
	return f.valid, f.message
}

type fakeExtractor struct {
	extraction ocr.Extraction
	err        error
	calls      int
}

func (f *fakeExtractor) Extract(context.Context, string) (ocr.Extraction, error) {
	f.calls++
	return f.extraction, f.err
}

type fakeClassifier struct {
	classification classify.Classification
	classifyErr    error
	fields         map[string]string
	extractErr     error
	extractCalls   int
}

func (f *fakeClassifier) Classify(context.Context, string) (classify.Classification, error) {
	return f.classification, f.classifyErr
}

func (f *fakeClassifier) ExtractFields(context.Context, string, domain.DocumentType) (map[string]string, float64, error) {
	f.extractCalls++
	return f.fields, 0.0002, f.extractErr
}

type fakeIdentity struct {
	validation identity.Validation
	err        error
	calls      int
}

func (f *fakeIdentity) Validate(context.Context, string, string, string) (identity.Validation, error) {
	f.calls++
	return f.validation, f.err
}

func (f *fakeIdentity) ValidateFromFields(context.Context, map[string]string) (identity.Validation, error) {
	f.calls++
	return f.validation, f.err
}

type recordingNotifier struct {
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, event notify.Event) {
	r.events = append(r.events, event)
}

func (r *recordingNotifier) phases() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Phase)
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDocument() domain.Document {
	return domain.Document{
		FileURL:    "https://storage.example.com/docs/cedula.jpg",
		FileName:   "cedula.jpg",
		ExternalID: "doc-1",
	}
}

func happyClassification() classify.Classification {
	return classify.Classification{
		Type:       domain.TypeDriverLicense,
		Label:      string(domain.TypeDriverLicense),
		Confidence: 0.92,
		CostUSD:    0.0003,
	}
}

func newTestPipeline(v *fakeValidator, e *fakeExtractor, c *fakeClassifier, opts ...Option) *Pipeline {
	return New(v, e, c, append([]Option{WithLogger(discardLogger())}, opts...)...)
}

func TestProcessApprovesCleanDocument(t *testing.T) {
	validator := &fakeValidator{valid: true}
	extractor := &fakeExtractor{extraction: ocr.Extraction{Text: "LICENCIA DE CONDUCIR", LineCount: 5, Confidence: 0.95}}
	classifier := &fakeClassifier{
		classification: happyClassification(),
		fields:         map[string]string{"full_name": "Juan Pérez", "expiration_date": "2030-01-01"},
	}
	p := newTestPipeline(validator, extractor, classifier)

	result := p.Process(context.Background(), "jperez", testDocument())

	assert.Equal(t, domain.DecisionApproved, result.FinalDecision)
	assert.Equal(t, domain.StatusCompleted, result.Status)
	assert.Equal(t, domain.TypeDriverLicense, result.DocumentType)
	assert.Equal(t, "Juan Pérez", result.StructuredData["full_name"])
	assert.Equal(t, "2030-01-01", result.ExpirationDate)
	assert.Equal(t, domain.ClassificationMethodAI, result.ClassificationMethod)
	assert.Empty(t, result.Observations)
	assert.InDelta(t, 0.0005, result.TotalCostUSD, 1e-9)
}

func TestProcessRejectsInvalidDocumentWithoutCallingOCR(t *testing.T) {
	validator := &fakeValidator{valid: false, message: "unsupported file type: virus.exe"}
	extractor := &fakeExtractor{}
	p := newTestPipeline(validator, extractor, &fakeClassifier{})

	result := p.Process(context.Background(), "jperez", testDocument())

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, domain.DecisionRejected, result.FinalDecision)
	require.Len(t, result.Observations, 1)
	assert.Equal(t, "unsupported file type: virus.exe", result.Observations[0].Reason)
	assert.Zero(t, extractor.calls)
}

func TestProcessOCRFailureGoesToManualReview(t *testing.T) {
	validator := &fakeValidator{valid: true}
	extractor := &fakeExtractor{err: ocr.ErrAnalysisFailed}
	p := newTestPipeline(validator, extractor, &fakeClassifier{})

	result := p.Process(context.Background(), "jperez", testDocument())

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, domain.DecisionManualReview, result.FinalDecision)
	require.Len(t, result.Observations, 1)
	assert.Contains(t, result.Observations[0].Reason, "ocr: analysis failed")
}

func TestProcessClassificationTransportFailureGoesToManualReview(t *testing.T) {
	validator := &fakeValidator{valid: true}
	extractor := &fakeExtractor{extraction: ocr.Extraction{Text: "some text"}}
	classifier := &fakeClassifier{classifyErr: errors.New("unexpected status 502")}
	p := newTestPipeline(validator, extractor, classifier)

	result := p.Process(context.Background(), "jperez", testDocument())

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, domain.DecisionManualReview, result.FinalDecision)
}

func TestProcessBlankTextIsRejected(t *testing.T) {
	validator := &fakeValidator{valid: true}
	extractor := &fakeExtractor{extraction: ocr.Extraction{Text: "   \n "}}
	classifier := &fakeClassifier{classification: classify.Classification{Type: domain.TypeUnknown, Confidence: 0.99}}
	p := newTestPipeline(validator, extractor, classifier)

	result := p.Process(context.Background(), "jperez", testDocument())

	assert.Equal(t, domain.DecisionRejected, result.FinalDecision)
	assert.Equal(t, domain.StatusCompleted, result.Status)
}

func TestProcessLowConfidenceGoesToManualReview(t *testing.T) {
	validator := &fakeValidator{valid: true}
	extractor := &fakeExtractor{extraction: ocr.Extraction{Text: "legible text"}}
	classifier := &fakeClassifier{
		classification: classify.Classification{Type: domain.TypeDriverLicense, Confidence: 0.4},
		fields:         map[string]string{},
	}
	p := newTestPipeline(validator, extractor, classifier)

	result := p.Process(context.Background(), "jperez", testDocument())

	assert.Equal(t, domain.DecisionManualReview, result.FinalDecision)
	require.NotEmpty(t, result.Observations)
	assert.Contains(t, result.Observations[0].Reason, "low classification confidence")
}

func TestProcessBlankTextRejectionWinsOverLowConfidence(t *testing.T) {
	validator := &fakeValidator{valid: true}
	extractor := &fakeExtractor{extraction: ocr.Extraction{Text: ""}}
	classifier := &fakeClassifier{classification: classify.Classification{Type: domain.TypeUnknown, Confidence: 0.0}}
	p := newTestPipeline(validator, extractor, classifier)

	result := p.Process(context.Background(), "jperez", testDocument())

	// Both rules fire and record their reasons, but REJECTED must win.
	assert.Equal(t, domain.DecisionRejected, result.FinalDecision)
	assert.Len(t, result.Observations, 2)
}

func TestProcessUnknownTypeSkipsFieldExtraction(t *testing.T) {
	validator := &fakeValidator{valid: true}
	extractor := &fakeExtractor{extraction: ocr.Extraction{Text: "illegible scribbles"}}
	classifier := &fakeClassifier{
		classification: classify.Classification{Type: domain.TypeUnknown, Label: "Unknown", Confidence: 0.0},
	}
	p := newTestPipeline(validator, extractor, classifier)

	result := p.Process(context.Background(), "jperez", testDocument())

	assert.Zero(t, classifier.extractCalls)
	assert.Empty(t, result.StructuredData)
	assert.Equal(t, domain.DecisionManualReview, result.FinalDecision)
	assert.Equal(t, domain.ClassificationMethodUnknown, result.ClassificationMethod)
}

func TestProcessIdentityInvalidForcesRejection(t *testing.T) {
	validator := &fakeValidator{valid: true}
	extractor := &fakeExtractor{extraction: ocr.Extraction{Text: "REPUBLICA DE CHILE"}}
	classifier := &fakeClassifier{
		classification: classify.Classification{Type: domain.TypeNationalIDFront, Confidence: 0.95},
		fields:         map[string]string{"id_number": "12.345.678-9", "full_name": "Juan Pérez"},
	}
	registry := &fakeIdentity{validation: identity.Validation{
		Valid:   false,
		Details: map[string]string{"error": "RUT not found in registry"},
	}}
	p := newTestPipeline(validator, extractor, classifier, WithIdentityValidator(registry))

	result := p.Process(context.Background(), "jperez", testDocument())

	assert.Equal(t, 1, registry.calls)
	assert.Equal(t, domain.DecisionRejected, result.FinalDecision)
	assert.Equal(t, domain.StatusCompleted, result.Status)
	require.NotEmpty(t, result.Observations)
	assert.Equal(t, "RUT not found in registry", result.Observations[0].Reason)
}

func TestProcessIdentityOutageGoesToManualReview(t *testing.T) {
	validator := &fakeValidator{valid: true}
	extractor := &fakeExtractor{extraction: ocr.Extraction{Text: "REPUBLICA DE CHILE"}}
	classifier := &fakeClassifier{
		classification: classify.Classification{Type: domain.TypeNationalIDFront, Confidence: 0.95},
		fields:         map[string]string{"id_number": "12.345.678-9", "full_name": "Juan Pérez"},
	}
	registry := &fakeIdentity{err: errors.New("identity: registry error: status 503")}
	p := newTestPipeline(validator, extractor, classifier, WithIdentityValidator(registry))

	result := p.Process(context.Background(), "jperez", testDocument())

	assert.Equal(t, domain.DecisionManualReview, result.FinalDecision)
	require.NotEmpty(t, result.Observations)
	assert.Contains(t, result.Observations[0].Reason, "identity validation unavailable")
}

func TestProcessSkipsIdentityForOtherTypes(t *testing.T) {
	validator := &fakeValidator{valid: true}
	extractor := &fakeExtractor{extraction: ocr.Extraction{Text: "LICENCIA"}}
	classifier := &fakeClassifier{classification: happyClassification(), fields: map[string]string{}}
	registry := &fakeIdentity{}
	p := newTestPipeline(validator, extractor, classifier, WithIdentityValidator(registry))

	p.Process(context.Background(), "jperez", testDocument())

	assert.Zero(t, registry.calls)
}

func TestProcessNotifiesEveryStage(t *testing.T) {
	validator := &fakeValidator{valid: true}
	extractor := &fakeExtractor{extraction: ocr.Extraction{Text: "REPUBLICA DE CHILE"}}
	classifier := &fakeClassifier{
		classification: classify.Classification{Type: domain.TypeNationalIDFront, Confidence: 0.95},
		fields:         map[string]string{"id_number": "1-9", "full_name": "Ana Soto"},
	}
	registry := &fakeIdentity{validation: identity.Validation{Valid: true, Confidence: 0.99}}
	notifier := &recordingNotifier{}
	p := newTestPipeline(validator, extractor, classifier,
		WithIdentityValidator(registry), WithNotifier(notifier))

	p.Process(context.Background(), "asoto", testDocument())

	assert.Equal(t, []string{
		"PREVALIDATION", "REVI", "CLASSIFICATION", "VALIDATION", "VALIDATION_IDENTITY", "COMPLETED",
	}, notifier.phases())
	last := notifier.events[len(notifier.events)-1]
	assert.Equal(t, "doc-1", last.DocumentID)
	assert.Equal(t, domain.TypeNationalIDFront, last.DocumentType)
}

func TestProcessGeneratesExternalIDWhenMissing(t *testing.T) {
	validator := &fakeValidator{valid: true}
	extractor := &fakeExtractor{extraction: ocr.Extraction{Text: "text"}}
	classifier := &fakeClassifier{classification: happyClassification(), fields: map[string]string{}}
	p := newTestPipeline(validator, extractor, classifier)

	result := p.Process(context.Background(), "jperez", domain.Document{
		FileURL:  "https://storage.example.com/docs/a.pdf",
		FileName: "a.pdf",
	})

	assert.NotEmpty(t, result.ExternalID)
}

func TestContextApproveRefusesWithRecordedReasons(t *testing.T) {
	pctx := NewContext("jperez", testDocument())
	pctx.Reject(ruleTextExtraction, "no text extracted from document", domain.DecisionRejected)

	pctx.Approve()

	assert.Equal(t, domain.DecisionRejected, pctx.FinalDecision)
}

func TestContextStatusIsFinalOnceTerminal(t *testing.T) {
	pctx := NewContext("jperez", testDocument())
	pctx.Advance(domain.StatusFailed)

	pctx.Advance(domain.StatusCompleted)

	assert.Equal(t, domain.StatusFailed, pctx.Status)
}
