// Package pipeline orchestrates document processing: pre-validation, text
// extraction, classification, business rules and the optional identity
// cross-check, over a context owned by one invocation.
//
// Process never returns an error. Every failure mode folds into the result's
// status and final decision, preserving the distinction between REJECTED (the
// document is provably bad) and MANUAL_REVIEW (the system is unsure).
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"veridoc/internal/classify"
	"veridoc/internal/domain"
	"veridoc/internal/identity"
	"veridoc/internal/notify"
	"veridoc/internal/ocr"
	"veridoc/internal/pipeline/metrics"
)

// defaultMinConfidence is the classification confidence below which a
// document goes to manual review.
const defaultMinConfidence = 0.7

// DocumentValidator is the pre-flight check collaborator.
type DocumentValidator interface {
	Validate(ctx context.Context, fileURL, fileName string) (valid bool, message string)
}

// TextExtractor is the OCR collaborator.
type TextExtractor interface {
	Extract(ctx context.Context, fileURL string) (ocr.Extraction, error)
}

// Classifier is the model-backed classification and extraction collaborator.
type Classifier interface {
	Classify(ctx context.Context, text string) (classify.Classification, error)
	ExtractFields(ctx context.Context, text string, docType domain.DocumentType) (map[string]string, float64, error)
}

// Pipeline wires the collaborators together. Construct with New; the zero
// value is not usable.
type Pipeline struct {
	validator  DocumentValidator
	extractor  TextExtractor
	classifier Classifier
	identity   identity.Validator
	notifier   notify.Notifier
	logger     *slog.Logger
	metrics    *metrics.Metrics

	minConfidence float64
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithIdentityValidator enables the registry cross-check for document types
// that require it. Without it the identity stage is skipped entirely.
func WithIdentityValidator(v identity.Validator) Option {
	return func(p *Pipeline) { p.identity = v }
}

// WithNotifier sets the progress sink.
func WithNotifier(n notify.Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithMinConfidence overrides the classification confidence threshold.
func WithMinConfidence(threshold float64) Option {
	return func(p *Pipeline) { p.minConfidence = threshold }
}

// New constructs a Pipeline over the three mandatory collaborators.
func New(validator DocumentValidator, extractor TextExtractor, classifier Classifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		validator:     validator,
		extractor:     extractor,
		classifier:    classifier,
		notifier:      notify.Discard{},
		logger:        slog.Default(),
		minConfidence: defaultMinConfidence,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one document end to end and returns its immutable result. The
// context it builds is private to this call; invocations for different
// documents are independent and safe to run concurrently.
func (p *Pipeline) Process(ctx context.Context, owner string, doc domain.Document) domain.ProcessedResult {
	start := time.Now()
	pctx := NewContext(owner, doc)
	logger := p.logger.With(
		"document_id", pctx.Document.ExternalID,
		"file_name", doc.FileName,
		"owner", owner,
	)

	p.run(ctx, pctx, logger)

	result := pctx.Result()
	p.metrics.IncrementDecision(string(result.FinalDecision), string(result.DocumentType))
	p.metrics.ObserveProcessLatency(time.Since(start))
	p.metrics.ObserveDocumentCost(result.TotalCostUSD)
	logger.Info("document processed",
		"status", result.Status,
		"decision", result.FinalDecision,
		"document_type", result.DocumentType,
		"confidence", pctx.ConfidenceScore,
		"cost_usd", result.TotalCostUSD,
		"duration", time.Since(start),
	)
	return result
}

func (p *Pipeline) run(ctx context.Context, pctx *Context, logger *slog.Logger) {
	pctx.Advance(domain.StatusPrevalidation)
	p.notifyProgress(ctx, pctx, "checking document accessibility")

	stageStart := time.Now()
	valid, message := p.validator.Validate(ctx, pctx.Document.FileURL, pctx.Document.FileName)
	p.metrics.ObserveStageLatency("prevalidation", time.Since(stageStart))
	if !valid {
		pctx.Reject(rulePrevalidation, message, domain.DecisionRejected)
		p.fail(ctx, pctx, logger, "document failed pre-validation")
		return
	}

	pctx.Advance(domain.StatusTextExtraction)
	p.notifyProgress(ctx, pctx, "extracting document text")

	stageStart = time.Now()
	extraction, err := p.extractor.Extract(ctx, pctx.Document.FileURL)
	p.metrics.ObserveStageLatency("ocr", time.Since(stageStart))
	if err != nil {
		pctx.Reject(ruleUnexpected, fmt.Sprintf("text extraction failed: %v", err), domain.DecisionManualReview)
		p.fail(ctx, pctx, logger, "text extraction failed")
		return
	}
	pctx.ExtractedText = extraction.Text
	pctx.Logf("extracted %d lines (ocr confidence %.2f)", extraction.LineCount, extraction.Confidence)

	pctx.Advance(domain.StatusClassification)
	p.notifyProgress(ctx, pctx, "classifying document")

	stageStart = time.Now()
	cls, err := p.classifier.Classify(ctx, pctx.ExtractedText)
	pctx.TotalCostUSD += cls.CostUSD
	if err != nil {
		p.metrics.ObserveStageLatency("classification", time.Since(stageStart))
		pctx.Reject(ruleUnexpected, fmt.Sprintf("classification failed: %v", err), domain.DecisionManualReview)
		p.fail(ctx, pctx, logger, "classification failed")
		return
	}
	pctx.DocumentType = cls.Type
	pctx.ClassificationLabel = cls.Label
	pctx.ConfidenceScore = cls.Confidence
	pctx.Logf("classified as %q (confidence %.2f): %s", cls.Type, cls.Confidence, cls.Reasoning)

	// Structured extraction only makes sense for a recognized type; unknown
	// documents keep an empty field set.
	if cls.Type.Known() {
		fields, cost, err := p.classifier.ExtractFields(ctx, pctx.ExtractedText, cls.Type)
		pctx.TotalCostUSD += cost
		if err != nil {
			p.metrics.ObserveStageLatency("classification", time.Since(stageStart))
			pctx.Reject(ruleUnexpected, fmt.Sprintf("field extraction failed: %v", err), domain.DecisionManualReview)
			p.fail(ctx, pctx, logger, "field extraction failed")
			return
		}
		pctx.StructuredData = fields
	}
	p.metrics.ObserveStageLatency("classification", time.Since(stageStart))

	pctx.Advance(domain.StatusValidation)
	p.notifyProgress(ctx, pctx, "applying business rules")
	applyBusinessRules(pctx, p.minConfidence)

	if pctx.DocumentType.RequiresIdentityCheck() && p.identity != nil {
		pctx.Advance(domain.StatusIdentityValidation)
		p.notifyProgress(ctx, pctx, "validating identity against registry")

		stageStart = time.Now()
		validation, err := p.identity.ValidateFromFields(ctx, pctx.StructuredData)
		p.metrics.ObserveStageLatency("identity", time.Since(stageStart))
		switch {
		case err != nil:
			// Registry outage is not proof of a bad document, but it cannot
			// be silently ignored either.
			pctx.Reject(ruleIdentity, fmt.Sprintf("identity validation unavailable: %v", err), domain.DecisionManualReview)
			logger.Warn("identity validation unavailable", "error", err)
		case !validation.Valid:
			reason := validation.Details["error"]
			if reason == "" {
				reason = "identity not confirmed by registry"
			}
			pctx.Reject(ruleIdentity, reason, domain.DecisionRejected)
		default:
			pctx.Logf("identity confirmed by %s (confidence %.2f)", validation.Source, validation.Confidence)
		}
	}

	pctx.Advance(domain.StatusCompleted)
	p.notifyProgress(ctx, pctx, "processing completed")
}

func (p *Pipeline) fail(ctx context.Context, pctx *Context, logger *slog.Logger, message string) {
	pctx.Advance(domain.StatusFailed)
	logger.Warn(message, "decision", pctx.FinalDecision, "reasons", pctx.RejectionReasons)
	p.notifyProgress(ctx, pctx, message)
}

// notifyProgress snapshots the context into an event. Delivery is
// fire-and-forget; a lost event never affects the invocation.
func (p *Pipeline) notifyProgress(ctx context.Context, pctx *Context, message string) {
	p.notifier.Notify(ctx, notify.Event{
		DocumentID:   pctx.Document.ExternalID,
		Phase:        string(pctx.Status),
		Message:      message,
		Status:       pctx.Status,
		FileName:     pctx.Document.FileName,
		Owner:        pctx.Owner,
		DocumentType: pctx.DocumentType,
		Confidence:   pctx.ConfidenceScore,
	})
}
