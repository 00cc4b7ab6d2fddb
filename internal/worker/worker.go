// Package worker turns one platform request (owner + document batch) into
// stored results: it fans the documents out over the pipeline with bounded
// concurrency, applies the optional applicant content check, persists every
// result and delivers the batch callback.
package worker

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"veridoc/internal/content"
	"veridoc/internal/domain"
	"veridoc/internal/store"
)

const contentRule = "content_validation"

// Processor runs one document through the pipeline.
type Processor interface {
	Process(ctx context.Context, owner string, doc domain.Document) domain.ProcessedResult
}

// CallbackDeliverer posts a finished batch to the request's webhook.
type CallbackDeliverer interface {
	DeliverBatch(ctx context.Context, url, owner string, results []domain.ProcessedResult) bool
}

// Applicant is the expected identity profile a request may carry. When
// present, every document's extracted fields are checked against it.
type Applicant struct {
	FullName     string `json:"full_name"`
	IDNumber     string `json:"rut"`
	DocumentType string `json:"document_type,omitempty"`
}

// Request is one unit of intake work.
type Request struct {
	Owner       string
	CallbackURL string
	Documents   []domain.Document
	Applicant   *Applicant
}

// Service processes requests. Construct with New.
type Service struct {
	processor   Processor
	results     store.ResultStore
	callback    CallbackDeliverer
	validator   *content.Validator
	concurrency int
	logger      *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithCallback enables batch callback delivery.
func WithCallback(c CallbackDeliverer) Option {
	return func(s *Service) { s.callback = c }
}

// WithConcurrency bounds how many documents of one request run in parallel.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New constructs a Service over the pipeline and result store.
func New(processor Processor, results store.ResultStore, opts ...Option) *Service {
	s := &Service{
		processor:   processor,
		results:     results,
		validator:   content.New(),
		concurrency: 3,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessBatch runs every document of the request and returns the results in
// input order. Each document gets its own pipeline invocation; a failure of
// one never affects the others. Storage and callback failures are logged,
// never propagated — the results themselves are always returned.
func (s *Service) ProcessBatch(ctx context.Context, req Request) []domain.ProcessedResult {
	results := make([]domain.ProcessedResult, len(req.Documents))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, doc := range req.Documents {
		g.Go(func() error {
			result := s.processor.Process(gctx, req.Owner, doc)
			if req.Applicant != nil {
				result = s.applyContentCheck(result, *req.Applicant)
			}
			if err := s.results.Save(gctx, result); err != nil {
				s.logger.Error("result store save failed",
					"document_id", result.ExternalID, "error", err)
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	if s.callback != nil {
		if ok := s.callback.DeliverBatch(ctx, req.CallbackURL, req.Owner, results); !ok {
			s.logger.Warn("batch callback not accepted", "owner", req.Owner, "url", req.CallbackURL)
		}
	}
	return results
}

// applyContentCheck compares the extracted fields against the applicant
// profile and folds the outcome into the result. It only runs when the
// pipeline actually produced structured data; a failed invocation has nothing
// to compare.
func (s *Service) applyContentCheck(result domain.ProcessedResult, applicant Applicant) domain.ProcessedResult {
	if len(result.StructuredData) == 0 || result.Status != domain.StatusCompleted {
		return result
	}

	decision, observations := s.validator.Validate(
		result.StructuredData,
		content.Profile{FullName: applicant.FullName, IDNumber: applicant.IDNumber},
		applicant.DocumentType,
		result.DocumentType,
	)

	result.FinalDecision = domain.MostSevere(result.FinalDecision, decision)
	for _, obs := range observations {
		if obs.Layer == domain.LayerSuccess {
			continue
		}
		result.Observations = append(result.Observations, domain.RejectionReason{
			Rule:   contentRule,
			Reason: obs.Reason,
		})
	}
	return result
}
