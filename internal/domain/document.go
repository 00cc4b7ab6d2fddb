package domain

// Document is the immutable input descriptor submitted by the platform. The
// pipeline never mutates it; everything derived from it lives in the
// processing context.
type Document struct {
	FileURL    string `json:"file_url"`
	FileName   string `json:"file_name"`
	ExternalID string `json:"external_id,omitempty"`
}

// RejectionReason records a single failed rule. Reasons are append-only: once
// recorded they survive until the final result is built.
type RejectionReason struct {
	Rule   string `json:"rule"`
	Reason string `json:"reason"`
}

// FinalDecision enumerates the terminal business outcomes of processing.
type FinalDecision string

const (
	DecisionApproved     FinalDecision = "APPROVED"
	DecisionRejected     FinalDecision = "REJECTED"
	DecisionManualReview FinalDecision = "MANUAL_REVIEW"
)

// Severity orders decisions so the most severe outcome wins when several
// rules fire. REJECTED > MANUAL_REVIEW > APPROVED.
func (d FinalDecision) Severity() int {
	switch d {
	case DecisionRejected:
		return 2
	case DecisionManualReview:
		return 1
	default:
		return 0
	}
}

// MostSevere returns the stronger of the two decisions.
func MostSevere(a, b FinalDecision) FinalDecision {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

// ProcessingStatus enumerates the pipeline stages. Within one invocation the
// status only moves forward; FAILED is reachable from any stage.
type ProcessingStatus string

const (
	StatusPending            ProcessingStatus = "PENDING"
	StatusPrevalidation      ProcessingStatus = "PREVALIDATION"
	StatusTextExtraction     ProcessingStatus = "REVI"
	StatusClassification     ProcessingStatus = "CLASSIFICATION"
	StatusValidation         ProcessingStatus = "VALIDATION"
	StatusIdentityValidation ProcessingStatus = "VALIDATION_IDENTITY"
	StatusCompleted          ProcessingStatus = "COMPLETED"
	StatusFailed             ProcessingStatus = "FAILED"
)

// Terminal reports whether the status ends an invocation.
func (s ProcessingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
