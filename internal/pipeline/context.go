package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"veridoc/internal/domain"
)

// LogEntry is one timestamped line of the per-document audit trail.
type LogEntry struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// Context carries everything one invocation accumulates about a document. It
// is owned exclusively by that invocation: created at the start, mutated by
// the stages, discarded once the result is built. Never share one across
// documents or goroutines.
type Context struct {
	Owner    string
	Document domain.Document

	Status              domain.ProcessingStatus
	FinalDecision       domain.FinalDecision
	ExtractedText       string
	DocumentType        domain.DocumentType
	ClassificationLabel string
	StructuredData      map[string]string
	RejectionReasons    []domain.RejectionReason
	ConfidenceScore     float64
	Log                 []LogEntry
	TotalCostUSD        float64

	now func() time.Time
}

// NewContext initializes the context in its pessimistic starting state: the
// decision is MANUAL_REVIEW until some stage proves APPROVED or REJECTED, and
// the type is Unknown until classification says otherwise. A document without
// an external ID gets a generated one so results stay addressable.
func NewContext(owner string, doc domain.Document) *Context {
	if doc.ExternalID == "" {
		doc.ExternalID = uuid.NewString()
	}
	return &Context{
		Owner:         owner,
		Document:      doc,
		Status:        domain.StatusPending,
		FinalDecision: domain.DecisionManualReview,
		DocumentType:  domain.TypeUnknown,
		now:           time.Now,
	}
}

// Advance moves the context to the next stage. A terminal status is final:
// further transitions are ignored.
func (c *Context) Advance(status domain.ProcessingStatus) {
	if c.Status.Terminal() {
		return
	}
	c.Logf("stage %s", status)
	c.Status = status
}

// Reject appends a rejection reason and escalates the decision, never
// downgrading a more severe one already recorded.
func (c *Context) Reject(rule, reason string, decision domain.FinalDecision) {
	c.RejectionReasons = append(c.RejectionReasons, domain.RejectionReason{Rule: rule, Reason: reason})
	c.FinalDecision = domain.MostSevere(c.FinalDecision, decision)
	c.Logf("rule %s: %s", rule, reason)
}

// Approve sets the decision to APPROVED. It refuses while rejection reasons
// exist: a document with recorded failures can never come out approved.
func (c *Context) Approve() {
	if len(c.RejectionReasons) > 0 {
		return
	}
	c.FinalDecision = domain.DecisionApproved
}

// Logf appends a timestamped entry to the audit trail.
func (c *Context) Logf(format string, args ...any) {
	c.Log = append(c.Log, LogEntry{
		At:      c.now(),
		Message: fmt.Sprintf(format, args...),
	})
}

// Result derives the immutable outcome from the context. Call once, at the
// end of the invocation.
func (c *Context) Result() domain.ProcessedResult {
	method := domain.ClassificationMethodUnknown
	if c.DocumentType.Known() {
		method = domain.ClassificationMethodAI
	}
	return domain.ProcessedResult{
		ExternalID:           c.Document.ExternalID,
		OriginalFileName:     c.Document.FileName,
		FileURL:              c.Document.FileURL,
		DocumentType:         c.DocumentType,
		StructuredData:       c.StructuredData,
		ExpirationDate:       domain.ExpirationDateFrom(c.StructuredData),
		FinalDecision:        c.FinalDecision,
		Observations:         c.RejectionReasons,
		Status:               c.Status,
		Owner:                c.Owner,
		ClassificationMethod: method,
		ClassificationLabel:  c.ClassificationLabel,
		TotalCostUSD:         c.TotalCostUSD,
	}
}
