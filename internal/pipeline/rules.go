package pipeline

import (
	"fmt"
	"strings"

	"veridoc/internal/domain"
)

// Rule names recorded in rejection reasons.
const (
	rulePrevalidation  = "prevalidation"
	ruleTextExtraction = "text_extraction"
	ruleConfidence     = "classification_confidence"
	ruleIdentity       = "identity_validation"
	ruleUnexpected     = "processing_error"
)

// applyBusinessRules evaluates the post-classification conditions. Each
// failing condition records its own reason; the decision ends up as the most
// severe one recorded. A document failing no condition at all is approved.
func applyBusinessRules(c *Context, minConfidence float64) {
	if strings.TrimSpace(c.ExtractedText) == "" {
		c.Reject(ruleTextExtraction, "no text extracted from document", domain.DecisionRejected)
	}

	if c.ConfidenceScore < minConfidence {
		c.Reject(ruleConfidence,
			fmt.Sprintf("low classification confidence: %.2f (minimum %.2f)", c.ConfidenceScore, minConfidence),
			domain.DecisionManualReview)
	}

	if len(c.RejectionReasons) == 0 {
		c.Approve()
	}
}
