// Package content compares the fields extracted from a document against the
// applicant profile the platform expects, producing a decision plus the
// observations that justify it.
package content

import (
	"fmt"
	"strings"
	"time"

	"veridoc/internal/domain"
	"veridoc/internal/identity"
)

// Profile is the externally supplied expectation for one applicant.
type Profile struct {
	FullName string
	IDNumber string
}

// nameSimilarityThreshold is the minimum Jaccard similarity between the
// extracted and expected name token sets.
const nameSimilarityThreshold = 0.7

// expiryFormats are tried in order when parsing an expiry-date string.
var expiryFormats = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"2006/01/02",
}

// Validator applies the content checks. It is stateless; Validate is pure
// apart from reading the clock for the expiry check.
type Validator struct {
	now func() time.Time
}

// New constructs a Validator using the real clock.
func New() *Validator {
	return &Validator{now: time.Now}
}

// NewWithClock constructs a Validator with an injected clock for tests.
func NewWithClock(now func() time.Time) *Validator {
	return &Validator{now: now}
}

// Validate runs every check independently and folds the observations into a
// decision: any critical observation rejects, any warning without criticals
// asks for manual review, otherwise the document is approved. A summary
// observation describing the aggregate outcome is always first.
func (v *Validator) Validate(
	extracted map[string]string,
	profile Profile,
	expectedType string,
	detectedType domain.DocumentType,
) (domain.FinalDecision, []domain.Observation) {
	var observations []domain.Observation
	criticals := 0
	warnings := 0

	if expectedType != "" && detectedType != "" {
		if !typesMatch(expectedType, string(detectedType)) {
			observations = append(observations, domain.Observation{
				Layer:   domain.LayerCritical,
				Reason:  fmt.Sprintf("wrong document type: expected %q, found %q", expectedType, detectedType),
				Message: "document type mismatch",
			})
			criticals++
		}
	}

	if profile.IDNumber != "" && extracted["id_number"] != "" {
		if identity.NormalizeRUT(extracted["id_number"]) != identity.NormalizeRUT(profile.IDNumber) {
			observations = append(observations, domain.Observation{
				Layer:   domain.LayerCritical,
				Reason:  fmt.Sprintf("id number mismatch: expected %q, found %q", profile.IDNumber, extracted["id_number"]),
				Message: "id number mismatch",
				Extra:   map[string]any{"expected": profile.IDNumber, "found": extracted["id_number"]},
			})
			criticals++
		}
	}

	if profile.FullName != "" && extracted["first_name"] != "" {
		extractedName := joinNameParts(extracted)
		similarity := nameSimilarity(normalizeName(extractedName), normalizeName(profile.FullName))
		if similarity < nameSimilarityThreshold {
			observations = append(observations, domain.Observation{
				Layer:   domain.LayerCritical,
				Reason:  fmt.Sprintf("name mismatch: expected %q, found %q", profile.FullName, extractedName),
				Message: "name mismatch",
				Extra:   map[string]any{"expected": profile.FullName, "found": extractedName, "similarity": similarity},
			})
			criticals++
		}
	}

	if expiry := domain.ExpirationDateFrom(extracted); expiry != "" {
		obs := v.checkExpiry(expiry)
		observations = append(observations, obs)
		switch obs.Layer {
		case domain.LayerCritical:
			criticals++
		case domain.LayerWarning:
			warnings++
		}
	}

	decision, summary := summarize(criticals, warnings)
	return decision, append([]domain.Observation{summary}, observations...)
}

func summarize(criticals, warnings int) (domain.FinalDecision, domain.Observation) {
	switch {
	case criticals > 0:
		return domain.DecisionRejected, domain.Observation{
			Layer:   domain.LayerCritical,
			Reason:  fmt.Sprintf("document rejected due to %d critical error(s)", criticals),
			Message: "document rejected",
		}
	case warnings > 0:
		return domain.DecisionManualReview, domain.Observation{
			Layer:   domain.LayerWarning,
			Reason:  fmt.Sprintf("manual review required (%d warning(s))", warnings),
			Message: "manual review required",
		}
	default:
		return domain.DecisionApproved, domain.Observation{
			Layer:   domain.LayerSuccess,
			Reason:  "document approved: all data matches",
			Message: "document approved",
		}
	}
}

// typesMatch compares document types with family-level flexibility: both
// naming an id card, a license or a passport counts as a match, except when
// one side asks for the frontal side and the other detected the reverse.
func typesMatch(expected, detected string) bool {
	e := strings.ToLower(expected)
	d := strings.ToLower(detected)

	if e == d {
		return true
	}

	idCard := func(s string) bool {
		return strings.Contains(s, "cedula") || strings.Contains(s, "cédula") || strings.Contains(s, "identidad")
	}
	if idCard(e) && idCard(d) {
		if strings.Contains(e, "frontal") && strings.Contains(d, "reverso") {
			return false
		}
		if strings.Contains(e, "reverso") && strings.Contains(d, "frontal") {
			return false
		}
		return true
	}

	if strings.Contains(e, "licencia") && strings.Contains(d, "licencia") {
		return true
	}
	if strings.Contains(e, "pasaporte") && strings.Contains(d, "pasaporte") {
		return true
	}
	return false
}

func (v *Validator) checkExpiry(raw string) domain.Observation {
	var parsed time.Time
	ok := false
	for _, format := range expiryFormats {
		if t, err := time.Parse(format, raw); err == nil {
			parsed = t
			ok = true
			break
		}
	}

	if !ok {
		return domain.Observation{
			Layer:   domain.LayerWarning,
			Reason:  fmt.Sprintf("could not verify expiry date: %q", raw),
			Message: "could not verify expiry date",
		}
	}

	if parsed.Before(v.now()) {
		return domain.Observation{
			Layer:   domain.LayerCritical,
			Reason:  fmt.Sprintf("document expired on %s", raw),
			Message: "document expired",
			Extra:   map[string]any{"expiry_date": raw},
		}
	}

	return domain.Observation{
		Layer:   domain.LayerSuccess,
		Reason:  fmt.Sprintf("document valid until %s", raw),
		Message: "document valid",
		Extra:   map[string]any{"expiry_date": raw},
	}
}

func joinNameParts(extracted map[string]string) string {
	parts := make([]string, 0, 3)
	for _, key := range []string{"first_name", "paternal_surname", "maternal_surname"} {
		if v := strings.TrimSpace(extracted[key]); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

var accentReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u",
	"ä", "a", "ë", "e", "ï", "i", "ö", "o", "ü", "u",
	"ñ", "n",
)

// normalizeName lowercases, strips accents and collapses whitespace.
func normalizeName(name string) string {
	lowered := accentReplacer.Replace(strings.ToLower(name))
	return strings.Join(strings.Fields(lowered), " ")
}

// nameSimilarity is the Jaccard similarity of the two names' word sets, so
// it is symmetric under word-order permutation.
func nameSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	setA := wordSet(a)
	setB := wordSet(b)

	intersection := 0
	for word := range setA {
		if _, ok := setB[word]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(s) {
		set[word] = struct{}{}
	}
	return set
}
