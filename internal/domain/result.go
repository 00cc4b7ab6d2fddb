package domain

// Observation is a structured note produced during content validation. The
// layer determines how much weight it carries in the final decision.
type Observation struct {
	Layer   ObservationLayer `json:"layer"`
	Reason  string           `json:"reason"`
	Message string           `json:"message"`
	Extra   map[string]any   `json:"extra,omitempty"`
}

// ObservationLayer classifies an observation's severity.
type ObservationLayer string

const (
	LayerCritical ObservationLayer = "critical"
	LayerWarning  ObservationLayer = "warning"
	LayerSuccess  ObservationLayer = "success"
)

// ClassificationMethod labels how the document type was determined.
const (
	ClassificationMethodAI      = "AI"
	ClassificationMethodUnknown = "UNKNOWN"
)

// ProcessedResult is the sole externally visible output of one pipeline
// invocation. It is built once, after the context is finalized, and never
// mutated afterwards.
type ProcessedResult struct {
	ExternalID           string            `json:"external_id,omitempty"`
	OriginalFileName     string            `json:"original_file_name"`
	FileURL              string            `json:"file_url"`
	DocumentType         DocumentType      `json:"document_type"`
	StructuredData       map[string]string `json:"structured_data,omitempty"`
	ExpirationDate       string            `json:"expiration_date,omitempty"`
	FinalDecision        FinalDecision     `json:"final_decision"`
	Observations         []RejectionReason `json:"observations"`
	Status               ProcessingStatus  `json:"status"`
	Owner                string            `json:"owner_user_name"`
	ClassificationMethod string            `json:"classification_method"`
	ClassificationLabel  string            `json:"classification_label,omitempty"`
	TotalCostUSD         float64           `json:"total_cost_usd"`
}

// expirationKeys are probed in order when surfacing an expiry date from
// structured data. The model is prompted for "expiration_date" but older
// schema revisions used the Spanish field names.
var expirationKeys = []string{"expiration_date", "fecha_vencimiento", "vencimiento"}

// ExpirationDateFrom returns the first expiry-date value present in the
// structured data, or the empty string.
func ExpirationDateFrom(data map[string]string) string {
	for _, key := range expirationKeys {
		if v, ok := data[key]; ok && v != "" {
			return v
		}
	}
	return ""
}
