package httpapi

import "veridoc/internal/domain"

// ProcessResponse echoes the owner and carries one result per submitted
// document, in submission order.
type ProcessResponse struct {
	OwnerUserName string                   `json:"owner_user_name"`
	Results       []domain.ProcessedResult `json:"results"`
}

// HealthResponse reports overall status plus one entry per collaborator.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}
