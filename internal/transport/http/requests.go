package httpapi

import (
	"strings"

	"veridoc/internal/domain"
	"veridoc/internal/worker"
)

// ProcessRequest is the intake payload the platform posts. Field names match
// the platform's own contract.
type ProcessRequest struct {
	OwnerUserName string            `json:"owner_user_name"`
	Documents     []DocumentPayload `json:"documents"`
	URLResponse   string            `json:"url_response,omitempty"`
	Applicant     *ApplicantPayload `json:"applicant,omitempty"`
}

// DocumentPayload is one document descriptor of the batch.
type DocumentPayload struct {
	FileURL    string `json:"file_url"`
	FileName   string `json:"file_name"`
	ExternalID string `json:"external_id,omitempty"`
}

// ApplicantPayload is the expected identity the documents should match.
type ApplicantPayload struct {
	FullName     string `json:"full_name"`
	RUT          string `json:"rut"`
	DocumentType string `json:"document_type,omitempty"`
}

// Validate returns "" when the request is well-formed, else a description of
// the first problem found. maxDocuments bounds the batch size.
func (r ProcessRequest) Validate(maxDocuments int) string {
	if strings.TrimSpace(r.OwnerUserName) == "" {
		return "owner_user_name is required"
	}
	if len(r.Documents) == 0 {
		return "documents must not be empty"
	}
	if len(r.Documents) > maxDocuments {
		return "too many documents in one request"
	}
	for _, doc := range r.Documents {
		if strings.TrimSpace(doc.FileURL) == "" {
			return "every document needs a file_url"
		}
	}
	return ""
}

// ToWorkerRequest converts the payload into the worker's request type.
func (r ProcessRequest) ToWorkerRequest() worker.Request {
	req := worker.Request{
		Owner:       r.OwnerUserName,
		CallbackURL: r.URLResponse,
	}
	for _, doc := range r.Documents {
		req.Documents = append(req.Documents, domain.Document{
			FileURL:    doc.FileURL,
			FileName:   doc.FileName,
			ExternalID: doc.ExternalID,
		})
	}
	if r.Applicant != nil {
		req.Applicant = &worker.Applicant{
			FullName:     r.Applicant.FullName,
			IDNumber:     r.Applicant.RUT,
			DocumentType: r.Applicant.DocumentType,
		}
	}
	return req
}
