package domain

import "strings"

// DocumentType is the closed enumeration of document classes the service
// recognizes. Values are the labels the classification model is asked to
// choose from, so they double as wire values.
type DocumentType string

const (
	TypeNationalIDFront  DocumentType = "Cédula de Identidad CL (Frontal)"
	TypeNationalIDBack   DocumentType = "Cédula de Identidad CL (Reverso)"
	TypeDriverLicense    DocumentType = "Licencia de Conducir CL"
	TypePassport         DocumentType = "Pasaporte"
	TypeBirthCertificate DocumentType = "Certificado de Nacimiento"
	TypeOther            DocumentType = "Otro"
	TypeUnknown          DocumentType = "Unknown"
)

// KnownTypes lists every classifiable type in the order presented to the
// model. TypeUnknown is deliberately absent: it is a fallback, not a choice.
func KnownTypes() []DocumentType {
	return []DocumentType{
		TypeNationalIDFront,
		TypeNationalIDBack,
		TypeDriverLicense,
		TypePassport,
		TypeBirthCertificate,
		TypeOther,
	}
}

// ParseDocumentType maps a model-reported label onto the closed enumeration.
// Unrecognized labels fall through to TypeUnknown rather than propagating
// stringly-typed values into the pipeline.
func ParseDocumentType(label string) DocumentType {
	trimmed := strings.TrimSpace(label)
	for _, t := range KnownTypes() {
		if strings.EqualFold(trimmed, string(t)) {
			return t
		}
	}
	return TypeUnknown
}

// Known reports whether the type was positively classified.
func (t DocumentType) Known() bool {
	return t != TypeUnknown && t != ""
}

// RequiresIdentityCheck reports whether documents of this type must be
// cross-checked against the national identity registry. Only the front side
// of the national ID carries the fields the registry needs.
func (t DocumentType) RequiresIdentityCheck() bool {
	return t == TypeNationalIDFront
}

func (t DocumentType) String() string { return string(t) }
