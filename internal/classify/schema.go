package classify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"veridoc/internal/domain"
)

// Schema names the fields the extraction model is asked to produce for one
// document type.
type Schema struct {
	Description string   `yaml:"description"`
	Fields      []string `yaml:"fields"`
}

// Catalog maps document types to extraction schemas. Unlisted types fall
// back to the generic single-field schema.
type Catalog map[domain.DocumentType]Schema

// genericSchema is used for documents whose type has no dedicated schema.
var genericSchema = Schema{
	Description: "document",
	Fields:      []string{"general_information"},
}

// DefaultCatalog returns the built-in schema set.
func DefaultCatalog() Catalog {
	return Catalog{
		domain.TypeNationalIDFront: {
			Description: "Chilean national identity card (front side)",
			Fields:      []string{"first_name", "paternal_surname", "maternal_surname", "id_number", "birth_date", "nationality"},
		},
		domain.TypeDriverLicense: {
			Description: "Chilean driver's license",
			Fields:      []string{"full_name", "id_number", "expiration_date", "category", "address"},
		},
	}
}

// Lookup resolves the schema for a document type.
func (c Catalog) Lookup(t domain.DocumentType) Schema {
	if s, ok := c[t]; ok {
		return s
	}
	return genericSchema
}

// LoadCatalog reads a schema catalog from a YAML file. Entries replace the
// defaults wholesale for the types they name; types absent from the file keep
// their built-in schema.
func LoadCatalog(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema catalog: %w", err)
	}

	var parsed map[string]Schema
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse schema catalog: %w", err)
	}

	catalog := DefaultCatalog()
	for label, schema := range parsed {
		t := domain.ParseDocumentType(label)
		if !t.Known() {
			return nil, fmt.Errorf("schema catalog: unknown document type %q", label)
		}
		if len(schema.Fields) == 0 {
			return nil, fmt.Errorf("schema catalog: type %q lists no fields", label)
		}
		catalog[t] = schema
	}
	return catalog, nil
}
