package classify

import (
	"fmt"
	"strings"

	"veridoc/internal/domain"
)

// promptTextLimit bounds how much extracted text is embedded in a prompt.
// Identity documents fit comfortably; the cap protects against OCR noise from
// large multi-page files.
const promptTextLimit = 2000

func classificationPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Analyze the following text extracted from a document and determine what kind of document it is.\n\n")
	b.WriteString("Possible document types:\n")
	for _, t := range domain.KnownTypes() {
		fmt.Fprintf(&b, "- %s\n", t)
	}
	b.WriteString("\nDocument text:\n")
	b.WriteString(truncate(text, promptTextLimit))
	b.WriteString("\n\nRespond with a JSON object:\n")
	b.WriteString(`{"document_type": "identified_type", "confidence": 0.95, "reasoning": "short_explanation"}`)
	b.WriteString("\n")
	return b.String()
}

func extractionPrompt(text string, schema Schema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extract the structured information from the following text of a %s.\n\n", schema.Description)
	fmt.Fprintf(&b, "Fields to extract: %s\n\n", strings.Join(schema.Fields, ", "))
	b.WriteString("Document text:\n")
	b.WriteString(truncate(text, promptTextLimit))
	b.WriteString("\n\nRespond with a JSON object mapping each field name to its extracted value. ")
	b.WriteString("Use \"YYYY-MM-DD\" for dates and omit fields that are not present.\n")
	return b.String()
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
