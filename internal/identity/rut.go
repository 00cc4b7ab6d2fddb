package identity

import "strings"

// NormalizeRUT strips separators from a Chilean RUT so that formatted and
// compact renderings compare equal: "12.345.678-9" and "123456789" normalize
// to the same value. The verifier digit K is lowercased.
func NormalizeRUT(rut string) string {
	var b strings.Builder
	b.Grow(len(rut))
	for _, r := range rut {
		switch r {
		case '.', '-', ' ', '\t':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return strings.ToLower(b.String())
}
