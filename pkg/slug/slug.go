package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Generate creates a URL-friendly slug. Accents are folded to their base
// letters; anything else outside [a-z0-9] becomes a single hyphen.
//
//	"Vintage Levi's 501" → "vintage-levi-s-501"
//	"Café Crème Drop"    → "cafe-creme-drop"
func Generate(name string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		strings.ToLower(strings.TrimSpace(name)),
	)
	if err != nil {
		folded = strings.ToLower(strings.TrimSpace(name))
	}
	return strings.Trim(nonAlnum.ReplaceAllString(folded, "-"), "-")
}

// WithSuffix appends a lower-cased suffix, used to keep product slugs unique
// within a drop.
func WithSuffix(name, suffix string) string {
	base := Generate(name)
	suffix = Generate(suffix)
	switch {
	case suffix == "":
		return base
	case base == "":
		return suffix
	}
	return base + "-" + suffix
}
