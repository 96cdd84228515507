package frontmatter

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aequinox/gesundes-leben/wp2md/internal/config"
)

// NormalizeCategory upper-cases the first letter of name and lower-cases the
// rest.
func NormalizeCategory(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(first)) + strings.ToLower(name[size:])
}

// ResolveCategories maps raw category names onto the vocabulary. Filtered
// names are skipped; names that match no vocabulary entry are returned as
// dropped. The result holds canonical vocabulary entries only, without
// duplicates.
func ResolveCategories(cfg *config.Config, names []string) (kept, dropped []string) {
	kept = []string{}
	seen := map[string]bool{}
	for _, raw := range names {
		name := decodeTerm(raw)
		if name == "" || cfg.IsFilteredCategory(name) {
			continue
		}
		if mapped, ok := cfg.MappedCategory(name); ok {
			name = mapped
		}
		canonical, ok := lookupVocabulary(cfg.Categories, NormalizeCategory(name))
		if !ok {
			dropped = append(dropped, name)
			continue
		}
		if !seen[canonical] {
			seen[canonical] = true
			kept = append(kept, canonical)
		}
	}
	return kept, dropped
}

func lookupVocabulary(vocabulary []string, name string) (string, bool) {
	for _, entry := range vocabulary {
		if strings.EqualFold(strings.TrimSpace(entry), name) {
			return strings.TrimSpace(entry), true
		}
	}
	return "", false
}

// decodeTerm URL-decodes a term name, keeping it as is when it is not valid
// percent-encoding.
func decodeTerm(raw string) string {
	raw = strings.TrimSpace(raw)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return strings.TrimSpace(decoded)
	}
	return raw
}
