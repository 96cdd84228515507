package frontmatter

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var umlauts = strings.NewReplacer(
	"ä", "ae",
	"ö", "oe",
	"ü", "ue",
	"ß", "ss",
)

// Slugify lowercases s, transliterates German umlauts, strips diacritics and
// replaces every run of other characters with sep. Slugify is idempotent.
func Slugify(s, sep string) string {
	if sep == "" {
		sep = "-"
	}
	s = umlauts.Replace(strings.ToLower(s))

	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err == nil {
		s = stripped
	}

	var b strings.Builder
	pending := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteString(sep)
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

// PostSlug derives the slug of a post: from the title, else the decoded post
// name, else "post-<id>".
func PostSlug(title, name, id, sep string) string {
	if slug := Slugify(title, sep); slug != "" {
		return slug
	}
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	if slug := Slugify(name, sep); slug != "" {
		return slug
	}
	return Slugify("post "+id, sep)
}
