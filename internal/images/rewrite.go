package images

import (
	"strings"

	"github.com/aequinox/gesundes-leben/wp2md/internal/models"
)

// RewriteReferences points Markdown image links and raw HTML src attributes
// of stored scraped images at their local copy. It returns the number of links rewritten.
func RewriteReferences(post *models.Post) int {
	rewritten := 0
	for _, img := range post.Images {
		if img.Source != models.SourceScraped || img.FileName == "" {
			continue
		}
		if !img.Downloaded && !img.Skipped {
			continue
		}
		local := img.RelativePath()
		for _, ref := range uniqueRefs(img.Src, img.URL) {
			var n int
			post.Markdown, n = replaceLink(post.Markdown, ref, local)
			rewritten += n
		}
	}
	return rewritten
}

func uniqueRefs(refs ...string) []string {
	out := refs[:0:0]
	seen := map[string]bool{}
	for _, r := range refs {
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

// replaceLink rewrites "](ref)", "](ref "title")" and src="ref" targets.
func replaceLink(markdown, ref, local string) (string, int) {
	n := 0
	for _, pattern := range [][2]string{{"](", ")"}, {"](", " \""}, {`src="`, `"`}} {
		old := pattern[0] + ref + pattern[1]
		if c := strings.Count(markdown, old); c > 0 {
			markdown = strings.ReplaceAll(markdown, old, pattern[0]+local+pattern[1])
			n += c
		}
	}
	return markdown, n
}
