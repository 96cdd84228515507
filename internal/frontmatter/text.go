package frontmatter

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	descriptionLength = 150
	maxKeywords       = 10
)

// PlainText strips a frontmatter block and Markdown syntax from markdown,
// returning its prose on one line. Code and raw HTML are dropped.
func PlainText(markdown string) string {
	src := []byte(stripFrontmatter(markdown))
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				b.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			b.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(node.Value)
		}
		return ast.WalkContinue, nil
	})

	out := strings.ReplaceAll(b.String(), "{/* more */}", " ")
	return strings.Join(strings.Fields(out), " ")
}

func stripFrontmatter(s string) string {
	trimmed := strings.TrimLeft(s, "\uFEFF \t\r\n")
	if !strings.HasPrefix(trimmed, "---") {
		return s
	}
	rest := trimmed[3:]
	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return s
	}
	rest = rest[idx+4:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		return rest[nl+1:]
	}
	return ""
}

// HTMLText returns the text content of an HTML fragment on one line.
func HTMLText(html string) string {
	if !strings.Contains(html, "<") && !strings.Contains(html, "&") {
		return strings.Join(strings.Fields(html), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Truncate cuts s to limit characters, appending "..." when it had to cut.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	cut := strings.TrimRightFunc(string(r[:limit]), unicode.IsSpace)
	return cut + "..."
}

// collapseLines joins the non-empty lines of s with single spaces.
func collapseLines(s string) string {
	var parts []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

var stopWords = map[string]bool{
	"aber": true, "alle": true, "als": true, "also": true, "auch": true,
	"auf": true, "aus": true, "bei": true, "beim": true, "bis": true,
	"dann": true, "darum": true, "dass": true, "dein": true, "dem": true,
	"den": true, "denn": true, "der": true, "des": true, "die": true,
	"dies": true, "diese": true, "diesem": true, "diesen": true, "dieser": true,
	"doch": true, "durch": true, "ein": true, "eine": true, "einem": true,
	"einen": true, "einer": true, "eines": true, "etwa": true, "für": true,
	"haben": true, "hat": true, "hier": true, "ihre": true, "ihren": true,
	"immer": true, "jetzt": true, "kann": true, "können": true, "mehr": true,
	"mit": true, "nach": true, "nicht": true, "noch": true, "nur": true,
	"oder": true, "ohne": true, "sein": true, "sehr": true, "sich": true,
	"sind": true, "über": true, "und": true, "unter": true, "viel": true,
	"vom": true, "von": true, "vor": true, "wenn": true, "werden": true,
	"wird": true, "wurde": true, "zum": true, "zur": true, "zwischen": true,
}

// ExtractKeywords returns up to limit frequent content words of text,
// most frequent first, ties broken alphabetically.
func ExtractKeywords(s string, limit int) []string {
	counts := map[string]int{}
	for _, word := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	}) {
		word = strings.Trim(word, "-")
		if utf8.RuneCountInString(word) <= 3 || stopWords[word] {
			continue
		}
		counts[word]++
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > limit {
		words = words[:limit]
	}
	return words
}

// Groups a post can belong to.
const (
	GroupPro         = "pro"
	GroupKontra      = "kontra"
	GroupFragezeiten = "fragezeiten"
)

var (
	kontraWords   = []string{"gefahr", "risiko", "warnung", "vorsicht", "nachteil", "problem", "schaden", "negativ"}
	questionWords = map[string]bool{"warum": true, "wie": true, "wieso": true, "weshalb": true, "frage": true, "fragen": true}
)

// DetermineGroup classifies a post from its tags, title and opening text.
func DetermineGroup(title, body string, tags []string) string {
	for _, tag := range tags {
		lower := strings.ToLower(tag)
		if containsAny(lower, kontraWords[:3]) {
			return GroupKontra
		}
		if hasQuestionWord(lower) {
			return GroupFragezeiten
		}
	}

	lowerTitle := strings.ToLower(title)
	if strings.Contains(lowerTitle, "?") || strings.Contains(lowerTitle, "was ist") || hasQuestionWord(lowerTitle) {
		return GroupFragezeiten
	}
	if containsAny(lowerTitle, kontraWords) {
		return GroupKontra
	}

	sample := []rune(strings.ToLower(body))
	if len(sample) > 1000 {
		sample = sample[:1000]
	}
	count := 0
	for _, word := range kontraWords {
		count += strings.Count(string(sample), word)
	}
	if count >= 3 {
		return GroupKontra
	}
	return GroupPro
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func hasQuestionWord(s string) bool {
	for _, w := range strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) }) {
		if questionWords[w] {
			return true
		}
	}
	return false
}
