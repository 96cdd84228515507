// Package convert turns WordPress post bodies into Markdown. Embeds that
// Markdown cannot express pass through as raw HTML.
package convert

import (
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/aequinox/gesundes-leben/wp2md/internal/errs"
	"github.com/aequinox/gesundes-leben/wp2md/internal/logging"
)

// Options configures a Converter.
type Options struct {
	// MDX emits MDX compatible markers such as {/* more */}.
	MDX bool
	// BlockquoteComponent wraps blockquotes in <Name>...</Name> when set.
	BlockquoteComponent string
	// ImagePositions marks images of aligned figures with {position=...}.
	ImagePositions bool
}

// Converter converts HTML to Markdown.
type Converter struct {
	conv   *md.Converter
	rules  []Rule
	logger logging.Logger
}

// New creates a converter with the default rule set for opts.
func New(opts Options, logger logging.Logger) *Converter {
	return NewWithRules(DefaultRules(opts), logger)
}

// NewWithRules creates a converter evaluating rules in order before the
// CommonMark rules.
func NewWithRules(rules []Rule, logger logging.Logger) *Converter {
	if logger == nil {
		logger = logging.NoOp()
	}
	conv := md.NewConverter("", true, &md.Options{
		HeadingStyle:     "atx",
		BulletListMarker: "-",
		CodeBlockStyle:   "fenced",
		Fence:            "```",
	})
	register(conv, rules)
	return &Converter{conv: conv, rules: rules, logger: logger}
}

// Rules returns the rules in evaluation order.
func (c *Converter) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// Convert converts one HTML body. Empty input yields empty output.
func (c *Converter) Convert(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + prepareSource(html)))
	if err != nil {
		return "", errs.Convert(err, fmt.Sprintf("parsing post body: %v", err))
	}
	body := doc.Find("body")
	prepareDocument(body)

	markdown := c.conv.Convert(body)
	return postProcess(markdown), nil
}

var (
	listMarker = regexp.MustCompile(`(?m)^([ \t]*)([-*+]|\d+\.)[ \t]{2,}`)
	extraLines = regexp.MustCompile(`\n{3,}`)
	snugGap    = regexp.MustCompile(`\s*` + snugMark)
	fenceOpen  = regexp.MustCompile("^[ \t]{0,3}(`{3,}|~{3,})")
)

// postProcess tidies list markers and blank lines. Fenced code is copied
// unchanged.
func postProcess(markdown string) string {
	markdown = strings.ReplaceAll(markdown, "\r\n", "\n")

	var b strings.Builder
	for _, seg := range splitFences(markdown) {
		if seg.code {
			b.WriteString(seg.text)
			continue
		}
		text := listMarker.ReplaceAllString(seg.text, "$1$2 ")
		text = snugGap.ReplaceAllString(text, "\n")
		text = extraLines.ReplaceAllString(text, "\n\n")
		b.WriteString(text)
	}
	return strings.TrimSpace(b.String())
}

type segment struct {
	text string
	code bool
}

// splitFences cuts markdown into prose and fenced code segments. A fence
// closes on a line holding only a run of the opening character at least as
// long as the opener; an unclosed fence runs to the end.
func splitFences(markdown string) []segment {
	var (
		segs  []segment
		cur   strings.Builder
		fence string
	)
	flush := func(code bool) {
		if cur.Len() > 0 {
			segs = append(segs, segment{text: cur.String(), code: code})
			cur.Reset()
		}
	}

	for _, line := range strings.SplitAfter(markdown, "\n") {
		if fence == "" {
			if m := fenceOpen.FindStringSubmatch(line); m != nil {
				flush(false)
				fence = m[1]
			}
			cur.WriteString(line)
			continue
		}
		cur.WriteString(line)
		if closesFence(line, fence) {
			flush(true)
			fence = ""
		}
	}
	flush(fence != "")
	return segs
}

func closesFence(line, fence string) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < len(fence) {
		return false
	}
	return strings.Trim(trimmed, fence[:1]) == ""
}
