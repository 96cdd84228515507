package convert

import (
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// Rule renders the elements it matches. Filter lists the tag names the rule
// is considered for; Match narrows that down. Rules are tried in list order
// and the first match wins; elements no rule matches fall back to the
// CommonMark rules.
type Rule struct {
	Name   string
	Filter []string
	Match  func(sel *goquery.Selection) bool
	Render func(content string, sel *goquery.Selection) string
}

func always(*goquery.Selection) bool { return true }

// DefaultRules returns the WordPress rule set for opts.
func DefaultRules(opts Options) []Rule {
	rules := []Rule{
		{Name: "tweet", Filter: []string{"blockquote"}, Match: isTweet, Render: renderRaw},
		{Name: "codepen", Filter: []string{"p", "div"}, Match: isCodepen, Render: renderRaw},
		{Name: "script", Filter: []string{scriptTag}, Match: always, Render: renderScript},
		{Name: "iframe", Filter: []string{"iframe"}, Match: always, Render: renderRaw},
		{Name: "more", Filter: []string{moreTag}, Match: always, Render: moreRenderer(opts.MDX)},
		{Name: "figure", Filter: []string{"figure"}, Match: always, Render: figureRenderer(opts.ImagePositions)},
		{Name: "preformatted", Filter: []string{"pre"}, Match: withoutCode, Render: renderFence},
		{Name: "separator", Filter: []string{"div"}, Match: isSeparator, Render: renderBreak},
	}
	if opts.BlockquoteComponent != "" {
		rules = append(rules, Rule{
			Name:   "blockquote-component",
			Filter: []string{"blockquote"},
			Match:  always,
			Render: componentRenderer(opts.BlockquoteComponent),
		})
	}
	return rules
}

func isTweet(sel *goquery.Selection) bool {
	return sel.HasClass("twitter-tweet")
}

func isCodepen(sel *goquery.Selection) bool {
	_, ok := sel.Attr("data-slug-hash")
	return ok && sel.HasClass("codepen")
}

func hasCaption(sel *goquery.Selection) bool {
	return sel.Find("figcaption").Length() > 0
}

// Figure alignment as written by the image component.
const (
	positionLeft   = "left"
	positionRight  = "right"
	positionCenter = "center"
)

func figurePosition(sel *goquery.Selection) string {
	switch {
	case sel.HasClass("alignright"):
		return positionRight
	case sel.HasClass("alignleft"):
		return positionLeft
	}
	return positionCenter
}

var soleImage = regexp.MustCompile(`^!\[[^\]]*\]\([^)]*\)$`)

// figureRenderer keeps captioned figures as raw HTML and flattens the rest
// to their Markdown content. With positions, a figure holding only an image
// gets a {position=...} suffix that images.ImageComponents consumes.
func figureRenderer(positions bool) func(string, *goquery.Selection) string {
	return func(content string, sel *goquery.Selection) string {
		if hasCaption(sel) {
			return renderRaw(content, sel)
		}
		content = strings.TrimSpace(content)
		if content == "" {
			return ""
		}
		if positions && soleImage.MatchString(content) {
			content += "{position=" + figurePosition(sel) + "}"
		}
		return block(content)
	}
}

func withoutCode(sel *goquery.Selection) bool {
	return sel.Find("code").Length() == 0
}

func isSeparator(sel *goquery.Selection) bool {
	return sel.Children().Length() == 0 && strings.TrimSpace(sel.Text()) == "" && len(sel.Nodes[0].Attr) == 0
}

var emptyAttr = regexp.MustCompile(`(\s[a-zA-Z][\w:-]*)=""`)

// normalizeBooleanAttrs turns `allowfullscreen=""` into `allowfullscreen`.
func normalizeBooleanAttrs(html string) string {
	return emptyAttr.ReplaceAllString(html, "$1")
}

func block(s string) string {
	return "\n\n" + s + "\n\n"
}

// linkIndexAttr is set on links by html-to-markdown before conversion.
const linkIndexAttr = "data-index"

func renderRaw(_ string, sel *goquery.Selection) string {
	clone := sel.Clone()
	clone.Find("a[" + linkIndexAttr + "]").RemoveAttr(linkIndexAttr)
	html, err := goquery.OuterHtml(clone)
	if err != nil {
		return ""
	}
	return block(normalizeBooleanAttrs(html))
}

// snugMark precedes a script that directly follows an element. postProcess
// replaces it and the blank lines before it with a single newline, so embeds
// such as tweets keep their loader script attached.
const snugMark = "\uE000"

func renderScript(_ string, sel *goquery.Selection) string {
	raw, _ := sel.Attr(rawAttr)
	raw = normalizeBooleanAttrs(raw)
	if snug, _ := sel.Attr(snugAttr); snug == "true" {
		return block(snugMark + raw)
	}
	return block(raw)
}

func moreRenderer(mdx bool) func(string, *goquery.Selection) string {
	return func(_ string, sel *goquery.Selection) string {
		if mdx {
			return block("{/* more */}")
		}
		raw, ok := sel.Attr(rawAttr)
		if !ok || raw == "" {
			raw = "<!--more-->"
		}
		return block(raw)
	}
}

func renderFence(_ string, sel *goquery.Selection) string {
	lang, _ := sel.Attr(languageAttr)
	code := strings.TrimRight(sel.Text(), "\n")
	code = strings.TrimPrefix(code, "\n")
	fence := "```"
	for strings.Contains(code, fence) {
		fence += "`"
	}
	return block(fmt.Sprintf("%s%s\n%s\n%s", fence, lang, code, fence))
}

func renderBreak(string, *goquery.Selection) string {
	return "\n\n"
}

func componentRenderer(name string) func(string, *goquery.Selection) string {
	return func(content string, _ *goquery.Selection) string {
		return block(fmt.Sprintf("<%s>\n%s\n</%s>", name, strings.TrimSpace(content), name))
	}
}

// register installs rules so that earlier entries take precedence.
// html-to-markdown tries the most recently added rule for a tag first and
// moves on when it returns nil.
func register(conv *md.Converter, rules []Rule) {
	for i := len(rules) - 1; i >= 0; i-- {
		rule := rules[i]
		conv.AddRules(md.Rule{
			Filter: rule.Filter,
			Replacement: func(content string, sel *goquery.Selection, _ *md.Options) *string {
				if rule.Match != nil && !rule.Match(sel) {
					return nil
				}
				return md.String(rule.Render(content, sel))
			},
		})
	}
}
