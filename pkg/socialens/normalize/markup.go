package normalize

import (
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
	"golang.org/x/net/html"
)

var urlPattern = regexp.MustCompile(`https?://\S+|www\.\S+`)

// markdownLinkPattern keeps the label of [label](url) links.
var markdownLinkPattern = regexp.MustCompile(`\[(.*?)\]\((https?://[^\s)]+)\)`)

// Clean runs the lexical pass: optional markdown rendering, tag removal,
// URL removal, deletion of runes outside the BMP and whitespace collapse.
// It never fails; unparseable markup degrades to its text content.
func (n *Normalizer) Clean(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	if n.cfg.Markdown {
		text = markdownLinkPattern.ReplaceAllString(text, "$1")
		text = string(blackfriday.Run([]byte(text), blackfriday.WithNoExtensions()))
	}
	if strings.ContainsRune(text, '<') || strings.ContainsRune(text, '&') {
		text = stripTags(text)
	}
	text = urlPattern.ReplaceAllString(text, "")
	text = dropAstral(text)

	return strings.Join(strings.Fields(text), " ")
}

// stripTags returns the text content of an HTML fragment, skipping
// script and style bodies.
func stripTags(s string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			if isRawTag(name) {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if isRawTag(name) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}

func isRawTag(name []byte) bool {
	tag := string(name)
	return tag == "script" || tag == "style"
}

// dropAstral deletes runes outside the Basic Multilingual Plane (emoji and
// other pictographs) together with the joiners and variation selectors
// that glue emoji sequences.
func dropAstral(s string) string {
	return strings.Map(func(r rune) rune {
		if r > 0xFFFF || r == '\u200d' || r == '\ufe0f' || r == '\ufe0e' {
			return -1
		}
		return r
	}, s)
}
