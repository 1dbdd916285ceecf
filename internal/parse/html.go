package parse

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/jaytaylor/html2text"
)

var (
	styleBlockRE  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	scriptBlockRE = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	tagRE         = regexp.MustCompile(`<[^>]+>`)
	whitespaceRE  = regexp.MustCompile(`\s+`)
)

// htmlToText converts an HTML body to plain text with collapsed
// whitespace. html2text does the heavy lifting; if it chokes on the input
// a crude strip-tags pass is used so classification still gets some text.
func htmlToText(html string, log *slog.Logger) string {
	text, err := html2text.FromString(html, html2text.Options{TextOnly: true})
	if err != nil {
		log.Warn("normalizer: html2text failed, stripping tags instead", "error", err)
		text = stripTags(html)
	}
	return collapseWhitespace(text)
}

// stripTags removes style and script blocks, then all remaining tags.
func stripTags(html string) string {
	html = styleBlockRE.ReplaceAllString(html, "")
	html = scriptBlockRE.ReplaceAllString(html, "")
	return tagRE.ReplaceAllString(html, " ")
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(s, " "))
}
