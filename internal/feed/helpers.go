package feed

import (
	"html"
	"regexp"
	"strings"
)

var markupTagRe = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string {
	return markupTagRe.ReplaceAllString(s, " ")
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}

	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}

	return ""
}

func plainText(s string) string {
	return collapseWhitespace(html.UnescapeString(stripTags(s)))
}
