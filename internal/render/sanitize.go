package render

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const strippedElements = "script, style, iframe, object, embed, frame, frameset, base, meta, link, form"

// SanitizeContent cleans feed-provided markup before it is embedded in the
// reader view. Active elements and event handler attributes are dropped,
// script URLs are neutralised and links open in a new tab.
func SanitizeContent(content string) (template.HTML, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parse content: %w", err)
	}

	doc.Find(strippedElements).Remove()

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			n.Attr = cleanAttrs(n.Attr)
		}
	})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		s.SetAttr("target", "_blank")
		s.SetAttr("rel", "noopener")
	})

	body, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("render content: %w", err)
	}

	return template.HTML(strings.TrimSpace(body)), nil //nolint:gosec // sanitized above
}

func cleanAttrs(attrs []html.Attribute) []html.Attribute {
	kept := attrs[:0]
	for _, a := range attrs {
		key := strings.ToLower(a.Key)
		if strings.HasPrefix(key, "on") {
			continue
		}
		if isURLAttr(key) && hasScriptScheme(a.Val) {
			continue
		}
		kept = append(kept, a)
	}

	return kept
}

func isURLAttr(key string) bool {
	switch key {
	case "href", "src", "action", "formaction", "xlink:href", "srcset":
		return true
	default:
		return false
	}
}

func hasScriptScheme(val string) bool {
	v := strings.ToLower(strings.Join(strings.Fields(val), ""))

	return strings.HasPrefix(v, "javascript:") ||
		strings.HasPrefix(v, "vbscript:") ||
		strings.HasPrefix(v, "data:text/html")
}

// plainContent is the text of content for terminals.
func plainContent(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}

	doc.Find(strippedElements).Remove()

	var paragraphs []string
	doc.Find("p, li, h1, h2, h3, h4, h5, h6, blockquote, pre").Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered("p, li, blockquote").Length() > 0 {
			return
		}
		if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	if len(paragraphs) == 0 {
		return strings.Join(strings.Fields(doc.Text()), " ")
	}

	return strings.Join(paragraphs, "\n\n")
}
