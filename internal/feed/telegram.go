package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	minPartsForTelegramChannelSlugStartingWithS = 2
	minPartsForTelegramChannelAtSignSlug        = 3
	telegramPostTitleMaxChars                   = 120

	telegramHost = "t.me"
)

var (
	telegramSlugRe       = regexp.MustCompile(`^\w{5,32}$`)
	telegramAtSignSlugRe = regexp.MustCompile(`(\s|^)@(\w{5,32})(\s|$)`)
)

func TelegramMessageCanonicalURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return trimmed
	}

	u.RawQuery = ""
	u.Fragment = ""

	return u.String()
}

func TelegramChannelCanonicalURL(slug string) string {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ""
	}

	return fmt.Sprintf("https://%s/s/%s", telegramHost, slug)
}

func isTelegramChannelURL(raw string) (bool, string) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return false, ""
	}

	if u.Host != telegramHost {
		return false, ""
	}

	path := strings.Trim(u.Path, "/")
	if path == "" {
		return false, ""
	}

	parts := strings.Split(path, "/")

	var slug string

	switch parts[0] {
	case "s":
		if len(parts) < minPartsForTelegramChannelSlugStartingWithS {
			return false, ""
		}
		slug = parts[1]
	default:
		slug = parts[0]
	}

	slug = strings.TrimSpace(slug)

	if !telegramSlugRe.MatchString(slug) {
		return false, ""
	}

	return true, slug
}

func (p *Parser) fetchTelegramChannel(
	ctx context.Context,
	slug string,
) (parsedFeed, error) {
	canonicalURL := TelegramChannelCanonicalURL(slug)
	if canonicalURL == "" {
		return parsedFeed{}, errors.New("slug is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, canonicalURL, nil)
	if err != nil {
		return parsedFeed{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req) //nolint:gosec // Telegram URL
	if err != nil {
		return parsedFeed{}, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			p.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"canonicalURL", canonicalURL,
				"operation", "fetchTelegramChannel",
				"slug", slug)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return parsedFeed{}, fmt.Errorf("do request: unexpected status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return parsedFeed{}, fmt.Errorf("create document from reader: %w", err)
	}

	parsed, err := parseChannelPage(doc)
	if err != nil {
		p.log.WarnContext(ctx, "Skipped malformed Telegram posts",
			"error", err,
			"canonicalURL", canonicalURL,
			"postCount", len(parsed.Entries))
	}

	return parsed, nil
}

// parseChannelPage reads the entries off a channel's public web preview.
// Posts without a link or with an unreadable timestamp are skipped and
// reported together.
func parseChannelPage(doc *goquery.Document) (parsedFeed, error) {
	parsed := parsedFeed{Title: channelTitle(doc)}

	var errs []error
	doc.Find(".tgme_widget_message").Each(func(_ int, post *goquery.Selection) {
		e, err := postEntry(post)
		if err != nil {
			errs = append(errs, err)
			return
		}

		parsed.Entries = append(parsed.Entries, e)
	})

	return parsed, errors.Join(errs...)
}

func channelTitle(doc *goquery.Document) string {
	if content, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
		if title := strings.TrimSpace(content); title != "" {
			return title
		}
	}

	return strings.TrimSpace(doc.Find(".tgme_channel_info_header_title").Text())
}

// postEntry maps one post onto an entry. Posts carry no title, so the first
// line of their text stands in for one; the post body markup becomes the
// content.
func postEntry(post *goquery.Selection) (Entry, error) {
	dateLink := post.Find("a.tgme_widget_message_date").First()

	link := TelegramMessageCanonicalURL(dateLink.AttrOr("href", ""))
	if link == "" {
		return Entry{}, errors.New("post link is missing")
	}

	e := Entry{GUID: link, Link: link}

	if datetime := strings.TrimSpace(dateLink.Find("time").AttrOr("datetime", "")); datetime != "" {
		published, err := time.Parse(time.RFC3339, datetime)
		if err != nil {
			return Entry{}, fmt.Errorf("parse post time (link = %s): %w", link, err)
		}
		e.Published = &published
	}

	var content strings.Builder
	post.Find(".tgme_widget_message_text, .tgme_widget_message_caption").Each(func(_ int, body *goquery.Selection) {
		markup, err := body.Html()
		if err != nil || strings.TrimSpace(markup) == "" {
			return
		}

		content.WriteString("<div>")
		content.WriteString(strings.TrimSpace(markup))
		content.WriteString("</div>")

		if e.Title == "" {
			body.Find("br").ReplaceWithHtml("\n")
			e.Title = postTitle(body.Text())
		}
	})
	e.Content = content.String()

	return e, nil
}

func postTitle(text string) string {
	firstLine, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	normalized := collapseWhitespace(firstLine)

	runes := []rune(normalized)
	if len(runes) <= telegramPostTitleMaxChars {
		return normalized
	}

	return strings.TrimSpace(string(runes[:telegramPostTitleMaxChars])) + "..."
}
