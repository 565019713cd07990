// Package opml converts between OPML subscription documents and feed lists.
package opml

import (
	"cmp"
	"encoding/xml"
	"fmt"
	"io"
	"slices"
	"strings"

	"feedsnap/internal/domain"
)

type document struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    head     `xml:"head"`
	Body    body     `xml:"body"`
}

type head struct {
	Title string `xml:"title,omitempty"`
}

type body struct {
	Outlines []outline `xml:"outline"`
}

type outline struct {
	Text     string    `xml:"text,attr"`
	Title    string    `xml:"title,attr,omitempty"`
	Type     string    `xml:"type,attr,omitempty"`
	XMLURL   string    `xml:"xmlUrl,attr,omitempty"`
	HTMLURL  string    `xml:"htmlUrl,attr,omitempty"`
	Outlines []outline `xml:"outline,omitempty"`
}

func (o outline) name() string {
	return strings.TrimSpace(cmp.Or(o.Title, o.Text))
}

// Parse flattens every outline carrying an xmlUrl into a feed. A feed's
// folder is the nearest enclosing outline with a name; feeds outside any
// named group land in domain.DefaultFolder. Children of a feed outline are
// walked too, grouped under that feed's name.
func Parse(r io.Reader) ([]domain.Feed, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode opml: %w", err)
	}

	var feeds []domain.Feed

	var walk func(outlines []outline, folder string)
	walk = func(outlines []outline, folder string) {
		for _, o := range outlines {
			url := strings.TrimSpace(o.XMLURL)
			if url != "" {
				feeds = append(feeds, domain.Feed{
					URL:    url,
					Title:  cmp.Or(o.name(), url),
					Folder: cmp.Or(folder, domain.DefaultFolder),
				})
			}

			walk(o.Outlines, cmp.Or(o.name(), folder))
		}
	}
	walk(doc.Body.Outlines, "")

	return feeds, nil
}

// Export writes an OPML 2.0 document with one outline per folder, sorted by
// name. Feeds of domain.DefaultFolder are written at the top level.
func Export(title string, feeds []domain.Feed) ([]byte, error) {
	doc := document{
		Version: "2.0",
		Head:    head{Title: title},
	}

	byFolder := make(map[string][]outline)
	var root []outline

	for _, f := range feeds {
		o := outline{
			Text:   cmp.Or(f.Title, f.URL),
			Title:  cmp.Or(f.Title, f.URL),
			Type:   "rss",
			XMLURL: f.URL,
		}

		folder := f.FolderName()
		if folder == domain.DefaultFolder {
			root = append(root, o)
			continue
		}
		byFolder[folder] = append(byFolder[folder], o)
	}

	names := make([]string, 0, len(byFolder))
	for name := range byFolder {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		doc.Body.Outlines = append(doc.Body.Outlines, outline{
			Text:     name,
			Title:    name,
			Outlines: byFolder[name],
		})
	}
	doc.Body.Outlines = append(doc.Body.Outlines, root...)

	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode opml: %w", err)
	}

	return append([]byte(xml.Header), append(output, '\n')...), nil
}
