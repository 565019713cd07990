package opml_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedsnap/internal/domain"
	"feedsnap/internal/opml"
)

const nested = `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
  <head><title>Subs</title></head>
  <body>
    <outline text="Loose" xmlUrl="https://loose.example/rss"/>
    <outline text="Tech" title="Tech">
      <outline title="Go Blog" text="ignored" xmlUrl="https://go.dev/blog/feed.atom"/>
      <outline text="Deep">
        <outline text="Deep Feed" xmlUrl="https://deep.example/rss"/>
      </outline>
      <outline>
        <outline xmlUrl="https://nameless.example/rss"/>
      </outline>
    </outline>
  </body>
</opml>`

func TestParse(t *testing.T) {
	feeds, err := opml.Parse(strings.NewReader(nested))
	require.NoError(t, err)

	assert.Equal(t, []domain.Feed{
		{URL: "https://loose.example/rss", Title: "Loose", Folder: domain.DefaultFolder},
		{URL: "https://go.dev/blog/feed.atom", Title: "Go Blog", Folder: "Tech"},
		{URL: "https://deep.example/rss", Title: "Deep Feed", Folder: "Deep"},
		{URL: "https://nameless.example/rss", Title: "https://nameless.example/rss", Folder: "Tech"},
	}, feeds)
}

func TestParseWalksChildrenOfFeedOutlines(t *testing.T) {
	doc := `<opml version="2.0"><body>
  <outline text="Parent" xmlUrl="https://parent.example/rss">
    <outline text="Child" xmlUrl="https://child.example/rss"/>
  </outline>
</body></opml>`

	feeds, err := opml.Parse(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, []domain.Feed{
		{URL: "https://parent.example/rss", Title: "Parent", Folder: domain.DefaultFolder},
		{URL: "https://child.example/rss", Title: "Child", Folder: "Parent"},
	}, feeds)
}

func TestParseInvalid(t *testing.T) {
	_, err := opml.Parse(strings.NewReader("<opml><body>"))
	if err == nil {
		t.Fatalf("Parse() error = nil, want error")
	}
}

func TestExportRoundTrip(t *testing.T) {
	feeds := []domain.Feed{
		{URL: "https://n.example/rss", Title: "News", Folder: domain.DefaultFolder},
		{URL: "https://z.example/rss", Title: "Zed", Folder: "Zeta"},
		{URL: "https://a.example/rss", Title: "Ay", Folder: "Alpha"},
		{URL: "https://b.example/rss", Folder: "Alpha"},
	}

	out, err := opml.Export("feedsnap", feeds)
	require.NoError(t, err)

	text := string(out)
	assert.True(t, strings.HasPrefix(text, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, text, `<opml version="2.0">`)
	assert.Less(t, strings.Index(text, `text="Alpha"`), strings.Index(text, `text="Zeta"`))
	assert.Less(t, strings.Index(text, `text="Zeta"`), strings.Index(text, `text="News"`))

	parsed, err := opml.Parse(bytes.NewReader(out))
	require.NoError(t, err)

	assert.ElementsMatch(t, []domain.Feed{
		{URL: "https://n.example/rss", Title: "News", Folder: domain.DefaultFolder},
		{URL: "https://z.example/rss", Title: "Zed", Folder: "Zeta"},
		{URL: "https://a.example/rss", Title: "Ay", Folder: "Alpha"},
		{URL: "https://b.example/rss", Title: "https://b.example/rss", Folder: "Alpha"},
	}, parsed)
}
