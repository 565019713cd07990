package render

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedsnap/internal/domain"
	"feedsnap/internal/reader"
)

func ptr(t time.Time) *time.Time { return &t }

//nolint:gochecknoglobals // Fixed clock for tests.
var testNow = time.Date(2024, 1, 2, 18, 30, 0, 0, time.UTC)

func testState() reader.State {
	s := reader.WithData(reader.NewState(),
		[]domain.Feed{
			{URL: "https://z.example/feed", Title: "zeta", Folder: "Tech"},
			{URL: "https://a.example/feed", Title: "Alpha", Folder: "Tech"},
			{URL: "https://n.example/feed", Title: "News"},
		},
		[]domain.Item{
			{
				ID:        "https://a.example/feed|1",
				FeedURL:   "https://a.example/feed",
				FeedTitle: "Alpha",
				Title:     "First <post>",
				Link:      "https://a.example/1",
				IsoDate:   ptr(time.Date(2024, 1, 2, 9, 5, 0, 0, time.UTC)),
				Snippet:   "hello",
				Content:   `<p onclick="x()">Body</p><script>alert(1)</script><a href="https://b.example">b</a>`,
			},
			{
				ID:        "https://n.example/feed|2",
				FeedURL:   "https://n.example/feed",
				FeedTitle: "News",
				IsoDate:   ptr(time.Date(2023, 12, 31, 9, 0, 0, 0, time.UTC)),
				Snippet:   "only a snippet",
			},
		},
		"Updated 2024-01-02 18:00:00",
	)
	s.Starred = reader.NewIDSet("https://n.example/feed|2", "stale")

	return s
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		name string
		in   *time.Time
		want string
	}{
		{"missing", nil, ""},
		{"zero", ptr(time.Time{}), ""},
		{"same day", ptr(time.Date(2024, 1, 2, 7, 4, 0, 0, time.UTC)), "07:04"},
		{"earlier day", ptr(time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)), "2024-01-01"},
		{"other zone same day", ptr(time.Date(2024, 1, 3, 1, 0, 0, 0, time.FixedZone("X", 3*3600))), "22:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDate(tt.in, testNow); got != tt.want {
				t.Fatalf("FormatDate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildSidebar(t *testing.T) {
	s := reader.SetFilter(testState(), reader.FilterFeed, "https://a.example/feed")

	vm := Build(s, testNow)

	require.Len(t, vm.Top, 2)
	assert.Equal(t, 2, vm.Top[0].Count)
	assert.False(t, vm.Top[0].Active)
	assert.Equal(t, 2, vm.Top[1].Count, "starred counts every stored id")

	require.Len(t, vm.Folders, 2)
	assert.Equal(t, "Tech", vm.Folders[0].Name)
	assert.Equal(t, domain.DefaultFolder, vm.Folders[1].Name)

	tech := vm.Folders[0].Feeds
	require.Len(t, tech, 2)
	assert.Equal(t, "Alpha", tech[0].Name)
	assert.True(t, tech[0].Active)
	assert.Equal(t, 1, tech[0].Count)
	assert.Equal(t, "zeta", tech[1].Name)
	assert.Equal(t, 0, tech[1].Count)
}

func TestBuildRowsAndReader(t *testing.T) {
	s := reader.Select(testState(), "https://a.example/feed|1")

	vm := Build(s, testNow)

	require.Len(t, vm.Rows, 2)
	assert.Equal(t, "09:05", vm.Rows[0].Date)
	assert.False(t, vm.Rows[0].Unread)
	assert.True(t, vm.Rows[0].Selected)
	assert.Equal(t, domain.PlaceholderTitle, vm.Rows[1].Title)
	assert.Equal(t, "2023-12-31", vm.Rows[1].Date)
	assert.True(t, vm.Rows[1].Starred)
	assert.True(t, vm.Rows[1].Unread)

	require.NotNil(t, vm.Reader)
	assert.Equal(t, LabelMarkUnread, vm.Reader.ReadLabel)
	assert.Equal(t, LabelStar, vm.Reader.StarLabel)

	s = reader.ToggleRead(reader.ToggleStar(s, s.SelectedID), s.SelectedID)
	vm = Build(s, testNow)
	assert.Equal(t, LabelMarkRead, vm.Reader.ReadLabel)
	assert.Equal(t, LabelUnstar, vm.Reader.StarLabel)
}

func TestBuildDefaultsForBadOptionalFields(t *testing.T) {
	body := `{"updatedAt":"2024-01-02T10:00:00Z","items":[` +
		`{"id":"a|1","feedUrl":"a","feedTitle":"A","isoDate":"2024-01-02","snippet":null},` +
		`{"id":"a|2","feedUrl":"a","feedTitle":"A","title":"Two","isoDate":"sometime"}]}`

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal([]byte(body), &snap))

	s := reader.Select(reader.WithData(reader.NewState(), nil, snap.Items, ""), "a|1")
	vm := Build(s, testNow)

	require.Len(t, vm.Rows, 2)
	assert.Equal(t, domain.PlaceholderTitle, vm.Rows[0].Title)
	assert.Empty(t, vm.Rows[0].Snippet)
	assert.Equal(t, "00:00", vm.Rows[0].Date)
	assert.Equal(t, "Two", vm.Rows[1].Title)
	assert.Empty(t, vm.Rows[1].Date)

	require.NotNil(t, vm.Reader)
	assert.Equal(t, domain.PlaceholderTitle, vm.Reader.Title)
}

func TestBuildIsDeterministic(t *testing.T) {
	s := testState()

	assert.Equal(t, Build(s, testNow), Build(s, testNow))
}

func TestBuildStaleSelection(t *testing.T) {
	s := testState()
	s.SelectedID = "gone"

	vm := Build(s, testNow)

	assert.Nil(t, vm.Reader)
}

func TestHTMLPlaceholders(t *testing.T) {
	s := reader.SetFilter(testState(), reader.FilterStarred, "")
	s = reader.SetSearch(s, "nothing matches this")

	v, err := HTML(Build(s, testNow))
	require.NoError(t, err)

	assert.Contains(t, string(v.List), EmptyList)
	assert.Contains(t, string(v.Reader), ReaderPlaceholder)
	assert.Contains(t, string(v.Sidebar), `class="feed-item active" data-type="starred"`)
}

func TestHTMLEscapesAndSanitizes(t *testing.T) {
	s := reader.Select(testState(), "https://a.example/feed|1")

	v, err := HTML(Build(s, testNow))
	require.NoError(t, err)

	list := string(v.List)
	assert.Contains(t, list, "First &lt;post&gt;")
	assert.Contains(t, list, `class="item selected"`)
	assert.Contains(t, list, `class="item unread"`)

	r := string(v.Reader)
	assert.Contains(t, r, "Mark unread (m)")
	assert.Contains(t, r, "Star (s)")
	assert.Contains(t, r, "<p>Body</p>")
	assert.NotContains(t, r, "<script")
	assert.NotContains(t, r, "onclick")
	assert.Contains(t, r, `<a href="https://b.example" target="_blank" rel="noopener">b</a>`)
}

func TestHTMLFallsBackToSnippet(t *testing.T) {
	s := reader.Select(testState(), "https://n.example/feed|2")

	v, err := HTML(Build(s, testNow))
	require.NoError(t, err)

	assert.Contains(t, string(v.Reader), "<p>only a snippet</p>")
	assert.Contains(t, string(v.Reader), "Unstar (s)")
}

func TestSanitizeContent(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		notWant string
	}{
		{"empty", "  ", "", ""},
		{"iframe", `<p>a</p><iframe src="https://x"></iframe>`, "<p>a</p>", "iframe"},
		{"style", `<style>p{}</style><p>a</p>`, "<p>a</p>", "style"},
		{"javascript href", `<a href="javascript:alert(1)">x</a>`, `<a>x</a>`, "javascript"},
		{"event handler", `<img src="i.png" onerror="x()"/>`, `<img src="i.png"/>`, "onerror"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeContent(tt.in)
			if err != nil {
				t.Fatalf("SanitizeContent() error = %v", err)
			}
			if !strings.Contains(string(got), tt.want) {
				t.Fatalf("SanitizeContent() = %q, want to contain %q", got, tt.want)
			}
			if tt.notWant != "" && strings.Contains(string(got), tt.notWant) {
				t.Fatalf("SanitizeContent() = %q, must not contain %q", got, tt.notWant)
			}
		})
	}
}

func TestPage(t *testing.T) {
	s := reader.ToggleTheme(testState())

	page, err := Page(Build(s, testNow))
	require.NoError(t, err)

	assert.Contains(t, string(page), `data-theme="dark"`)
	assert.Contains(t, string(page), "Updated 2024-01-02 18:00:00")
}

func TestText(t *testing.T) {
	s := reader.Select(testState(), "https://a.example/feed|1")

	out := Text(Build(s, testNow), 100)

	assert.Contains(t, out, "Updated 2024-01-02 18:00:00")
	assert.Contains(t, out, "All")
	assert.Contains(t, out, "Starred")
	assert.Contains(t, out, "Tech")
	assert.Contains(t, out, "> 1. First <post>")
	assert.Contains(t, out, "* 2. (no title)")
	assert.Contains(t, out, "Mark unread")
	assert.Contains(t, out, "Body")
	assert.NotContains(t, out, "alert(1)")
}

func TestTextPlaceholders(t *testing.T) {
	s := reader.SetFilter(testState(), reader.FilterFeed, "https://z.example/feed")

	out := Text(Build(s, testNow), 10)

	assert.Contains(t, out, EmptyList)
	assert.Contains(t, out, ReaderPlaceholder)
}
