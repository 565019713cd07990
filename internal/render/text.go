package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"feedsnap/internal/reader"
)

const minTextWidth = 40

type palette struct {
	primary lipgloss.Color
	text    lipgloss.Color
	dim     lipgloss.Color
	accent  lipgloss.Color
	green   lipgloss.Color
	border  lipgloss.Color
}

//nolint:gochecknoglobals // Lookup table meant to be immutable.
var (
	lightPalette = palette{
		primary: "#5A56E0",
		text:    "#3D3D3D",
		dim:     "#9B9B9B",
		accent:  "#F25D94",
		green:   "#04B575",
		border:  "#DBDBDB",
	}
	darkPalette = palette{
		primary: "#7571F9",
		text:    "#ABABAB",
		dim:     "#626262",
		accent:  "#F25D94",
		green:   "#25D366",
		border:  "#383838",
	}
)

type styles struct {
	status    lipgloss.Style
	section   lipgloss.Style
	entry     lipgloss.Style
	active    lipgloss.Style
	badge     lipgloss.Style
	pane      lipgloss.Style
	unread    lipgloss.Style
	read      lipgloss.Style
	selected  lipgloss.Style
	meta      lipgloss.Style
	title     lipgloss.Style
	body      lipgloss.Style
	link      lipgloss.Style
	empty     lipgloss.Style
	actionKey lipgloss.Style
}

func newStyles(theme string) styles {
	p := lightPalette
	if theme == reader.ThemeDark {
		p = darkPalette
	}

	return styles{
		status:    lipgloss.NewStyle().Foreground(p.dim).Italic(true),
		section:   lipgloss.NewStyle().Foreground(p.dim).Bold(true).MarginTop(1),
		entry:     lipgloss.NewStyle().Foreground(p.text).PaddingLeft(2),
		active:    lipgloss.NewStyle().Foreground(p.accent).Bold(true).PaddingLeft(2),
		badge:     lipgloss.NewStyle().Foreground(p.green),
		pane:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.border).Padding(0, 1),
		unread:    lipgloss.NewStyle().Foreground(p.primary).Bold(true),
		read:      lipgloss.NewStyle().Foreground(p.text),
		selected:  lipgloss.NewStyle().Foreground(p.accent).Bold(true),
		meta:      lipgloss.NewStyle().Foreground(p.dim),
		title:     lipgloss.NewStyle().Foreground(p.primary).Bold(true).MarginBottom(1),
		body:      lipgloss.NewStyle().Foreground(p.text),
		link:      lipgloss.NewStyle().Foreground(p.dim).Italic(true).MarginTop(1),
		empty:     lipgloss.NewStyle().Foreground(p.dim).Italic(true),
		actionKey: lipgloss.NewStyle().Foreground(p.accent),
	}
}

// Text renders the view model for a terminal of the given width: status,
// sidebar, item list and the reader pane stacked vertically.
func Text(vm ViewModel, width int) string {
	width = max(width, minTextWidth)
	st := newStyles(vm.Theme)
	inner := width - st.pane.GetHorizontalFrameSize()

	parts := []string{st.status.Render(vm.Status)}
	if vm.Search != "" {
		parts = append(parts, st.meta.Render("Search: "+vm.Search))
	}

	parts = append(parts,
		st.pane.Width(inner).Render(textSidebar(vm, st)),
		st.pane.Width(inner).Render(textList(vm, st, inner)),
		st.pane.Width(inner).Render(textReader(vm, st, inner)),
	)

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func textSidebar(vm ViewModel, st styles) string {
	lines := make([]string, 0, len(vm.Top)+len(vm.Folders))
	for _, e := range vm.Top {
		lines = append(lines, textEntry(e, st))
	}

	for _, f := range vm.Folders {
		header := f.Name
		if f.Count > 0 {
			header += " " + strconv.Itoa(f.Count)
		}
		if f.Active {
			header = "> " + header
		}
		lines = append(lines, st.section.Render(header))

		for _, e := range f.Feeds {
			lines = append(lines, textEntry(e, st))
		}
	}

	return strings.Join(lines, "\n")
}

func textEntry(e SidebarEntry, st styles) string {
	name := e.Name
	style := st.entry
	if e.Active {
		name = "> " + name
		style = st.active
	}

	line := style.Render(name)
	if e.Count > 0 {
		line += " " + st.badge.Render(strconv.Itoa(e.Count))
	}

	return line
}

func textList(vm ViewModel, st styles, width int) string {
	if len(vm.Rows) == 0 {
		return st.empty.Render(EmptyList)
	}

	lines := make([]string, 0, len(vm.Rows)*2)
	for _, r := range vm.Rows {
		marker := "  "
		style := st.read
		switch {
		case r.Selected:
			marker = "> "
			style = st.selected
		case r.Unread:
			marker = "* "
			style = st.unread
		}

		title := fmt.Sprintf("%s%d. %s", marker, r.Position, r.Title)
		lines = append(lines, style.Render(truncate(title, width)))

		meta := r.FeedTitle
		if r.Date != "" {
			meta += " · " + r.Date
		}
		if r.Starred {
			meta += " ★"
		}
		lines = append(lines, st.meta.Render(truncate("   "+meta, width)))
	}

	return strings.Join(lines, "\n")
}

func textReader(vm ViewModel, st styles, width int) string {
	a := vm.Reader
	if a == nil {
		return st.empty.Render(ReaderPlaceholder)
	}

	body := plainContent(a.Content)
	if body == "" {
		body = a.Snippet
	}

	actions := fmt.Sprintf("%s %s   %s %s",
		st.actionKey.Render("[m]"), a.ReadLabel,
		st.actionKey.Render("[s]"), a.StarLabel)

	return lipgloss.JoinVertical(lipgloss.Left,
		st.meta.Render(a.FeedTitle+" • "+a.Date),
		st.title.Width(width).Render(a.Title),
		actions,
		"",
		st.body.Width(width).Render(body),
		st.link.Width(width).Render(a.Link),
	)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}

	return string(runes[:n-3]) + "..."
}
