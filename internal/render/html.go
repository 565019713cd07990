package render

import (
	"bytes"
	"fmt"
	"html/template"
)

//nolint:gochecknoglobals // Parsed once, read-only.
var views = template.Must(template.New("views").Parse(`
{{- define "entry" -}}
<div class="feed-item{{if .Active}} active{{end}}" data-type="{{.Type}}" data-value="{{.Value}}">
  <div class="feed-name">{{.Name}}</div>
  <div class="feed-count">{{if gt .Count 0}}<span class="badge">{{.Count}}</span>{{end}}</div>
</div>
{{- end -}}

{{- define "sidebar" -}}
{{range .Top}}{{template "entry" .}}
{{end -}}
{{range .Folders}}<div class="section-title{{if .Active}} active{{end}}" data-type="{{.Type}}" data-value="{{.Value}}">{{.Name}}</div>
{{range .Feeds}}{{template "entry" .}}
{{end}}{{end -}}
{{- end -}}

{{- define "list" -}}
{{range .Rows -}}
<div class="item{{if .Unread}} unread{{end}}{{if .Selected}} selected{{end}}" data-id="{{.ID}}">
  <div class="title">{{.Title}}</div>
  <div class="snippet">{{.Snippet}}</div>
  <div class="meta">
    <span>{{.FeedTitle}}</span>
    <span>•</span>
    <span>{{.Date}}</span>
    {{- if .Starred}}
    <span class="badge">★</span>{{end}}
  </div>
</div>
{{else -}}
<div class="item"><div class="snippet">No items match.</div></div>
{{end -}}
{{- end -}}

{{- define "reader" -}}
{{with .Article -}}
<div class="meta">{{.FeedTitle}} • {{.Date}}</div>
<h1>{{.Title}}</h1>
<div class="reader-actions">
  <a class="btn" href="{{.Link}}" target="_blank" rel="noopener">Open original</a>
  <button id="toggle-read" class="btn" data-id="{{.ID}}">{{.ReadLabel}} (m)</button>
  <button id="toggle-star" class="btn" data-id="{{.ID}}">{{.StarLabel}} (s)</button>
</div>
<div class="content">{{if $.Content}}{{$.Content}}{{else}}<p>{{.Snippet}}</p>{{end}}</div>
{{- else -}}
<div class="empty">Select an article</div>
{{- end -}}
{{- end -}}

{{- define "page" -}}
<!doctype html>
<html lang="en"{{if eq .VM.Theme "dark"}} data-theme="dark"{{end}}>
<head>
<meta charset="utf-8">
<title>feedsnap</title>
</head>
<body>
<div id="status">{{.VM.Status}}</div>
<nav id="feed-list">
{{.Views.Sidebar}}
</nav>
<section id="item-list">
{{.Views.List}}
</section>
<article id="reader">
{{.Views.Reader}}
</article>
</body>
</html>
{{end -}}
`))

// Views holds the markup of the three panes.
type Views struct {
	Sidebar template.HTML
	List    template.HTML
	Reader  template.HTML
}

type readerData struct {
	Article *Article
	Content template.HTML
}

func HTML(vm ViewModel) (Views, error) {
	sidebar, err := execute("sidebar", vm)
	if err != nil {
		return Views{}, err
	}

	list, err := execute("list", vm)
	if err != nil {
		return Views{}, err
	}

	data := readerData{Article: vm.Reader}
	if vm.Reader != nil {
		data.Content, err = SanitizeContent(vm.Reader.Content)
		if err != nil {
			return Views{}, err
		}
	}

	readerPane, err := execute("reader", data)
	if err != nil {
		return Views{}, err
	}

	return Views{Sidebar: sidebar, List: list, Reader: readerPane}, nil
}

// Page renders a standalone document of the three panes.
func Page(vm ViewModel) ([]byte, error) {
	v, err := HTML(vm)
	if err != nil {
		return nil, err
	}

	out, err := execute("page", struct {
		VM    ViewModel
		Views Views
	}{VM: vm, Views: v})
	if err != nil {
		return nil, err
	}

	return []byte(out), nil
}

func execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := views.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute %s template: %w", name, err)
	}

	return template.HTML(buf.String()), nil //nolint:gosec // template output is escaped
}
