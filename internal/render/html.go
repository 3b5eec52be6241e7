package render

import (
	"html/template"
	"io"
)

const cardsTemplate = `
{{- define "cards" -}}
<div class="items-grid" data-category="{{.Category}}" data-count="{{.Count}}">
{{- if eq .Count 0}}
<p class="empty-message">{{.Empty}}</p>
{{- else}}{{range .Cards}}
{{if .Href}}<a class="item-link" href="{{.Href}}" target="_blank" rel="noopener noreferrer">{{end -}}
<div class="item-card" data-title="{{.Title}}">
<div class="item-header">
<div class="item-title">{{.Title}}</div>
{{- with .Rating}}
<div class="item-rating {{.Class}}">{{.Value}}</div>
{{- end}}
{{- with .StatusDot}}
<span class="status-dot status-{{.}}"></span>
{{- end}}
</div>
<img class="item-cover" src="{{coverURL .Cover}}" alt="{{.Title}} cover" loading="lazy" onerror="this.onerror=null;this.src={{.Fallback}}">
<div class="item-info">
{{- with .Details}}
<div class="item-details">{{.}}</div>
{{- end}}
{{- with .Author}}
<div class="item-author">{{.}}</div>
{{- end}}
{{- with .Seasons}}
<div class="item-seasons">{{.}}</div>
{{- end}}
{{- with .Date}}
<div class="item-date">{{.}}</div>
{{- end}}
</div>
</div>
{{- if .Href}}</a>{{end}}
{{- end}}{{end}}
</div>
{{- end -}}

{{- define "failure" -}}
<div class="items-grid" data-count="0">
<p class="load-error">{{.}}</p>
</div>
{{- end -}}
`

var tmpl = template.Must(template.New("render").Funcs(template.FuncMap{
	// The placeholder is a data: URL, which the template engine would otherwise reject.
	"coverURL": func(s string) any {
		if s == PlaceholderImage {
			return template.URL(s) //nolint:gosec // constant
		}
		return s
	},
}).Parse(cardsTemplate))

// HTML writes the card grid fragment. All item text is escaped.
func HTML(w io.Writer, list CardList) error {
	return tmpl.ExecuteTemplate(w, "cards", list)
}

// FailureHTML writes the fragment shown in place of the grid after a failed load.
func FailureHTML(w io.Writer, msg string) error {
	return tmpl.ExecuteTemplate(w, "failure", msg)
}
