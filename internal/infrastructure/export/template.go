package export

import (
	"bytes"
	"html/template"
)

var orderListTemplate = template.Must(template.New("orders").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}" dir="{{.Dir}}">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
body { font-family: "Noto Sans Arabic", "Segoe UI", sans-serif; font-size: 11px; color: #1f2937; }
h1 { font-size: 16px; margin: 0 0 8px; }
.meta { color: #6b7280; margin-bottom: 8px; }
.filters { margin-bottom: 10px; }
.filters span { display: inline-block; margin-inline-end: 12px; }
table { width: 100%; border-collapse: collapse; }
th { background: #b45309; color: #fff; padding: 4px; }
td { border: 1px solid #d1d5db; padding: 4px; vertical-align: top; }
tr:nth-child(even) td { background: #fef3c7; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="meta">{{.GeneratedBy}} · {{.GeneratedAt.Format "2006-01-02 15:04"}}</div>
{{if .Filters}}<div class="filters">{{range .Filters}}<span><strong>{{.Label}}:</strong> {{.Value}}</span>{{end}}</div>{{end}}
<table>
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range .Cells}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
</body>
</html>
`))

// RenderHTML renders the document as a standalone HTML page
func RenderHTML(doc Document) (string, error) {
	var buf bytes.Buffer
	if err := orderListTemplate.Execute(&buf, doc); err != nil {
		return "", NewError(ErrCodeRenderFailed, "render HTML", err)
	}
	return buf.String(), nil
}
