package export

import (
	"bytes"
	"html/template"
	"time"
)

var handoutTemplate = template.Must(template.New("handout").Funcs(template.FuncMap{
	"date": func(t time.Time) string { return t.Format("2006-01-02") },
}).Parse(handoutHTML))

// RenderHandoutHTML renders the printable page for a handout.
func RenderHandoutHTML(h Handout) (string, error) {
	var buf bytes.Buffer
	if err := handoutTemplate.Execute(&buf, h); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const handoutHTML = `<!DOCTYPE html>
<html lang="ko">
<head>
  <meta charset="UTF-8">
  <title>{{.Title}} | {{.SiteName}}</title>
  <style>
    @page { size: A4; margin: 18mm 16mm; }
    body { font-family: 'Noto Sans KR', 'Apple SD Gothic Neo', Arial, sans-serif; line-height: 1.7; color: #222; }
    header { border-bottom: 3px solid #f08c00; padding-bottom: 8px; margin-bottom: 20px; display: flex; justify-content: space-between; align-items: baseline; }
    header .site { font-weight: 700; color: #f08c00; }
    header .category { color: #666; font-size: 0.9em; }
    h1 { font-size: 1.7em; margin: 0 0 0.4em; }
    .summary { color: #555; font-size: 1.05em; margin-bottom: 1.5em; }
    .body img { max-width: 100%; }
    .body table { border-collapse: collapse; }
    .body td, .body th { border: 1px solid #ccc; padding: 4px 8px; }
    footer { margin-top: 2.5em; padding-top: 8px; border-top: 1px solid #ddd; font-size: 0.8em; color: #777; }
  </style>
</head>
<body>
  <header>
    <span class="site">{{.SiteName}}</span>
    {{if .Category}}<span class="category">{{.Category}}</span>{{end}}
  </header>
  <h1>{{.Title}}</h1>
  {{if .Summary}}<p class="summary">{{.Summary}}</p>{{end}}
  <div class="body">{{.BodyHTML}}</div>
  <footer>
    {{if not .UpdatedAt.IsZero}}Updated {{date .UpdatedAt}}. {{end}}
    {{if .SourceURL}}Online version: {{.SourceURL}}{{end}}
  </footer>
</body>
</html>`
