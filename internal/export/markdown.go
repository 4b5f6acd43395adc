package export

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
	"time"

	"github.com/kevinreber/siphon/internal/analysis"
)

//go:embed templates
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"day":   func(t time.Time) string { return t.Format("2006-01-02") },
	"clock": func(t time.Time) string { return t.Format("15:04") },
	"inc":   func(i int) int { return i + 1 },
	"deref": func(p *int) int {
		if p == nil {
			return 0
		}
		return *p
	},
}

var templates = template.Must(
	template.New("export").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.tmpl"))

func renderMarkdown(result *analysis.AnalysisResult) ([]byte, error) {
	return renderTemplate("report.md.tmpl", result)
}

func renderNotion(result *analysis.AnalysisResult) ([]byte, error) {
	return renderTemplate("notion.md.tmpl", result)
}

func renderTemplate(name string, result *analysis.AnalysisResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, result); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
