package suggest

import (
	"bytes"
	"strings"
	"text/template"
	"time"

	"github.com/starford/seedbank/internal/models"
)

// ReportFile is the file name the suggestion report is persisted under.
const ReportFile = "seed-suggestions.md"

// Report is the input to RenderReport.
type Report struct {
	Keywords    []string
	Generated   time.Time
	Suggestions []models.Suggestion
	// Available is listed when nothing matched.
	Available []string
	// ApplyCommand is the command line shown in the "How to Apply" section.
	ApplyCommand string
}

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`# Seed Suggestions

**Keywords:** {{ join .Keywords ", " }}
**Generated:** {{ .Generated.Format "2006-01-02 15:04:05" }}

{{ if .Suggestions -}}
## Recommended Seeds

{{ range .Suggestions -}}
### {{ .Rank }}. {{ .Name }} (Seed {{ .Number }})

- **Relevance Score:** {{ .Score }}
{{- if .File }}
- **File:** ` + "`{{ .File }}`" + `
{{- end }}

{{ if .Preview -}}
**What It Is:** {{ .Preview }}...

{{ end -}}
{{ end }}
## How to Apply

To apply a seed, run:
` + "```bash" + `
{{ .ApplyCommand }}
` + "```" + `
{{ else -}}
No relevant seeds found for these keywords.

**Available seeds:**
{{ range .Available -}}
- {{ . }}
{{ end -}}
{{ end -}}
`))

// RenderReport renders the Markdown suggestion report.
func RenderReport(r Report) (string, error) {
	if r.ApplyCommand == "" {
		r.ApplyCommand = "seedbank apply <seed_id> [session_id]"
	}
	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}
