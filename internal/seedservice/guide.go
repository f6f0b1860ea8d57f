package seedservice

import (
	"bytes"
	"text/template"

	"github.com/starford/seedbank/internal/models"
)

// GuideFile returns the file name an application guide is persisted under.
func GuideFile(seedID string) string {
	return "seed-" + seedID + "-applied.md"
}

var guideTmpl = template.Must(template.New("guide").Parse(`
# Applying Seed: {{ .ID }}

---

{{ .Content }}

---

## Application Checklist

Review the "Checks" section in the seed above and validate each one.

## Next Steps

1. **Review the pattern** - Understand the core pattern and why it matters
2. **Check the trigger** - Confirm this seed is relevant to your current task
3. **Apply the pattern** - Follow the "Dojo Application" section
4. **Validate with checks** - Ensure all checks pass
5. **Note what it refuses** - Avoid the anti-patterns

## Track Effectiveness

After applying this seed, rate its effectiveness:
` + "```bash" + `
{{ .TrackCommand }}
` + "```" + `

`))

func renderGuide(seed *models.Seed, trackCommand string) (string, error) {
	var buf bytes.Buffer
	err := guideTmpl.Execute(&buf, struct {
		ID           string
		Content      string
		TrackCommand string
	}{
		ID:           seed.ID,
		Content:      string(seed.Content),
		TrackCommand: trackCommand,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
