package console

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

var templateFuncs = sprig.TxtFuncMap()

// ExpandTemplate expands tmplStr against data.
func ExpandTemplate(tmplStr string, data any) (string, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}

	return buf.String(), nil
}

const statusTemplate = `Room {{ .Room | default "unknown" }}: you are a {{ .Role }}.
{{ .Seekers }} of {{ .Participants }} participants are seeking.
{{- if not .Released }}
Seekers have not been released yet.
{{- end }}
Holding: {{ .Held | default "nothing" }}
{{- with .PowerUp }}
A power-up is waiting at {{ printf "%.5f, %.5f" .Lat .Long }}.
{{- end }}
{{- if .Reveals }}
Last seen:
{{- range .Reveals }}
  {{ .Who | trunc 8 }} at {{ printf "%.5f, %.5f" .Lat .Long }}, {{ .Ago }} ago
{{- end }}
{{- end }}
{{- if .Ended }}
The session is over.{{ if gt .PendingReports 0 }} Waiting on {{ .PendingReports }} {{ if eq .PendingReports 1 }}report{{ else }}reports{{ end }}.{{ end }}
{{- end }}
`
