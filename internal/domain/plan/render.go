package plan

import (
	"bufio"
	"fmt"
	"strings"
	"text/template"

	"github.com/abdidvp/apiweave/internal/domain"
)

const markdownTemplate = `# {{ oneline .Name }}

## Summary
- Direction: ` + "`{{ .Summary.Direction }}`" + `
- Trigger: ` + "`{{ .Summary.Trigger }}`" + `
{{- with .Summary.Goal }}
- Goal: ` + "`{{ . }}`" + `
{{- end }}
- Confidence threshold: {{ conf .Threshold }}
- Flow steps: {{ .Summary.FlowCount }}
- Backlog entries: {{ .Summary.BacklogCount }}
- Overrides: {{ .Summary.OverrideCount }}
- Digest: ` + "`{{ .Digest }}`" + `

## Flow Steps
{{- range $i, $s := .FlowSteps }}

### Step {{ inc $i }}: {{ $s.EntityPair }}
- Confidence: {{ conf $s.Confidence }}{{ if $s.Overridden }} (override){{ end }}
- Ownership: side {{ $s.Ownership }}
- Retry: {{ $s.ErrorRetry.MaxAttempts }} attempt(s), {{ $s.ErrorRetry.Backoff }} backoff{{ with $s.ErrorRetry.Strategy }}, {{ . }}{{ end }}
- Auth: source ` + "`{{ oneline $s.AuthStrategy.Source }}`" + `, target ` + "`{{ oneline $s.AuthStrategy.Target }}`" + `
{{- with $s.ConflictStrategy }}
- Conflict strategy: {{ . }}
{{- end }}
- Idempotent writes: {{ if $s.IdempotencyRequired }}required{{ else }}not required{{ end }}
- Observability: {{ range $j, $m := $s.Observability.Metrics }}{{ if $j }}, {{ end }}` + "`{{ $m }}`" + `{{ end }}{{ with $s.Observability.Owner }}; owner {{ oneline . }}{{ end }}
- Runbook:
{{- range $j, $r := $s.Steps }}
  {{ inc $j }}. {{ oneline $r }}
{{- end }}
- Transformations:
{{- range $s.Transformations }}
  - ` + "`{{ .SourceField }}` -> `{{ .TargetField }}`" + ` ({{ .Kind }}, {{ conf .Confidence }}){{ with .Note }}: {{ oneline . }}{{ end }}
{{- else }}
  - none
{{- end }}
{{- else }}

_No flow steps._
{{- end }}

## Backlog
{{ range .Backlog }}
- [{{ bracketed .EntityPair }}] {{ oneline .Reason }}. Suggested: {{ oneline .SuggestedAction }}
{{- else }}
_Nothing in the backlog._
{{- end }}

## Risks
{{ range .Risks }}
- {{ oneline . }}
{{- end }}
{{- with .ImplementationTasks }}

## Implementation Tasks
{{ range $i, $t := . }}
{{ inc $i }}. {{ oneline $t }}
{{- end }}
{{- end }}
`

var markdown = template.Must(template.New("plan").Funcs(template.FuncMap{
	"conf":      func(c float64) string { return fmt.Sprintf("%.2f", c) },
	"inc":       func(i int) int { return i + 1 },
	"bracketed": escapeBracketed,
	"oneline":   oneline,
}).Parse(markdownTemplate))

// RenderMarkdown renders the human-readable summary strictly from the
// structured plan.
func RenderMarkdown(p domain.IntegrationPlan) (string, error) {
	var b strings.Builder
	if err := markdown.Execute(&b, p); err != nil {
		return "", fmt.Errorf("rendering plan: %w", err)
	}
	return b.String(), nil
}

// Enumeration lists the flow steps and backlog entries a rendering mentions.
type Enumeration struct {
	FlowSteps []string
	Backlog   []string
}

// Enumerate reads flow step and backlog entity pairs back out of a rendered
// plan, in document order.
func Enumerate(md string) Enumeration {
	var e Enumeration
	section := ""
	sc := bufio.NewScanner(strings.NewReader(md))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "## "):
			section = strings.TrimPrefix(line, "## ")
		case section == "Flow Steps" && strings.HasPrefix(line, "### Step "):
			if i := strings.Index(line, ": "); i >= 0 {
				e.FlowSteps = append(e.FlowSteps, line[i+2:])
			}
		case section == "Backlog" && strings.HasPrefix(line, "- ["):
			if pair, ok := unescapeBracketed(line[3:]); ok {
				e.Backlog = append(e.Backlog, pair)
			}
		}
	}
	return e
}

// oneline collapses runs of whitespace, line breaks included, so free text
// cannot start a heading or list item of its own.
func oneline(s string) string { return strings.Join(strings.Fields(s), " ") }

var bracketEscaper = strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`)

// escapeBracketed backslash-escapes s for use inside [...] in markdown.
func escapeBracketed(s string) string { return bracketEscaper.Replace(s) }

// unescapeBracketed reads up to the first unescaped "]" and returns the
// unescaped text before it.
func unescapeBracketed(s string) (string, bool) {
	var b strings.Builder
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ']':
			return b.String(), true
		default:
			b.WriteRune(r)
		}
	}
	return "", false
}

// Pairs lists the flow step and backlog entity pairs of a structured plan in
// the same form Enumerate returns.
func Pairs(p domain.IntegrationPlan) Enumeration {
	var e Enumeration
	for _, s := range p.FlowSteps {
		e.FlowSteps = append(e.FlowSteps, s.EntityPair)
	}
	for _, b := range p.Backlog {
		e.Backlog = append(e.Backlog, b.EntityPair)
	}
	return e
}
