package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/charmbracelet/glamour"
)

// DefaultFilename is where the run command writes the report.
const DefaultFilename = "manufacturing_report.md"

var funcs = template.FuncMap{
	"percent": func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
	"seconds": func(v int) string { return fmt.Sprintf("%ds", v) },
	"mm":      func(v float64) string { return fmt.Sprintf("%.3fmm", v) },
	"verdict": func(ok bool) string {
		if ok {
			return "PASS"
		}
		return "FAIL"
	},
	"avg":  func(v float64) string { return fmt.Sprintf("%.1fs", v) },
	"join": strings.Join,
	"timestamp": func(s Summary) string {
		if s.FinishedAt.IsZero() {
			return "n/a"
		}
		return s.FinishedAt.UTC().Format("2006-01-02 15:04:05 MST")
	},
}

var reportTemplate = template.Must(template.New("report").Funcs(funcs).Parse(`# Manufacturing Report: {{.Scenario}}

- Run ID: ` + "`{{.RunID}}`" + `
- Status: **{{.Status}}**
- Finished: {{timestamp .}}
{{- if .Error}}
- Error: {{.Error}}
{{- end}}

## Production Metrics

| Metric | Value |
|---|---|
| Units completed | {{.CompletedUnits}} / {{.TotalUnits}} |
| Success rate | {{percent .SuccessRate}} |
| Quality pass rate | {{percent .QualityPassRate}} |
| Disruption recovery rate | {{percent .DisruptionRecoveryRate}} |
| Disruptions handled | {{.DisruptionsHandled}} / {{.TotalDisruptions}} |
| Cumulative delay | {{seconds .CumulativeDelaySeconds}} |
| Simulated time | {{seconds .SimulatedSeconds}} |

## Completed Units
{{if .Units}}
| Unit | Product | Equipment | Quality | Deviation | Cycle | Delay |
|---|---|---|---|---|---|---|
{{- range .Units}}
| {{.UnitID}} | {{.Product}} | {{.Equipment}} | {{verdict .QualityPassed}} | {{mm .DeviationMM}} | {{seconds .CycleSeconds}} | {{seconds .DelaySeconds}} |
{{- end}}
{{else}}
No units were completed.
{{end}}
## Disruptions Handled
{{if .Disruptions}}
{{- range .Disruptions}}
- Unit {{.UnitID}}: {{.Kind}} on {{.Subject}}{{if .Severity}} ({{.Severity}}){{end}} -> ` + "`{{.ActionTaken}}`" + ` (+{{seconds .DelaySeconds}})
{{- end}}
{{else}}
No disruptions occurred.
{{end}}
{{- if .Incidents}}
## Safety Incidents
{{range .Incidents}}
- Unit {{.UnitID}}: {{.Kind}} at {{.Location}}{{if .Reason}}: {{.Reason}}{{end}} ({{seconds .DelaySeconds}} stop)
{{- end}}
{{end}}
{{- if .Changeovers}}
## Changeovers
{{range .Changeovers}}
- Before unit {{.BeforeUnitID}}: {{.From}} -> {{.To}}{{if .ToolsAdded}}, mount {{join .ToolsAdded ", "}}{{end}}{{if .ToolsRemoved}}, remove {{join .ToolsRemoved ", "}}{{end}} ({{seconds .Seconds}})
{{- end}}
{{end}}
{{- if .Batches}}
## Batch Analysis

| Product | Units | Passed | Avg cycle | Target | Within target |
|---|---|---|---|---|---|
{{- range .Batches}}
| {{.Product}} | {{.Units}} | {{.Passed}} | {{avg .AvgCycleSeconds}} | {{seconds .TargetCycleSeconds}} | {{if .WithinTarget}}yes{{else}}no{{end}} |
{{- end}}
{{end}}
## Equipment

| Equipment | Units | Status |
|---|---|---|
{{- range .Utilization}}
| {{.Equipment}} | {{.Units}} | {{.Status}} |
{{- end}}

## Maintenance Outlook

| Equipment | Cycles | Threshold | Remaining | Urgency |
|---|---|---|---|---|
{{- range .Maintenance}}
| {{.Equipment}} | {{.CyclesCompleted}} | {{.Threshold}} | {{.Remaining}} | {{.Urgency}} |
{{- end}}

## Recommendations
{{range .Recommendations}}
- {{.}}
{{- end}}
`))

// Render writes the markdown report for s to w.
func Render(w io.Writer, s Summary) error {
	if err := reportTemplate.Execute(w, s); err != nil {
		return fmt.Errorf("report: render: %w", err)
	}
	return nil
}

// Markdown renders s into a string.
func Markdown(s Summary) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, s); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteFile renders s to path, creating parent directories.
func WriteFile(path string, s Summary) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("report: create dir: %w", err)
		}
	}
	md, err := Markdown(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(md), 0644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}

// Pretty renders markdown for a terminal of the given width.
func Pretty(markdown string, width int) (string, error) {
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("report: terminal renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("report: terminal render: %w", err)
	}
	return out, nil
}
