package reporting

import (
	"fmt"
	"html"
	"os"
	"path/filepath"

	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/rules"
)

// WriteHTML writes a single-page overview: utility counts, findings and skips.
func WriteHTML(runID, outDir string, run *ir.Run) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(outDir, runID+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sum := Summarize(run)
	esc := html.EscapeString

	fmt.Fprintf(f, "<!doctype html><html><head><meta charset='utf-8'><title>%s</title>", esc(runID))
	fmt.Fprint(f, "<style>body{font-family:system-ui,Arial,sans-serif;padding:20px;line-height:1.4} table{border-collapse:collapse;margin:8px 0} td,th{border:1px solid #ddd;padding:6px;vertical-align:top} h1,h2{margin:6px 0 4px} .dim{color:#666} .mono{font-family:ui-monospace,Menlo,Consolas,monospace;white-space:pre-wrap}</style>")
	fmt.Fprint(f, "</head><body>")

	fmt.Fprintf(f, "<h1>utilscan %s report – <span class='mono'>%s</span></h1>", esc(run.Kind), esc(runID))
	fmt.Fprintf(f, "<p>Source: <span class='mono'>%s</span></p>", esc(run.Source))
	fmt.Fprintf(f, "<p>Steps: %d &nbsp; Calls: %d &nbsp; Skips: %d &nbsp; Findings: %d</p>",
		len(run.Steps), len(run.Calls), len(run.Skips), len(run.Findings))
	st := rules.CurrentSettings()
	fmt.Fprintf(f, "<p class='dim'>Severity threshold: %s", esc(st.SeverityThreshold))
	if n := len(st.Disabled); n > 0 {
		fmt.Fprintf(f, " &nbsp; Disabled rules: %d", n)
	}
	fmt.Fprint(f, "</p>")

	fmt.Fprint(f, "<h2>Utilities</h2><table><tr><th>Utility</th><th>List</th><th>Found</th><th>Count</th></tr>")
	row := func(u, list string) {
		n := sum.Counts[u]
		fmt.Fprintf(f, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%d</td></tr>", esc(u), list, yesNo(n > 0), n)
	}
	for _, u := range sortedUnique(run.Utilities.Default) {
		row(u, "default")
	}
	for _, u := range sortedUnique(run.Utilities.Custom) {
		row(u, "custom")
	}
	fmt.Fprint(f, "</table>")

	if len(run.Findings) > 0 {
		fmt.Fprint(f, "<h2>Findings</h2><table><tr><th>Severity</th><th>Rule</th><th>File</th><th>Step</th><th>Message</th><th>Evidence</th></tr>")
		for _, fd := range run.Findings {
			rule := esc(fd.RuleID)
			if r, ok := rules.Get(fd.RuleID); ok && r.Summary != "" {
				rule = fmt.Sprintf("<span title='%s'>%s</span>", esc(r.Summary), rule)
			}
			fmt.Fprintf(f, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td class='mono'>%s</td></tr>",
				esc(fd.Severity), rule, esc(fd.File), esc(fd.Step), esc(fd.Message), esc(fd.Evidence))
		}
		fmt.Fprint(f, "</table>")
	} else {
		fmt.Fprint(f, "<h2>Findings</h2><p class='dim'>No findings at or above the configured threshold.</p>")
	}

	if len(run.Skips) > 0 {
		fmt.Fprint(f, "<h2>Skipped</h2><table><tr><th>Path</th><th>Reason</th></tr>")
		for _, s := range run.Skips {
			fmt.Fprintf(f, "<tr><td class='mono'>%s</td><td>%s</td></tr>", esc(s.Path), esc(s.Reason))
		}
		fmt.Fprint(f, "</table>")
	}

	fmt.Fprint(f, "</body></html>")
	return path, nil
}
