package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/acrajesh/automationaccelerator/internal/impact"
)

const (
	// Below this many statements every job is listed, risky or not.
	listAllJobsBelow = 20
	maxRefJobs       = 2
)

var statusFills = map[string]string{
	string(impact.Supported):       "92D050",
	string(impact.NotSupported):    "FF0000",
	string(impact.AcceptedIgnored): "FFC000",
	string(impact.Unknown):         "A5A5A5",
}

// WriteADRDSSUWorkbook writes <base>.xlsx: a Dashboard of unique options by
// status, an Options Analysis sheet and a Job References sheet with a risk
// level per control statement.
func WriteADRDSSUWorkbook(outDir, base string, versioning bool, a impact.Analysis) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	p := filepath.Join(outDir, base+".xlsx")
	if versioning {
		p = VersionedPath(p)
	}

	uniq := a.Unique()
	total := 0
	for _, n := range uniq {
		total += n
	}
	solved := uniq[impact.Supported] + uniq[impact.AcceptedIgnored]
	pending := uniq[impact.NotSupported]
	dash := table{name: dashboardName, header: []string{
		"Utility", "Total Unique Options",
		"Supported Unique Count", "Supported Unique %",
		"Accepted but Ignored Unique Count", "Accepted but Ignored Unique %",
		"Not Supported Unique Count", "Not Supported Unique %",
		"Unknown Unique Count", "Unknown Unique %",
		"Solution Available", "Solution Available %", "Options Pending", "Options Pending %",
	}}
	dash.rows = append(dash.rows, []any{
		impact.Program, total,
		uniq[impact.Supported], pct(uniq[impact.Supported], total, 2),
		uniq[impact.AcceptedIgnored], pct(uniq[impact.AcceptedIgnored], total, 2),
		uniq[impact.NotSupported], pct(uniq[impact.NotSupported], total, 2),
		uniq[impact.Unknown], pct(uniq[impact.Unknown], total, 2),
		solved, pct(solved, total, 1), pending, pct(pending, total, 1),
	})

	opts := table{name: "Options Analysis", header: []string{"Option", "Statement Types", "Status", "Occurrences", "Reference Jobs"},
		tall: true, fillCol: 3, fills: statusFills}
	for _, o := range a.Options {
		refs := o.Refs
		if len(refs) > maxRefJobs {
			refs = refs[:maxRefJobs]
		}
		opts.rows = append(opts.rows, []any{o.Name, strings.Join(o.Statements, ", "), string(o.Status), o.Count, strings.Join(refs, ", ")})
	}

	jobs := table{name: "Job References", tall: true, header: []string{
		"Job Reference", "Line", "Statement Type", "Risk Level",
		"Supported Options Count", "Not Supported Options Count", "Accepted but Ignored Count", "Unknown Options Count",
		"Options Details", "Unknown Options",
	}}
	for _, u := range a.Usages {
		risk := u.Risk()
		if risk == impact.RiskNone && len(a.Usages) >= listAllJobsBelow {
			continue
		}
		var details []string
		for _, st := range impact.Statuses {
			if names := u.Names(st); len(names) > 0 {
				details = append(details, fmt.Sprintf("%s: %s", st, strings.Join(names, ", ")))
			}
		}
		if len(details) == 0 {
			details = []string{"None"}
		}
		unknown := "None"
		if names := u.Names(impact.Unknown); len(names) > 0 {
			unknown = strings.Join(names, ", ")
		}
		jobs.rows = append(jobs.rows, []any{
			u.Ref(), u.Line, u.Statement, risk,
			u.Count(impact.Supported), u.Count(impact.NotSupported), u.Count(impact.AcceptedIgnored), u.Count(impact.Unknown),
			strings.Join(details, "\n"), unknown,
		})
	}

	tables := []table{dash, opts, jobs}
	if len(a.Unanalyzed) > 0 {
		un := table{name: "Unanalyzed Steps", header: []string{"Job Reference", "Reason"}}
		for _, ref := range a.Unanalyzed {
			un.rows = append(un.rows, []any{ref, "no readable control statements"})
		}
		tables = append(tables, un)
	}
	return p, writeWorkbook(p, tables)
}

func pct(n, total, digits int) string {
	if total == 0 {
		return fmt.Sprintf("%.*f%%", digits, 0.0)
	}
	return fmt.Sprintf("%.*f%%", digits, float64(n)*100/float64(total))
}
