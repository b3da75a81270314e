package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/acrajesh/automationaccelerator/internal/ir"
)

// Diff compares two runs: utility steps or call sites that appeared or
// disappeared, and findings that were added, removed or changed.
type Diff struct {
	BaseID  string      `json:"base_id"`
	HeadID  string      `json:"head_id"`
	Summary DiffSummary `json:"summary"`

	NewUsages     []string `json:"new_usages"`
	RemovedUsages []string `json:"removed_usages"`

	New     []diffFinding `json:"new"`
	Removed []diffFinding `json:"removed"`
	Changed []diffChanged `json:"changed"`
}

type DiffSummary struct {
	NewUsages     int `json:"new_usages"`
	RemovedUsages int `json:"removed_usages"`
	NewCount      int `json:"new"`
	RemovedCount  int `json:"removed"`
	ChangedCount  int `json:"changed"`
}

type diffFinding struct {
	RuleID   string `json:"rule_id"`
	File     string `json:"file"`
	Step     string `json:"step,omitempty"`
	Severity string `json:"severity,omitempty"`
	Message  string `json:"message,omitempty"`
}

type diffChanged struct {
	Key     string      `json:"key"`
	Base    diffFinding `json:"base"`
	Head    diffFinding `json:"head"`
	Changed []string    `json:"fields_changed"`
}

// Compare builds the diff between base and head.
func Compare(base, head *ir.Run) Diff {
	d := Diff{BaseID: base.ID, HeadID: head.ID}

	bu, hu := usageKeys(base), usageKeys(head)
	for k := range hu {
		if !bu[k] {
			d.NewUsages = append(d.NewUsages, k)
		}
	}
	for k := range bu {
		if !hu[k] {
			d.RemovedUsages = append(d.RemovedUsages, k)
		}
	}
	sort.Strings(d.NewUsages)
	sort.Strings(d.RemovedUsages)

	bm := map[string]ir.Finding{}
	hm := map[string]ir.Finding{}
	for _, f := range base.Findings {
		bm[keyOf(f)] = f
	}
	for _, f := range head.Findings {
		hm[keyOf(f)] = f
	}
	for k, hf := range hm {
		bf, ok := bm[k]
		if !ok {
			d.New = append(d.New, asDiff(hf))
			continue
		}
		var fields []string
		if norm(bf.Severity) != norm(hf.Severity) {
			fields = append(fields, "severity")
		}
		if strings.TrimSpace(bf.Message) != strings.TrimSpace(hf.Message) {
			fields = append(fields, "message")
		}
		if len(fields) > 0 {
			d.Changed = append(d.Changed, diffChanged{Key: k, Base: asDiff(bf), Head: asDiff(hf), Changed: fields})
		}
	}
	for k, bf := range bm {
		if _, ok := hm[k]; !ok {
			d.Removed = append(d.Removed, asDiff(bf))
		}
	}

	byKey := func(s []diffFinding) func(i, j int) bool {
		return func(i, j int) bool {
			if s[i].RuleID != s[j].RuleID {
				return s[i].RuleID < s[j].RuleID
			}
			if s[i].File != s[j].File {
				return s[i].File < s[j].File
			}
			return s[i].Step < s[j].Step
		}
	}
	sort.Slice(d.New, byKey(d.New))
	sort.Slice(d.Removed, byKey(d.Removed))
	sort.Slice(d.Changed, func(i, j int) bool { return d.Changed[i].Key < d.Changed[j].Key })

	d.Summary = DiffSummary{
		NewUsages:     len(d.NewUsages),
		RemovedUsages: len(d.RemovedUsages),
		NewCount:      len(d.New),
		RemovedCount:  len(d.Removed),
		ChangedCount:  len(d.Changed),
	}
	return d
}

// WriteDiffJSON writes Compare(base, head) to <outDir>/diff_<base>__<head>.json.
func WriteDiffJSON(outDir string, base, head *ir.Run) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(outDir, "diff_"+base.ID+"__"+head.ID+".json")
	b, err := json.MarshalIndent(Compare(base, head), "", "  ")
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, b, 0o644)
}

// usageKeys identifies a usage by utility, file path and step (or target for calls).
// Line numbers are left out of step keys so edits above a step don't count.
func usageKeys(run *ir.Run) map[string]bool {
	out := map[string]bool{}
	for _, st := range run.Steps {
		out[st.Program+"|"+st.Key()+"|"+st.StepName] = true
	}
	for _, c := range run.Calls {
		out[fmt.Sprintf("%s|%s|%s", c.Utility, c.Key(), c.Target)] = true
	}
	return out
}

func keyOf(f ir.Finding) string {
	sb := strings.Builder{}
	sb.WriteString(norm(f.RuleID))
	sb.WriteByte('|')
	sb.WriteString(norm(f.File))
	sb.WriteByte('|')
	sb.WriteString(norm(f.Step))
	sb.WriteByte('|')
	// evidence drives logical identity for many rules
	sb.WriteString(norm(f.Evidence))
	return sb.String()
}

func asDiff(f ir.Finding) diffFinding {
	return diffFinding{RuleID: f.RuleID, File: f.File, Step: f.Step, Severity: f.Severity, Message: f.Message}
}

func norm(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
