package rules

import (
	"fmt"
	"hash/crc32"
	"sort"
	"strings"

	"github.com/acrajesh/automationaccelerator/internal/ir"
)

var (
	registry  []Rule
	ruleIndex = map[string]int{} // UPPER(ruleID) -> index
)

// Register adds r, replacing an earlier rule with the same ID.
func Register(r Rule) {
	key := strings.ToUpper(strings.TrimSpace(r.ID))
	if idx, ok := ruleIndex[key]; ok {
		registry[idx] = r
		return
	}
	registry = append(registry, r)
	ruleIndex[key] = len(registry) - 1
}

func List() []Rule {
	out := make([]Rule, 0, len(registry))
	for _, r := range registry {
		if rsettings.Disabled[strings.ToUpper(r.ID)] {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Group splits steps into per-file units keyed by the path relative to the
// scan root, so same-named members in different directories stay apart.
// Files are ordered by that key, steps by line.
func Group(steps []ir.ExtractedStep) []File {
	idx := map[string]int{}
	var files []File
	for _, st := range steps {
		key := st.Key()
		i, ok := idx[key]
		if !ok {
			i = len(files)
			idx[key] = i
			files = append(files, File{Name: key})
		}
		files[i].Steps = append(files[i].Steps, st)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	for i := range files {
		sort.SliceStable(files[i].Steps, func(a, b int) bool { return files[i].Steps[a].Line < files[i].Steps[b].Line })
	}
	return files
}

// Evaluate runs every enabled rule over the run's steps and returns findings
// at or above the severity threshold, highest severity first.
func Evaluate(run *ir.Run) []ir.Finding {
	var all []ir.Finding
	rs := List()

	seen := make(map[string]struct{})
	seq := 0
	put := func(id string) bool {
		if _, ok := seen[id]; ok {
			return false
		}
		seen[id] = struct{}{}
		return true
	}

	files := Group(run.Steps)
	for i := range files {
		f := &files[i]
		for _, rule := range rs {
			for _, fd := range rule.Eval(f) {
				if !severityOK(fd.Severity) {
					continue
				}
				if fd.File == "" {
					fd.File = f.Name
				}
				if fd.ID == "" {
					fd.ID = makeID(rule.ID, f.Name, fd.Step, fd.Evidence, 0)
				}
				// collisions get a run-local sequence id
				for !put(fd.ID) {
					seq++
					fd.ID = fmt.Sprintf("%s-%06d", rule.ID, seq)
				}
				all = append(all, fd)
			}
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		ri, rj := severityRank(all[i].Severity), severityRank(all[j].Severity)
		if ri != rj {
			return ri > rj
		}
		return all[i].ID < all[j].ID
	})
	return all
}

func makeID(ruleID, file, step, evidence string, idx int) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d", ruleID, file, step, evidence, idx)
	sum := crc32.ChecksumIEEE([]byte(data))
	return fmt.Sprintf("%s-%08x", ruleID, sum)
}

// Get returns a rule by ID if registered (used by the HTML report and API).
func Get(id string) (Rule, bool) {
	idx, ok := ruleIndex[strings.ToUpper(strings.TrimSpace(id))]
	if !ok || idx < 0 || idx >= len(registry) {
		return Rule{}, false
	}
	return registry[idx], true
}

func finding(r *File, st ir.ExtractedStep, ruleID, typ, sev, msg, evidence string) ir.Finding {
	return ir.Finding{
		RuleID:   ruleID,
		Type:     typ,
		Severity: sev,
		File:     r.Name,
		Step:     st.StepName,
		Message:  msg,
		Evidence: evidence,
		Metadata: map[string]any{"program": st.Program, "line": st.Line},
	}
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
