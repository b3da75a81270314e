package callscan

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/acrajesh/automationaccelerator/internal/ir"
)

const FileTypeASM = "ASM"

var (
	reModule      = regexp.MustCompile(`(?i)^\s*(START|ENTRY|NAME)\s+([A-Z0-9_@$#-]+)`)
	reModuleLabel = regexp.MustCompile(`(?i)^([A-Z@$#][A-Z0-9_@$#]*)\s+(?:START|CSECT)\b`)
)

func asmModule(lines []string) string {
	for _, l := range lines {
		if mm := reModuleLabel.FindStringSubmatch(l); mm != nil {
			return strings.ToUpper(mm[1])
		}
		if mm := reModule.FindStringSubmatch(l); mm != nil {
			return strings.ToUpper(mm[2])
		}
	}
	return ""
}

// scanASM treats the first token of each line as a macro or instruction name
// and keeps the ones that are utilities.
func scanASM(path string, lines []string, m *matcher) []ir.CallSite {
	module := asmModule(lines)

	var out []ir.CallSite
	for idx, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		macro := strings.ToUpper(fields[0])
		if !m.candidate(macro) {
			continue
		}
		util, ok := m.resolve(macro)
		if !ok {
			continue
		}
		var ctx []string
		for c := max(0, idx-commentLookbehind); c < idx; c++ {
			t := strings.TrimSpace(lines[c])
			if strings.HasPrefix(t, "*") || strings.HasPrefix(t, "//") {
				ctx = append(ctx, t)
			}
		}
		out = append(out, ir.CallSite{
			FileName: filepath.Base(path),
			FileType: FileTypeASM,
			Module:   module,
			Line:     idx + 1,
			Utility:  util,
			Target:   macro,
			Snippet:  strings.TrimSpace(line),
			Comments: strings.Join(ctx, "\n"),
		})
	}
	return out
}
