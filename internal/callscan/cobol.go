package callscan

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/acrajesh/automationaccelerator/internal/ir"
)

const (
	FileTypeCOBOL     = "COBOL"
	maxContinuations  = 10
	commentLookbehind = 2
)

var (
	reProgramID = regexp.MustCompile(`(?i)^\s*PROGRAM-ID\s*\.\s*([A-Z0-9_-]+)`)
	reCall      = regexp.MustCompile(`(?i)CALL\s+['"]?([A-Z0-9_#$@-]+)['"]?`)
)

// indicator returns the column-7 indicator of a fixed-format COBOL line.
func indicator(line string) byte {
	if len(line) > 6 {
		return line[6]
	}
	return 0
}

func isCOBOLComment(line string) bool {
	return indicator(line) == '*' || strings.HasPrefix(strings.TrimSpace(line), "*>")
}

// scanCOBOL extracts CALL statements whose target is a utility.
func scanCOBOL(path string, lines []string, m *matcher) []ir.CallSite {
	var module string
	for _, l := range lines {
		if mm := reProgramID.FindStringSubmatch(l); mm != nil {
			module = strings.ToUpper(mm[1])
			break
		}
	}

	var out []ir.CallSite
	for idx, line := range lines {
		if isCOBOLComment(line) {
			continue
		}
		upper := strings.ToUpper(line)
		if !strings.Contains(upper, "CALL") || !m.candidate(upper) {
			continue
		}
		mm := reCall.FindStringSubmatch(line)
		if mm == nil {
			continue
		}
		target := strings.ToUpper(mm[1])
		util, ok := m.resolve(target)
		if !ok {
			continue
		}

		var ctx []string
		for c := max(0, idx-commentLookbehind); c < idx; c++ {
			if isCOBOLComment(lines[c]) {
				ctx = append(ctx, strings.TrimRight(lines[c], " "))
			}
		}
		stmt := []string{line}
		for n := idx + 1; n < len(lines) && n <= idx+maxContinuations; n++ {
			if indicator(lines[n]) != '-' {
				break
			}
			stmt = append(stmt, lines[n])
		}

		out = append(out, ir.CallSite{
			FileName: filepath.Base(path),
			FileType: FileTypeCOBOL,
			Module:   module,
			Line:     idx + 1,
			Utility:  util,
			Target:   target,
			Snippet:  strings.Join(stmt, "\n"),
			Comments: strings.Join(ctx, "\n"),
		})
	}
	return out
}
