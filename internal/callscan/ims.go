package callscan

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/source"
)

// IMS call types.
const (
	CallStatic  = "Static"
	CallDynamic = "Dynamic"
	FuncUnknown = "Unknown"

	copybookCacheSize = 256
)

// IMSEntryPoints are the DL/I language interface modules a program calls.
var IMSEntryPoints = []string{"AERTDLI", "AIBTDLI", "ASMTDLI", "CBLTDLI", "DFSLI000", "DLITDLI", "PLITDLI"}

// DL/I function codes.
var dliFunctions = map[string]bool{
	"GU": true, "GN": true, "GNP": true, "GHU": true, "GHN": true, "GHNP": true,
	"ISRT": true, "DLET": true, "REPL": true, "CHKP": true, "XRST": true, "ROLL": true,
	"ROLB": true, "ROLS": true, "SETS": true, "SETU": true, "INIT": true, "INQY": true,
	"CMD": true, "GCMD": true, "AUTH": true, "LOG": true, "SYNC": true, "APSB": true,
	"DPSB": true, "ICAL": true, "POS": true, "PCB": true,
}

var (
	reEntry     = regexp.MustCompile(`(?i)(?:^|[^A-Z0-9@#$-])(AERTDLI|AIBTDLI|ASMTDLI|CBLTDLI|DLITDLI|PLITDLI|DFSLI00\d)(?:$|[^A-Z0-9@#$-])`)
	reIMSCall   = regexp.MustCompile(`(?i)\bCALL\s+(['"]?)([A-Z0-9@#$-]+)['"]?`)
	reUsing     = regexp.MustCompile(`(?i)\bUSING\s+('[^']*'|"[^"]*"|[A-Z0-9@#$-]+)`)
	reCopy      = regexp.MustCompile(`(?i)^(?:\d{6})?\s*COPY\s+['"]?([A-Z0-9@#$-]+)`)
	reCOBValue  = regexp.MustCompile(`(?i)^(?:\d{6})?\s*\d{2}\s+([A-Z0-9-]+)\b.*\bVALUE\s+(?:IS\s+)?['"]([^'"]*)['"]`)
	reASMDC     = regexp.MustCompile(`(?i)^([A-Z@#$][A-Z0-9@#$_]*)\s+DC\s+C(?:L\d+)?'([^']*)'`)
	reASMParm   = regexp.MustCompile(`(?i)TDLI\s*,\s*\(\s*('[^']*'|[A-Z0-9@#$_]+)`)
	copybookExt = []string{"", ".cpy", ".CPY", ".cob", ".COB", ".cbl", ".CBL"}
)

// IMSCOBOL scans COBOL for DL/I calls. COPY members are expanded one level
// deep from copybookDir, so function-code literals and calls kept in
// copybooks are seen.
func IMSCOBOL(copybookDir string) Lang {
	cb := newCopybooks(copybookDir)
	return Lang{Kind: ir.KindIMS, FileType: FileTypeCOBOL, Exts: COBOL.Exts,
		scan: func(path string, lines []string, _ *matcher) []ir.CallSite { return scanIMSCOBOL(path, lines, cb) }}
}

// IMSASM scans Assembler for references to a DL/I entry point.
var IMSASM = Lang{Kind: ir.KindIMS, FileType: FileTypeASM, Exts: []string{".asm", ".s", ".asmb", ".mac"},
	scan: func(path string, lines []string, _ *matcher) []ir.CallSite { return scanIMSASM(path, lines) }}

type copybook struct {
	lines []string
	ok    bool
}

// copybooks reads COPY members through an LRU shared by every worker.
type copybooks struct {
	dir   string
	cache *lru.Cache[string, copybook]
}

func newCopybooks(dir string) *copybooks {
	c := &copybooks{dir: dir}
	if cache, err := lru.New[string, copybook](copybookCacheSize); err == nil {
		c.cache = cache
	}
	return c
}

func (c *copybooks) load(name string) ([]string, bool) {
	if c == nil || c.dir == "" {
		return nil, false
	}
	name = strings.ToUpper(name)
	if c.cache != nil {
		if cb, ok := c.cache.Get(name); ok {
			return cb.lines, cb.ok
		}
	}
	var cb copybook
	for _, n := range []string{strings.ToLower(name), name} {
		for _, ext := range copybookExt {
			p := filepath.Join(c.dir, n+ext)
			if st, err := os.Stat(p); err != nil || st.IsDir() {
				continue
			}
			lines, err := source.ReadLines(p)
			if err != nil {
				slog.Warn("copybook unreadable", "path", p, "err", err)
				continue
			}
			cb = copybook{lines: lines, ok: true}
			break
		}
		if cb.ok {
			break
		}
	}
	if c.cache != nil {
		c.cache.Add(name, cb)
	}
	return cb.lines, cb.ok
}

// cobLine is one line of a program with its copybooks expanded. line is
// always the program line: for copybook text, the line of the COPY statement.
type cobLine struct {
	text     string
	line     int
	copybook string
	cbLine   int
}

func expandCopybooks(path string, lines []string, cb *copybooks) []cobLine {
	out := make([]cobLine, 0, len(lines))
	for i, l := range lines {
		out = append(out, cobLine{text: l, line: i + 1})
		if isCOBOLComment(l) {
			continue
		}
		m := reCopy.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		name := strings.ToUpper(m[1])
		body, ok := cb.load(name)
		if !ok {
			slog.Debug("copybook not found", "file", path, "copybook", name, "line", i+1)
			continue
		}
		for j, b := range body {
			out = append(out, cobLine{text: b, line: i + 1, copybook: name, cbLine: j + 1})
		}
	}
	return out
}

// dliFunction names the DL/I function a call parameter stands for: the value
// of the data item it names, the literal itself, or a function code embedded
// in the data name (DLI-GU, GHU-FUNC).
func dliFunction(param string, values map[string]string) string {
	p := strings.ToUpper(strings.TrimSpace(param))
	if v, ok := values[p]; ok {
		p = v
	}
	p = strings.ToUpper(strings.TrimSpace(strings.Trim(p, `'"`)))
	if dliFunctions[p] {
		return p
	}
	for _, tok := range strings.FieldsFunc(p, func(r rune) bool { return r == '-' || r == '_' }) {
		if dliFunctions[tok] {
			return tok
		}
	}
	return FuncUnknown
}

func cleanParam(p string) string {
	return strings.TrimRight(strings.ToUpper(strings.TrimSpace(p)), ".,")
}

// scanIMSCOBOL reports CALLs to a DL/I entry point: CALL 'CBLTDLI' is static,
// CALL WS-NAME is dynamic when WS-NAME holds an entry point name.
func scanIMSCOBOL(path string, lines []string, cb *copybooks) []ir.CallSite {
	var module string
	for _, l := range lines {
		if mm := reProgramID.FindStringSubmatch(l); mm != nil {
			module = strings.ToUpper(mm[1])
			break
		}
	}
	src := expandCopybooks(path, lines, cb)

	values := map[string]string{}
	for _, l := range src {
		if isCOBOLComment(l.text) {
			continue
		}
		if m := reCOBValue.FindStringSubmatch(l.text); m != nil {
			values[strings.ToUpper(m[1])] = strings.TrimSpace(m[2])
		}
	}

	var out []ir.CallSite
	for idx, l := range src {
		if isCOBOLComment(l.text) {
			continue
		}
		m := reIMSCall.FindStringSubmatch(l.text)
		if m == nil {
			continue
		}
		target := strings.ToUpper(m[2])
		entry, callType := "", CallStatic
		switch {
		case reEntry.MatchString(target):
			entry = target
		case m[1] == "":
			if v := strings.ToUpper(values[target]); reEntry.MatchString(v) {
				entry, callType = v, CallDynamic
			}
		}
		if entry == "" {
			continue
		}

		stmt := []string{strings.TrimRight(l.text, " ")}
		for n := idx + 1; n < len(src) && n <= idx+maxContinuations; n++ {
			if strings.HasSuffix(strings.TrimSpace(src[n-1].text), ".") {
				break
			}
			if isCOBOLComment(src[n].text) {
				continue
			}
			if reIMSCall.MatchString(src[n].text) {
				break
			}
			stmt = append(stmt, strings.TrimRight(src[n].text, " "))
		}
		var param string
		if um := reUsing.FindStringSubmatch(strings.Join(stmt, " ")); um != nil {
			param = cleanParam(um[1])
		}

		var ctx []string
		if l.copybook != "" {
			ctx = append(ctx, fmt.Sprintf("from copybook %s line %d", l.copybook, l.cbLine))
		}
		for c := max(0, idx-commentLookbehind); c < idx; c++ {
			if isCOBOLComment(src[c].text) {
				ctx = append(ctx, strings.TrimRight(src[c].text, " "))
			}
		}

		out = append(out, ir.CallSite{
			FileName: filepath.Base(path),
			FileType: FileTypeCOBOL,
			Module:   module,
			Line:     l.line,
			Utility:  entry,
			Target:   target,
			Snippet:  strings.Join(stmt, "\n"),
			Comments: strings.Join(ctx, "\n"),
			CallType: callType,
			Function: dliFunction(param, values),
			Param:    param,
		})
	}
	return out
}

func isASMComment(line string) bool {
	return strings.HasPrefix(line, "*") || strings.HasPrefix(line, ".*")
}

// scanIMSASM reports every instruction or macro that names a DL/I entry
// point; DC and DS definitions are not calls. Moving or loading the entry
// point name (MVC, LOAD) marks the call dynamic.
func scanIMSASM(path string, lines []string) []ir.CallSite {
	module := asmModule(lines)

	values := map[string]string{}
	for _, l := range lines {
		if m := reASMDC.FindStringSubmatch(l); m != nil {
			values[strings.ToUpper(m[1])] = strings.TrimSpace(m[2])
		}
	}

	var out []ir.CallSite
	for idx, line := range lines {
		if isASMComment(line) {
			continue
		}
		m := reEntry.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		upper := strings.ToUpper(line)
		fields := strings.Fields(upper)
		callType := CallStatic
		skip := false
		for _, f := range fields[:min(2, len(fields))] {
			switch f {
			case "MVC", "LOAD":
				callType = CallDynamic
			case "DC", "DS":
				skip = true
			}
		}
		if skip {
			continue
		}
		var param string
		if pm := reASMParm.FindStringSubmatch(upper); pm != nil {
			param = cleanParam(pm[1])
		}
		var ctx []string
		for c := max(0, idx-commentLookbehind); c < idx; c++ {
			if isASMComment(lines[c]) {
				ctx = append(ctx, strings.TrimSpace(lines[c]))
			}
		}
		out = append(out, ir.CallSite{
			FileName: filepath.Base(path),
			FileType: FileTypeASM,
			Module:   module,
			Line:     idx + 1,
			Utility:  strings.ToUpper(m[1]),
			Target:   strings.ToUpper(m[1]),
			Snippet:  strings.TrimSpace(line),
			Comments: strings.Join(ctx, "\n"),
			CallType: callType,
			Function: dliFunction(param, values),
			Param:    param,
		})
	}
	return out
}
