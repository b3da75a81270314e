package resolver

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/acrajesh/automationaccelerator/internal/source"
)

// Source names where a symbolic value was found.
type Source int

const (
	NotFound Source = iota
	FromSET
	FromExecOverride
	FromProcDefault
	FromInclude
	FromCntlMember
	FromCntlSearch
)

func (s Source) String() string {
	switch s {
	case FromSET:
		return "SET"
	case FromExecOverride:
		return "EXEC override"
	case FromProcDefault:
		return "PROC default"
	case FromInclude:
		return "INCLUDE member"
	case FromCntlMember:
		return "CNTLLIB member"
	case FromCntlSearch:
		return "CNTLLIB search"
	}
	return "not found"
}

// ResolutionContext is everything one file's lookups may consult.
type ResolutionContext struct {
	JCLLines []string
	ProcLibs []string
	CntlLib  string
}

const (
	procExt   = ".proc"
	memberExt = ".incl"
)

var (
	reSet      = regexp.MustCompile(`(?i)^//\S*\s+SET\s+(\S+)`)
	reExecProc = regexp.MustCompile(`(?i)^//\S+\s+EXEC\s+(?:PROC\s*=\s*)?([A-Z0-9@#$]+)`)
	reExecPgm  = regexp.MustCompile(`(?i)^//\S+\s+EXEC\s+PGM\s*=`)
	reProcStmt = regexp.MustCompile(`(?i)^//\S+\s+PROC\b(.*)$`)
	reInclude  = regexp.MustCompile(`(?i)^//\S*\s*INCLUDE\s+MEMBER\s*=\s*([A-Z0-9@#$]+)`)
)

// Resolver looks up symbolic parameters. PROC and CNTLLIB members are read
// through a shared LRU, so one Resolver can serve every worker of a scan.
type Resolver struct {
	files *lru.Cache[string, []string]
}

// New returns a Resolver caching up to cacheSize member files; cacheSize <= 0
// disables the cache.
func New(cacheSize int) *Resolver {
	r := &Resolver{}
	if cacheSize > 0 {
		c, err := lru.New[string, []string](cacheSize)
		if err == nil {
			r.files = c
		}
	}
	return r
}

// ResolveSymbolicParameter is the uncached one-shot form of Resolve.
func ResolveSymbolicParameter(name string, jclLines, procLibs []string, cntlLib string) (string, bool) {
	v, src := New(0).Resolve(name, ResolutionContext{JCLLines: jclLines, ProcLibs: procLibs, CntlLib: cntlLib})
	return v, src != NotFound
}

// Resolve returns the value of &name. Sources are tried in a fixed order and
// the first hit wins: SET, EXEC override, PROC default, INCLUDE member,
// CNTLLIB member named after the parameter, then any CNTLLIB member.
// Unreadable files count as misses.
func (r *Resolver) Resolve(name string, rc ResolutionContext) (string, Source) {
	name = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(name), "&"), ".")
	if name == "" {
		return "", NotFound
	}
	kw := keywordPattern(name)

	if v, ok := fromSet(name, rc.JCLLines); ok {
		return v, FromSET
	}

	procs := invokedProcs(rc.JCLLines)
	for _, p := range procs {
		if m := kw.FindStringSubmatch(p.line); m != nil {
			return clean(m[1]), FromExecOverride
		}
	}
	for _, p := range procs {
		if v, ok := r.procDefault(p.name, kw, rc.ProcLibs); ok {
			return v, FromProcDefault
		}
	}

	if rc.CntlLib == "" {
		return "", NotFound
	}
	for _, line := range rc.JCLLines {
		if isComment(line) {
			continue
		}
		m := reInclude.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		lines, ok := r.lines(filepath.Join(rc.CntlLib, m[1]+memberExt))
		if !ok {
			continue
		}
		if v, ok := firstKeyword(kw, lines); ok {
			return v, FromInclude
		}
	}

	if lines, ok := r.lines(filepath.Join(rc.CntlLib, name+memberExt)); ok {
		if v := strings.TrimSpace(strings.Join(lines, "\n")); v != "" {
			return v, FromCntlMember
		}
	}

	if v, ok := r.searchCntl(rc.CntlLib, kw); ok {
		return v, FromCntlSearch
	}
	return "", NotFound
}

type procCall struct {
	name string
	line string
}

// invokedProcs lists EXEC statements that call a PROC (not PGM=), in file order.
func invokedProcs(lines []string) []procCall {
	var out []procCall
	for _, line := range lines {
		if isComment(line) || reExecPgm.MatchString(line) {
			continue
		}
		if m := reExecProc.FindStringSubmatch(line); m != nil {
			out = append(out, procCall{name: m[1], line: line})
		}
	}
	return out
}

func fromSet(name string, lines []string) (string, bool) {
	for _, line := range lines {
		if isComment(line) {
			continue
		}
		m := reSet.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		for _, assign := range strings.Split(m[1], ",") {
			k, v, ok := strings.Cut(assign, "=")
			if ok && strings.EqualFold(strings.TrimSpace(k), name) {
				return clean(v), true
			}
		}
	}
	return "", false
}

func (r *Resolver) procDefault(proc string, kw *regexp.Regexp, libs []string) (string, bool) {
	lines, ok := r.findProc(proc, libs)
	if !ok {
		return "", false
	}
	cont := false
	for _, line := range lines {
		if isComment(line) {
			continue
		}
		var params string
		switch m := reProcStmt.FindStringSubmatch(line); {
		case m != nil:
			params = m[1]
		case cont && strings.HasPrefix(line, "// "):
			params = line[2:]
		default:
			cont = false
			continue
		}
		if m := kw.FindStringSubmatch(params); m != nil {
			return clean(m[1]), true
		}
		// PROC parameters continue only after a trailing comma.
		f := strings.Fields(params)
		cont = len(f) > 0 && strings.HasSuffix(f[0], ",")
	}
	return "", false
}

// findProc returns the first <lib>/<proc>.proc found, trying the name as
// written and then upper/lower case.
func (r *Resolver) findProc(proc string, libs []string) ([]string, bool) {
	var names []string
	for _, n := range []string{proc, strings.ToUpper(proc), strings.ToLower(proc)} {
		if !slices.Contains(names, n) {
			names = append(names, n)
		}
	}
	for _, lib := range libs {
		for _, n := range names {
			if lines, ok := r.lines(filepath.Join(lib, n+procExt)); ok {
				return lines, true
			}
		}
	}
	return nil, false
}

func (r *Resolver) searchCntl(root string, kw *regexp.Regexp) (string, bool) {
	var found string
	var ok bool
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), memberExt) {
			return nil
		}
		lines, readOK := r.lines(p)
		if !readOK {
			return nil
		}
		if v, hit := firstKeyword(kw, lines); hit {
			found, ok = v, true
			return fs.SkipAll
		}
		return nil
	})
	return found, ok
}

func (r *Resolver) lines(path string) ([]string, bool) {
	if r.files != nil {
		if l, ok := r.files.Get(path); ok {
			return l, true
		}
	}
	if _, err := os.Stat(path); err != nil {
		return nil, false
	}
	l, err := source.ReadLines(path)
	if err != nil {
		slog.Debug("resolver read failed", "path", path, "err", err)
		return nil, false
	}
	if r.files != nil {
		r.files.Add(path, l)
	}
	return l, true
}

func firstKeyword(kw *regexp.Regexp, lines []string) (string, bool) {
	for _, line := range lines {
		if m := kw.FindStringSubmatch(line); m != nil {
			return clean(m[1]), true
		}
	}
	return "", false
}

func keywordPattern(name string) *regexp.Regexp {
	// JCL names include the national characters @ # $, which \b treats as non-word.
	return regexp.MustCompile(`(?i)(?:^|[^A-Z0-9@#$])` + regexp.QuoteMeta(name) + `\s*=\s*([^,\s]+)`)
}

func isComment(line string) bool { return strings.HasPrefix(line, "//*") }

func clean(v string) string {
	v = strings.TrimSpace(v)
	if f := strings.Fields(v); len(f) > 0 {
		v = f[0]
	}
	return strings.Trim(v, "'\"")
}
