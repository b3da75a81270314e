package callscan

import (
	"sort"
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/acrajesh/automationaccelerator/internal/shared"
)

// matcher answers "is this a utility?" for a CALL target or macro name, and
// prefilters whole lines with Aho-Corasick so most lines never reach a regex.
// The Aho-Corasick matcher keeps match state, so each worker builds its own.
type matcher struct {
	names    map[string]bool
	prefixes []string
	byPrefix map[string]string // prefix -> first utility (alphabetical) carrying it
	ac       *ahocorasick.Matcher
}

func newMatcher(ul shared.UtilityList) *matcher {
	m := &matcher{names: ul.Names, prefixes: ul.Prefixes, byPrefix: map[string]string{}}
	sorted := ul.Sorted()
	for _, p := range ul.Prefixes {
		for _, n := range sorted {
			if strings.HasPrefix(n, p) {
				m.byPrefix[p] = n
				break
			}
		}
	}
	keywords := append([]string(nil), ul.Prefixes...)
	for _, n := range sorted {
		if len(n) < 3 {
			keywords = append(keywords, n)
		}
	}
	if len(keywords) > 0 {
		sort.Strings(keywords)
		m.ac = ahocorasick.NewStringMatcher(keywords)
	}
	return m
}

// candidate reports whether the upper-cased line mentions any utility name or prefix.
func (m *matcher) candidate(upperLine string) bool {
	if m.ac == nil {
		return false
	}
	return len(m.ac.Match([]byte(upperLine))) > 0
}

// resolve maps a CALL target or macro to the utility it belongs to: exact
// name first, then the first configured 3-char prefix it starts with.
func (m *matcher) resolve(target string) (string, bool) {
	if m.names[target] {
		return target, true
	}
	for _, p := range m.prefixes {
		if strings.HasPrefix(target, p) {
			return m.byPrefix[p], true
		}
	}
	return "", false
}
