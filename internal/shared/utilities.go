package shared

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// UtilityList is the name set read from a utilities file, plus the 3-char
// prefixes used for fuzzy CALL/macro matching.
type UtilityList struct {
	Names    map[string]bool
	Prefixes []string
}

func LoadUtilities(path string) (UtilityList, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return UtilityList{}, fmt.Errorf("%w: utility list file: %v", ErrConfig, err)
	}
	return ParseUtilities(string(b)), nil
}

func ParseUtilities(text string) UtilityList {
	ul := UtilityList{Names: map[string]bool{}}
	seenPrefix := map[string]bool{}
	for _, line := range strings.Split(text, "\n") {
		name := strings.ToUpper(strings.TrimSpace(line))
		if name == "" {
			continue
		}
		ul.Names[name] = true
		if len(name) >= 3 && !seenPrefix[name[:3]] {
			seenPrefix[name[:3]] = true
			ul.Prefixes = append(ul.Prefixes, name[:3])
		}
	}
	return ul
}

// Sorted returns the names in alphabetical order.
func (u UtilityList) Sorted() []string {
	out := make([]string, 0, len(u.Names))
	for n := range u.Names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
