package jclscan

import (
	"regexp"
	"strings"
)

// DD is one DD statement of a step block with its continuation lines folded in.
type DD struct {
	Name    string
	Dataset string
	Disp    string
	Space   string
	Params  string
}

var reDD = regexp.MustCompile(`(?i)^//(\S*)\s+DD\b\s*(.*)$`)

// ParseDDs reads the DD statements out of an ExtractedStep.StepBlock. A
// concatenated DD with a blank name inherits the previous DD's name.
func ParseDDs(block string) []DD {
	var out []DD
	cur := -1
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimRight(line, " \r")
		if strings.HasPrefix(line, "//*") {
			continue
		}
		if m := reDD.FindStringSubmatch(line); m != nil {
			name := strings.ToUpper(m[1])
			if name == "" && cur >= 0 {
				name = out[cur].Name
			}
			out = append(out, DD{Name: name, Params: strings.TrimSpace(m[2])})
			cur = len(out) - 1
			continue
		}
		if cur >= 0 && strings.HasPrefix(line, "// ") && strings.HasSuffix(out[cur].Params, ",") {
			out[cur].Params += strings.TrimSpace(line[2:])
			continue
		}
		cur = -1
	}
	for i := range out {
		p := out[i].Params
		out[i].Dataset = keyword(p, "DSN")
		if out[i].Dataset == "" {
			out[i].Dataset = keyword(p, "DSNAME")
		}
		out[i].Disp = keyword(p, "DISP")
		out[i].Space = keyword(p, "SPACE")
	}
	return out
}

// keyword returns the value of KEY= in a parameter string, up to the first
// comma or blank outside parentheses.
func keyword(params, key string) string {
	up := strings.ToUpper(params)
	k := key + "="
	for from := 0; ; {
		i := strings.Index(up[from:], k)
		if i < 0 {
			return ""
		}
		i += from
		if i > 0 && up[i-1] != ',' && up[i-1] != ' ' {
			from = i + len(k)
			continue
		}
		val := params[i+len(k):]
		depth := 0
		for j := 0; j < len(val); j++ {
			switch val[j] {
			case '(':
				depth++
			case ')':
				depth--
			case ',', ' ':
				if depth <= 0 {
					return val[:j]
				}
			}
		}
		return val
	}
}
