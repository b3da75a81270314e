package reporting

import "github.com/acrajesh/automationaccelerator/internal/ir"

// Summary counts hits per utility and lists configured utilities with none.
type Summary struct {
	Counts         map[string]int
	MissingDefault []string
	MissingCustom  []string
}

func Summarize(run *ir.Run) Summary {
	s := Summary{Counts: map[string]int{}}
	for _, st := range run.Steps {
		s.Counts[st.Program]++
	}
	for _, c := range run.Calls {
		s.Counts[c.Utility]++
	}
	for _, u := range sortedUnique(run.Utilities.Default) {
		if s.Counts[u] == 0 {
			s.MissingDefault = append(s.MissingDefault, u)
		}
	}
	for _, u := range sortedUnique(run.Utilities.Custom) {
		if s.Counts[u] == 0 {
			s.MissingCustom = append(s.MissingCustom, u)
		}
	}
	return s
}
