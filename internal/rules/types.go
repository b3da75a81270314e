package rules

import "github.com/acrajesh/automationaccelerator/internal/ir"

// File is the unit a rule inspects: the extracted utility steps of one JCL
// member, in line order.
type File struct {
	Name  string
	Steps []ir.ExtractedStep
}

// Rule represents a single analysis rule executed over a File.
type Rule struct {
	ID              string
	Summary         string
	Type            string // RISK|INFO
	DefaultSeverity string
	Eval            func(f *File) []ir.Finding
}
