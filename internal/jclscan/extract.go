package jclscan

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/resolver"
	"github.com/acrajesh/automationaccelerator/internal/source"
)

var (
	reExec        = regexp.MustCompile(`(?i)^//(\S+)\s+EXEC\s+(?:PGM\s*=\s*)?(&?[A-Z0-9@#$]+)`)
	reSysinInline = regexp.MustCompile(`(?i)^//\s*SYSIN\s+DD\s+\*`)
	reSysinDSN    = regexp.MustCompile(`(?i)^//\s*SYSIN\s+DD\s+.*\bDSN(?:AME)?=`)
	reMember      = regexp.MustCompile(`(?i)\bDSN(?:AME)?=[^,(]+\(([^)]+)\)`)
)

// FileResult is one file's contribution to a scan. Err set means the file
// contributed nothing.
type FileResult struct {
	Path  string
	Steps []ir.ExtractedStep
	Skips []ir.Skip
	Err   error
}

// ExtractFile reads task.Path and extracts its utility steps.
func ExtractFile(task ir.ScanTask, res *resolver.Resolver) FileResult {
	fr := FileResult{Path: task.Path}
	lines, err := source.ReadLines(task.Path)
	if err != nil {
		fr.Err = fmt.Errorf("read %s: %w", task.Path, err)
		return fr
	}
	if len(lines) == 0 {
		fr.Skips = append(fr.Skips, ir.Skip{Path: task.Path, Reason: "empty file"})
		return fr
	}
	fr.Steps, fr.Skips = ExtractLines(task, lines, res)
	return fr
}

// ExtractLines walks lines looking for EXEC steps whose program, literal or
// resolved from a &symbol, is in task.Utilities. Steps whose symbol cannot be
// resolved are returned as skips.
func ExtractLines(task ir.ScanTask, lines []string, res *resolver.Resolver) ([]ir.ExtractedStep, []ir.Skip) {
	if res == nil {
		res = resolver.New(0)
	}
	rc := resolver.ResolutionContext{JCLLines: lines, ProcLibs: task.ProcLibs, CntlLib: task.CntlLib}
	fileName := filepath.Base(task.Path)

	var steps []ir.ExtractedStep
	var skips []ir.Skip
	lastStepEnd := 0

	for i, line := range lines {
		m := matchExec(line)
		if m == nil {
			continue
		}
		stepName, program := m[1], strings.ToUpper(m[2])

		var from string
		if strings.HasPrefix(program, "&") {
			v, src := res.Resolve(program[1:], rc)
			if src == resolver.NotFound || strings.TrimSpace(v) == "" {
				skips = append(skips, ir.Skip{
					Path:   task.Path,
					Reason: fmt.Sprintf("unresolved symbolic parameter %s in step %s (line %d)", program, stepName, i+1),
				})
				continue
			}
			program, from = strings.ToUpper(v), src.String()
		}
		if !task.Utilities[program] {
			continue
		}

		comments := precedingComments(lines, i, lastStepEnd)
		block, end := stepBlock(lines, i)
		lastStepEnd = end

		st := ir.ExtractedStep{
			FileName:     fileName,
			Path:         task.Rel,
			FileType:     task.FileType,
			StepName:     stepName,
			Line:         i + 1,
			StepBlock:    strings.Join(block, "\n"),
			Program:      program,
			ResolvedFrom: from,
			SysinType:    ir.SysinNone,
			Comments:     strings.Join(comments, "\n"),
		}
		applySysin(&st, block, task.CntlLib)
		if st.SysinType == ir.SysinInline {
			st.SysinData = inlineData(lines[i+1 : end])
		}
		steps = append(steps, st)
	}
	return steps, skips
}

// matchExec returns the EXEC submatches for a step line; comment lines never match.
func matchExec(line string) []string {
	if strings.HasPrefix(line, "//*") {
		return nil
	}
	return reExec.FindStringSubmatch(line)
}

// precedingComments collects the //* lines directly above lines[i], in order.
// It never looks above floor, the end of the previous captured step.
func precedingComments(lines []string, i, floor int) []string {
	var out []string
	for j := i - 1; j >= floor; j-- {
		l := lines[j]
		if strings.TrimSpace(l) == "" || !strings.HasPrefix(l, "//*") {
			break
		}
		out = append(out, strings.TrimSpace(l))
	}
	for a, b := 0, len(out)-1; a < b; a, b = a+1, b-1 {
		out[a], out[b] = out[b], out[a]
	}
	return out
}

// stepBlock returns the EXEC line plus the // statements under it, and the
// index where capture stopped (blank line, next EXEC, or EOF). Inline data
// and /* delimiters are passed over.
func stepBlock(lines []string, i int) ([]string, int) {
	block := []string{strings.TrimSpace(lines[i])}
	j := i + 1
	for ; j < len(lines); j++ {
		l := lines[j]
		if strings.TrimSpace(l) == "" || matchExec(l) != nil {
			break
		}
		if strings.HasPrefix(l, "//") {
			block = append(block, strings.TrimSpace(l))
		}
	}
	return block, j
}

// inlineData returns the records following the first SYSIN DD * in lines, up
// to the next // statement or /* delimiter.
func inlineData(lines []string) string {
	var out []string
	in := false
	for _, l := range lines {
		if !in {
			in = reSysinInline.MatchString(l)
			continue
		}
		if strings.HasPrefix(l, "//") || strings.HasPrefix(l, "/*") {
			break
		}
		out = append(out, strings.TrimRight(l, " \t"))
	}
	return strings.Join(out, "\n")
}

// applySysin records the first SYSIN DD of the block.
func applySysin(st *ir.ExtractedStep, block []string, cntlLib string) {
	for _, l := range block[1:] {
		switch {
		case reSysinInline.MatchString(l):
			st.SysinType = ir.SysinInline
			st.SysinStatement = l
			return
		case reSysinDSN.MatchString(l):
			st.SysinType = ir.SysinControlCard
			st.SysinStatement = l
			if m := reMember.FindStringSubmatch(l); m != nil {
				st.ControlCardMember = strings.TrimSpace(m[1])
				st.ControlCardContent = resolver.ControlCard(cntlLib, st.ControlCardMember)
			}
			return
		}
	}
}
