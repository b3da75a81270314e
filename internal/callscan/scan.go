package callscan

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/jclscan"
	"github.com/acrajesh/automationaccelerator/internal/shared"
	"github.com/acrajesh/automationaccelerator/internal/source"
)

// Lang selects the scanner and the default file extensions.
type Lang struct {
	Kind     string
	FileType string
	Exts     []string
	scan     func(path string, lines []string, m *matcher) []ir.CallSite
}

var (
	COBOL = Lang{Kind: ir.KindCOBOL, FileType: FileTypeCOBOL, Exts: []string{".cob", ".cbl", ".cobol"}, scan: scanCOBOL}
	ASM   = Lang{Kind: ir.KindASM, FileType: FileTypeASM, Exts: []string{".asm", ".s", ".asmb"}, scan: scanASM}
)

type Options struct {
	Root      string
	Lang      Lang
	Utilities shared.UtilityList
	Threads   int
	Diag      shared.Diagnostics
}

type Result struct {
	Calls  []ir.CallSite
	Skips  []ir.Skip
	Files  int
	Failed int
}

func (r *Result) Sort() {
	sort.SliceStable(r.Calls, func(i, j int) bool {
		a, b := r.Calls[i], r.Calls[j]
		if a.Utility != b.Utility {
			return a.Utility < b.Utility
		}
		if a.Key() != b.Key() {
			return a.Key() < b.Key()
		}
		return a.Line < b.Line
	})
}

// ScanLines runs one language scanner over in-memory lines.
func ScanLines(lang Lang, path string, lines []string, ul shared.UtilityList) []ir.CallSite {
	return lang.scan(path, lines, newMatcher(ul))
}

// Scan mirrors jclscan.Scan: a pre-filled queue drained by min(Threads, files)
// workers with per-worker buffers and per-file failure isolation.
func Scan(ctx context.Context, opts Options) (Result, error) {
	if opts.Threads <= 0 {
		opts.Threads = shared.DefaultThreads
	}
	if opts.Lang.scan == nil {
		return Result{}, fmt.Errorf("%w: unknown source language", shared.ErrConfig)
	}
	diag := opts.Diag
	if diag == nil {
		diag = shared.NewSkipLog("")
	}
	paths, err := jclscan.Enumerate(opts.Root, opts.Lang.Exts)
	if err != nil {
		return Result{}, err
	}
	queue := make(chan string, len(paths))
	for _, p := range paths {
		queue <- p
	}
	close(queue)

	workers := min(opts.Threads, len(paths))
	bufs := make([]Result, workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			buf := &bufs[w]
			m := newMatcher(opts.Utilities)
			for p := range queue {
				if err := gctx.Err(); err != nil {
					return err
				}
				buf.Files++
				calls, err := scanFile(opts.Lang, p, m)
				if err != nil {
					buf.Failed++
					diag.Skip(p, err.Error())
					buf.Skips = append(buf.Skips, ir.Skip{Path: p, Reason: err.Error()})
					continue
				}
				rel := jclscan.RelPath(opts.Root, p)
				for i := range calls {
					calls[i].Path = rel
				}
				buf.Calls = append(buf.Calls, calls...)
			}
			return nil
		})
	}
	werr := g.Wait()

	var out Result
	for _, b := range bufs {
		out.Calls = append(out.Calls, b.Calls...)
		out.Skips = append(out.Skips, b.Skips...)
		out.Files += b.Files
		out.Failed += b.Failed
	}
	slog.Info("call scan finished", "kind", opts.Lang.Kind, "root", opts.Root,
		"files", out.Files, "calls", len(out.Calls), "failed", out.Failed)
	return out, werr
}

func scanFile(lang Lang, path string, m *matcher) (calls []ir.CallSite, err error) {
	defer func() {
		if r := recover(); r != nil {
			calls, err = nil, fmt.Errorf("scan %s: panic: %v", path, r)
		}
	}()
	lines, err := source.ReadLines(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lang.scan(path, lines, m), nil
}
