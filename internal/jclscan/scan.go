package jclscan

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/resolver"
	"github.com/acrajesh/automationaccelerator/internal/shared"
)

const FileTypeJCL = "JCL"

type Options struct {
	Root      string
	Exts      []string // default: .jcl
	FileType  string
	Utilities map[string]bool
	CntlLib   string
	ProcLibs  []string
	Threads   int
	Resolver  *resolver.Resolver
	Diag      shared.Diagnostics
}

type Result struct {
	Steps  []ir.ExtractedStep
	Skips  []ir.Skip
	Files  int
	Failed int
}

// Sort orders steps by program, file and line. Worker order is not stable,
// so anything rendered from a Result should sort first.
func (r *Result) Sort() {
	sort.SliceStable(r.Steps, func(i, j int) bool {
		a, b := r.Steps[i], r.Steps[j]
		if a.Program != b.Program {
			return a.Program < b.Program
		}
		if a.Key() != b.Key() {
			return a.Key() < b.Key()
		}
		return a.Line < b.Line
	})
	sort.SliceStable(r.Skips, func(i, j int) bool {
		if r.Skips[i].Path != r.Skips[j].Path {
			return r.Skips[i].Path < r.Skips[j].Path
		}
		return r.Skips[i].Reason < r.Skips[j].Reason
	})
}

// ProcessFiles runs a JCL scan from configuration. Configuration problems are
// returned before any file is read; per-file problems only reach diag.
func ProcessFiles(ctx context.Context, cfg shared.Config, diag shared.Diagnostics) (Result, error) {
	if err := cfg.ValidateJCL(); err != nil {
		return Result{}, err
	}
	utils := ir.Utilities{Default: cfg.DefaultUtilities, Custom: cfg.CustomUtilities}
	return Scan(ctx, Options{
		Root:      cfg.Directories.JCL,
		FileType:  FileTypeJCL,
		Utilities: utils.All(),
		CntlLib:   cfg.Directories.CNTLLIB,
		ProcLibs:  cfg.ProcLibs(),
		Threads:   cfg.Performance.Threads,
		Resolver:  resolver.New(cfg.Resolver.CacheSize),
		Diag:      diag,
	})
}

// Scan enumerates Root, queues one task per file and drains the queue with
// min(Threads, files) workers. Each worker fills its own buffer; buffers are
// merged after all workers return.
func Scan(ctx context.Context, opts Options) (Result, error) {
	if opts.Threads <= 0 {
		opts.Threads = shared.DefaultThreads
	}
	if opts.FileType == "" {
		opts.FileType = FileTypeJCL
	}
	if len(opts.Exts) == 0 {
		opts.Exts = []string{".jcl"}
	}
	if opts.Resolver == nil {
		opts.Resolver = resolver.New(0)
	}
	diag := opts.Diag
	if diag == nil {
		diag = shared.NewSkipLog("")
	}

	paths, err := Enumerate(opts.Root, opts.Exts)
	if err != nil {
		return Result{}, err
	}
	tasks := make(chan ir.ScanTask, len(paths))
	for _, p := range paths {
		tasks <- ir.ScanTask{
			Path:      p,
			Rel:       RelPath(opts.Root, p),
			Utilities: opts.Utilities,
			FileType:  opts.FileType,
			CntlLib:   opts.CntlLib,
			ProcLibs:  opts.ProcLibs,
		}
	}
	close(tasks)

	workers := min(opts.Threads, len(paths))
	bufs := make([]Result, workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			buf := &bufs[w]
			for task := range tasks {
				if err := gctx.Err(); err != nil {
					return err
				}
				fr := runTask(task, opts.Resolver)
				buf.Files++
				for _, s := range fr.Skips {
					diag.Skip(s.Path, s.Reason)
				}
				buf.Skips = append(buf.Skips, fr.Skips...)
				if fr.Err != nil {
					buf.Failed++
					diag.Skip(task.Path, fr.Err.Error())
					buf.Skips = append(buf.Skips, ir.Skip{Path: task.Path, Reason: fr.Err.Error()})
					continue
				}
				buf.Steps = append(buf.Steps, fr.Steps...)
			}
			return nil
		})
	}
	werr := g.Wait()

	var out Result
	for _, b := range bufs {
		out.Steps = append(out.Steps, b.Steps...)
		out.Skips = append(out.Skips, b.Skips...)
		out.Files += b.Files
		out.Failed += b.Failed
	}
	slog.Info("jcl scan finished", "root", opts.Root, "files", out.Files, "steps", len(out.Steps),
		"skips", len(out.Skips), "failed", out.Failed, "workers", workers)
	return out, werr
}

// runTask isolates one file: a panic while extracting drops that file only.
func runTask(task ir.ScanTask, res *resolver.Resolver) (fr FileResult) {
	defer func() {
		if r := recover(); r != nil {
			fr = FileResult{Path: task.Path, Err: fmt.Errorf("extract %s: panic: %v", task.Path, r)}
		}
	}()
	return ExtractFile(task, res)
}

// RelPath returns p relative to root with forward slashes, or the base name
// when p is not under root.
func RelPath(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Base(p)
	}
	return filepath.ToSlash(rel)
}

// Enumerate lists files under root with one of exts (case-insensitive), in
// lexical walk order.
func Enumerate(root string, exts []string) ([]string, error) {
	st, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: source directory: %v", shared.ErrConfig, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%w: source directory: %s is not a directory", shared.ErrConfig, root)
	}
	var out []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("walk error", "path", p, "err", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		name := strings.ToLower(d.Name())
		for _, ext := range exts {
			if strings.HasSuffix(name, strings.ToLower(ext)) {
				out = append(out, p)
				break
			}
		}
		return nil
	})
	return out, err
}
