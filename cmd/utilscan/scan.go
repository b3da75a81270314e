package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/acrajesh/automationaccelerator/internal/callscan"
	"github.com/acrajesh/automationaccelerator/internal/impact"
	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/jclscan"
	"github.com/acrajesh/automationaccelerator/internal/reporting"
	"github.com/acrajesh/automationaccelerator/internal/rules"
	"github.com/acrajesh/automationaccelerator/internal/rulesdsl"
	"github.com/acrajesh/automationaccelerator/internal/shared"
	"github.com/acrajesh/automationaccelerator/internal/storage"
)

func jclCmd(args []string) {
	fs := flag.NewFlagSet("jcl", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	jclDir := fs.String("jcl", "", "JCL directory")
	cntlDir := fs.String("cntllib", "", "Control card library directory")
	procDir := fs.String("proc", "", "PROC library directory")
	threads := fs.Int("threads", 0, "Worker count")
	outDir := fs.String("out", "", "Output directory for reports")
	dbPath := fs.String("db", "", "SQLite database path")
	noDB := fs.Bool("no-db", false, "Do not persist the run")
	_ = fs.Parse(args)

	cfg := loadConfig(*configPath)
	// precedence: flags > env > config > defaults
	if *jclDir != "" {
		cfg.Directories.JCL = *jclDir
	}
	if *cntlDir != "" {
		cfg.Directories.CNTLLIB = *cntlDir
	}
	if *procDir != "" {
		cfg.Directories.PROC = *procDir
		cfg.ProcLibraries = nil
	}
	applyCommon(&cfg, *threads, *outDir, *dbPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	run, err := scanJCL(ctx, cfg, shared.NewSkipLog(cfg.SkipLogPath()))
	if err != nil {
		fatal(err)
	}
	finishCmd(cfg, run, *noDB)
}

func callCmd(kind string, args []string) {
	fs := flag.NewFlagSet(kind, flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	srcDir := fs.String("src", "", "Source directory")
	utilsFile := fs.String("utilities", "", "Utility list file, one name per line")
	threads := fs.Int("threads", 0, "Worker count")
	outDir := fs.String("out", "", "Output directory for reports")
	dbPath := fs.String("db", "", "SQLite database path")
	noDB := fs.Bool("no-db", false, "Do not persist the run")
	_ = fs.Parse(args)

	cfg := loadConfig(*configPath)
	if *utilsFile != "" {
		cfg.UtilitiesFile = *utilsFile
	}
	applyCommon(&cfg, *threads, *outDir, *dbPath)

	lang := callscan.COBOL
	root := cfg.Directories.COBOL
	if kind == ir.KindASM {
		lang = callscan.ASM
		root = cfg.Directories.Assembler
	}
	if *srcDir != "" {
		root = *srcDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	run, err := scanCalls(ctx, cfg, lang, root, shared.NewSkipLog(cfg.SkipLogPath()))
	if err != nil {
		fatal(err)
	}
	finishCmd(cfg, run, *noDB)
}

func imsCmd(args []string) {
	fs := flag.NewFlagSet("ims", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	cobolDir := fs.String("cobol", "", "COBOL source directory")
	copyDir := fs.String("copybooks", "", "COBOL copybook directory")
	asmDir := fs.String("asm", "", "Assembler source directory")
	threads := fs.Int("threads", 0, "Worker count")
	outDir := fs.String("out", "", "Output directory for reports")
	dbPath := fs.String("db", "", "SQLite database path")
	noDB := fs.Bool("no-db", false, "Do not persist the run")
	_ = fs.Parse(args)

	cfg := loadConfig(*configPath)
	if *cobolDir != "" {
		cfg.Directories.COBOL = *cobolDir
	}
	if *copyDir != "" {
		cfg.Directories.Copybooks = *copyDir
	}
	if *asmDir != "" {
		cfg.Directories.Assembler = *asmDir
	}
	applyCommon(&cfg, *threads, *outDir, *dbPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	run, err := scanIMS(ctx, cfg, shared.NewSkipLog(cfg.SkipLogPath()))
	if err != nil {
		fatal(err)
	}
	finishCmd(cfg, run, *noDB)
}

func applyCommon(cfg *shared.Config, threads int, outDir, dbPath string) {
	if threads > 0 {
		cfg.Performance.Threads = threads
	}
	if outDir != "" {
		cfg.Output.Directory = outDir
	}
	if dbPath != "" {
		cfg.Database.DSN = dbPath
	}
}

func newRun(kind, source string, now time.Time) *ir.Run {
	return &ir.Run{
		ID:        fmt.Sprintf("%s-%s", kind, now.UTC().Format("20060102-150405.000")),
		Kind:      kind,
		StartedAt: now.UTC(),
		Source:    source,
		IRVersion: ir.Version,
	}
}

func scanJCL(ctx context.Context, cfg shared.Config, diag shared.Diagnostics) (*ir.Run, error) {
	run := newRun(ir.KindJCL, cfg.Directories.JCL, time.Now())
	res, err := jclscan.ProcessFiles(ctx, cfg, diag)
	if err != nil {
		return nil, err
	}
	res.Sort()
	run.Utilities = ir.Utilities{Default: cfg.DefaultUtilities, Custom: cfg.CustomUtilities}
	run.Steps = res.Steps
	run.Skips = res.Skips
	slog.Info("jcl scan complete", "run", run.ID, "files", res.Files, "steps", len(res.Steps), "skips", len(res.Skips))
	return run, nil
}

func scanCalls(ctx context.Context, cfg shared.Config, lang callscan.Lang, root string, diag shared.Diagnostics) (*ir.Run, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: %s source directory not configured", shared.ErrConfig, lang.Kind)
	}
	if cfg.UtilitiesFile == "" {
		return nil, fmt.Errorf("%w: utilities_file not configured", shared.ErrConfig)
	}
	ul, err := shared.LoadUtilities(cfg.UtilitiesFile)
	if err != nil {
		return nil, err
	}
	run := newRun(lang.Kind, root, time.Now())
	res, err := callscan.Scan(ctx, callscan.Options{
		Root:      root,
		Lang:      lang,
		Utilities: ul,
		Threads:   cfg.Performance.Threads,
		Diag:      diag,
	})
	if err != nil {
		return nil, err
	}
	res.Sort()
	run.Utilities = ir.Utilities{Default: ul.Sorted()}
	run.Calls = res.Calls
	run.Skips = res.Skips
	return run, nil
}

// scanIMS looks for DL/I calls in the configured COBOL and Assembler
// directories; at least one of them must be set.
func scanIMS(ctx context.Context, cfg shared.Config, diag shared.Diagnostics) (*ir.Run, error) {
	type target struct {
		lang callscan.Lang
		root string
	}
	var targets []target
	var roots []string
	if cfg.Directories.COBOL != "" {
		targets = append(targets, target{callscan.IMSCOBOL(cfg.Directories.Copybooks), cfg.Directories.COBOL})
		roots = append(roots, cfg.Directories.COBOL)
	}
	if cfg.Directories.Assembler != "" {
		targets = append(targets, target{callscan.IMSASM, cfg.Directories.Assembler})
		roots = append(roots, cfg.Directories.Assembler)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: ims scan needs a COBOL or ASSEMBLER directory", shared.ErrConfig)
	}

	run := newRun(ir.KindIMS, strings.Join(roots, ","), time.Now())
	run.Files = map[string]int{}
	var all callscan.Result
	for _, tg := range targets {
		res, err := callscan.Scan(ctx, callscan.Options{
			Root:    tg.root,
			Lang:    tg.lang,
			Threads: cfg.Performance.Threads,
			Diag:    diag,
		})
		if err != nil {
			return nil, err
		}
		run.Files[tg.lang.FileType] += res.Files
		all.Calls = append(all.Calls, res.Calls...)
		all.Skips = append(all.Skips, res.Skips...)
	}
	all.Sort()
	run.Calls = all.Calls
	run.Skips = all.Skips
	slog.Info("ims scan complete", "run", run.ID, "files", run.Files, "calls", len(run.Calls), "skips", len(run.Skips))
	return run, nil
}

// loadADRDSSU reads the ADRDSSU option matrix; no configured path means no
// ADRDSSU analysis.
func loadADRDSSU(cfg shared.Config) (*impact.Metadata, error) {
	if cfg.Impact.ADRDSSUMetadata == "" {
		return nil, nil
	}
	m, err := impact.LoadMetadata(cfg.Impact.ADRDSSUMetadata)
	if err != nil {
		return nil, fmt.Errorf("%w: adrdssu metadata: %v", shared.ErrConfig, err)
	}
	return m, nil
}

// applyRules evaluates the built-in rules and the configured rule pack over
// the run's steps, then drops findings covered by active waivers.
func applyRules(cfg shared.Config, run *ir.Run, waivers []storage.Waiver) error {
	disabled := map[string]bool{}
	for _, id := range cfg.Rules.Disabled {
		disabled[id] = true
	}
	meta, err := loadADRDSSU(cfg)
	if err != nil {
		return err
	}
	rules.SetSettings(rules.Settings{
		SeverityThreshold:         cfg.Rules.SeverityThreshold,
		Disabled:                  disabled,
		SortwkPrimaryCylThreshold: cfg.Rules.SortwkPrimaryCyl,
		ADRDSSU:                   meta,
	})
	if cfg.Rules.Pack != "" {
		n, err := rulesdsl.LoadAndRegister(cfg.Rules.Pack)
		if err != nil {
			return fmt.Errorf("%w: rule pack: %v", shared.ErrConfig, err)
		}
		slog.Info("rule pack loaded", "path", cfg.Rules.Pack, "rules", n)
	}
	findings := rules.Evaluate(run)
	kept, waived := rules.ApplyWaivers(findings, waivers, time.Now())
	if waived > 0 {
		slog.Info("waivers applied", "waived", waived)
	}
	run.Findings = kept
	return nil
}

type outputs struct {
	paths []string
	errs  []error
}

// writeReports renders every report for the run. A failed report is recorded
// and the others are still written.
func writeReports(cfg shared.Config, run *ir.Run) outputs {
	var out outputs
	add := func(p string, err error) {
		if err != nil {
			out.errs = append(out.errs, err)
			return
		}
		out.paths = append(out.paths, p)
	}
	dir := cfg.Output.Directory
	switch run.Kind {
	case ir.KindJCL:
		def, cus, err := reporting.WriteStepWorkbooks(dir, cfg.Output.Filename, cfg.Versioning(), run)
		for _, p := range []string{def, cus} {
			if p != "" {
				add(p, nil)
			}
		}
		if err != nil {
			add("", err)
		}
		if usesProgram(run, impact.Program) {
			meta, err := loadADRDSSU(cfg)
			switch {
			case err != nil:
				add("", err)
			case meta != nil:
				add(reporting.WriteADRDSSUWorkbook(dir, "adrdssu_impact_analysis", cfg.Versioning(), impact.Analyze(run.Steps, meta)))
			}
		}
	case ir.KindIMS:
		add(reporting.WriteIMSWorkbook(dir, "ims_impact_report", cfg.Versioning(), run))
	default:
		add(reporting.WriteCallWorkbook(dir, run.Kind+"_utilities_report", cfg.Versioning(), run))
	}
	add(reporting.WriteJSON(run.ID, dir, run))
	add(reporting.WriteHTML(run.ID, dir, run))
	return out
}

func usesProgram(run *ir.Run, pgm string) bool {
	for _, st := range run.Steps {
		if st.Program == pgm {
			return true
		}
	}
	return false
}

func finishCmd(cfg shared.Config, run *ir.Run, noDB bool) {
	var db *storage.DB
	var waivers []storage.Waiver
	if !noDB {
		var err error
		if db, err = openDB(cfg); err != nil {
			fatal(err)
		}
		defer db.Close()
		if waivers, err = db.ListWaivers(true); err != nil {
			slog.Warn("waivers unavailable", "err", err)
		}
	}
	if run.Kind == ir.KindJCL {
		if err := applyRules(cfg, run, waivers); err != nil {
			fatal(err)
		}
	}
	if db != nil {
		if err := db.SaveRun(run); err != nil {
			slog.Error("db save run error", "err", err)
		}
	}

	out := writeReports(cfg, run)
	for _, err := range out.errs {
		slog.Error("report error", "err", err)
	}
	printSummary(run, out)
}

func printSummary(run *ir.Run, out outputs) {
	sum := reporting.Summarize(run)
	fmt.Printf("Scan OK\n  Run: %s (%s)\n  Source: %s\n", run.ID, run.Kind, run.Source)
	fmt.Printf("  Steps: %d  Calls: %d  Skips: %d  Findings: %d\n",
		len(run.Steps), len(run.Calls), len(run.Skips), len(run.Findings))
	for _, p := range out.paths {
		fmt.Printf("  Report: %s\n", p)
	}
	if len(out.errs) > 0 {
		fmt.Printf("  Report errors: %d (see log)\n", len(out.errs))
	}
	if len(sum.MissingDefault) > 0 {
		fmt.Printf("  Default utilities not found: %s\n", strings.Join(sum.MissingDefault, ", "))
	}
	if len(sum.MissingCustom) > 0 {
		fmt.Printf("  Custom utilities not found: %s\n", strings.Join(sum.MissingCustom, ", "))
	}
}

func openDB(cfg shared.Config) (*storage.DB, error) {
	db, err := storage.OpenSQLite(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := db.CreateSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("db schema: %w", err)
	}
	return db, nil
}
