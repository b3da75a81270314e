package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/reporting"
	"github.com/acrajesh/automationaccelerator/internal/shared"
)

func reportCmd(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	runID := fs.String("run", "", "Run ID")
	fromJSON := fs.String("json", "", "Render from a JSON run dump instead of the database")
	outDir := fs.String("out", "", "Output directory")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args)

	cfg := loadConfig(*configPath)
	applyCommon(&cfg, 0, *outDir, *dbPath)
	if *runID == "" && *fromJSON == "" {
		fmt.Fprintln(os.Stderr, "report: --run or --json is required")
		os.Exit(2)
	}

	var run ir.Run
	if *fromJSON != "" {
		var err error
		if run, err = reporting.ReadJSON(*fromJSON); err != nil {
			fatal(fmt.Errorf("read %s: %w", *fromJSON, err))
		}
	} else {
		run = loadStoredRun(cfg, *runID)
	}
	out := writeReports(cfg, &run)
	for _, err := range out.errs {
		fmt.Fprintln(os.Stderr, "report error:", err)
	}
	fmt.Printf("Report OK\n  Run: %s\n", run.ID)
	for _, p := range out.paths {
		fmt.Printf("  %s\n", p)
	}
}

func diffCmd(args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	base := fs.String("base", "", "Base run ID")
	head := fs.String("head", "", "Head run ID")
	outDir := fs.String("out", "", "Output directory")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args)

	cfg := loadConfig(*configPath)
	applyCommon(&cfg, 0, *outDir, *dbPath)
	if *base == "" || *head == "" {
		fmt.Fprintln(os.Stderr, "diff: --base and --head are required")
		os.Exit(2)
	}
	br := loadStoredRun(cfg, *base)
	hr := loadStoredRun(cfg, *head)
	path, err := reporting.WriteDiffJSON(cfg.Output.Directory, &br, &hr)
	if err != nil {
		fatal(err)
	}
	d := reporting.Compare(&br, &hr)
	fmt.Printf("Diff OK\n  %s\n  usages +%d -%d  findings +%d -%d ~%d\n", path,
		d.Summary.NewUsages, d.Summary.RemovedUsages, d.Summary.NewCount, d.Summary.RemovedCount, d.Summary.ChangedCount)
}

func loadStoredRun(cfg shared.Config, id string) ir.Run {
	db, err := openDB(cfg)
	if err != nil {
		fatal(err)
	}
	defer db.Close()
	ok, err := db.HasRun(id)
	if err != nil {
		fatal(err)
	}
	if !ok {
		fmt.Fprintf(os.Stderr, "run %s not found in %s\n", id, cfg.Database.DSN)
		os.Exit(1)
	}
	run, err := db.LoadRun(id)
	if err != nil {
		fatal(fmt.Errorf("load run %s: %w", id, err))
	}
	return run
}
