package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/shared"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "jcl":
		jclCmd(os.Args[2:])
	case "cobol":
		callCmd("cobol", os.Args[2:])
	case "asm":
		callCmd("asm", os.Args[2:])
	case "ims":
		imsCmd(os.Args[2:])
	case "report":
		reportCmd(os.Args[2:])
	case "diff":
		diffCmd(os.Args[2:])
	case "serve":
		serveCmd(os.Args[2:])
	case "useradd":
		useraddCmd(os.Args[2:])
	case "version":
		fmt.Println("utilscan IR:", ir.Version)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `utilscan – mainframe utility usage scanner

Usage:
  utilscan jcl     [--config ./configs/utilscan.yaml] [--jcl DIR] [--cntllib DIR] [--proc DIR] [--threads N] [--out DIR] [--db FILE] [--no-db]
  utilscan cobol   [--config ...] [--src DIR] [--utilities FILE] [--threads N] [--out DIR] [--db FILE] [--no-db]
  utilscan asm     [--config ...] [--src DIR] [--utilities FILE] [--threads N] [--out DIR] [--db FILE] [--no-db]
  utilscan ims     [--config ...] [--cobol DIR] [--copybooks DIR] [--asm DIR] [--threads N] [--out DIR] [--db FILE] [--no-db]
  utilscan report  (--run <run-id> | --json FILE) [--out DIR] [--db FILE] [--config ...]
  utilscan diff    --base <run-id> --head <run-id> [--out DIR] [--db FILE] [--config ...]
  utilscan serve   [--addr :8080] [--db FILE] [--config ...]
  utilscan useradd --username NAME --password PW [--role admin|viewer] [--db FILE] [--config ...]
  utilscan version
`)
}

// loadConfig loads the config and initializes logging. Configuration errors
// end the process with status 2.
func loadConfig(path string) shared.Config {
	cfg, err := shared.LoadConfig(path)
	shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)
	if err != nil {
		fatal(err)
	}
	return cfg
}

func fatal(err error) {
	slog.Error("fatal", "err", err)
	fmt.Fprintln(os.Stderr, "error:", err)
	if errors.Is(err, shared.ErrConfig) {
		os.Exit(2)
	}
	os.Exit(1)
}
