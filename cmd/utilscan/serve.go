package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/acrajesh/automationaccelerator/internal/api"
	"github.com/acrajesh/automationaccelerator/internal/security"
)

func serveCmd(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	addr := fs.String("addr", "", "Listen address")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args)

	cfg := loadConfig(*configPath)
	applyCommon(&cfg, 0, "", *dbPath)
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	db, err := openDB(cfg)
	if err != nil {
		fatal(err)
	}
	defer db.Close()
	if n, err := db.PurgeSessions(time.Now()); err == nil && n > 0 {
		slog.Info("expired sessions purged", "count", n)
	}

	s := &api.Server{
		DB:              db,
		UserStore:       db,
		Logger:          slog.Default(),
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		SessionDuration: time.Duration(cfg.Server.SessionHours) * time.Hour,
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	slog.Info("api listening", "addr", cfg.Server.Addr, "db", cfg.Database.DSN)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal(err)
	}
}

func useraddCmd(args []string) {
	fs := flag.NewFlagSet("useradd", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	username := fs.String("username", "", "User name")
	password := fs.String("password", "", "Password")
	role := fs.String("role", "viewer", "Role: admin|viewer")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args)

	cfg := loadConfig(*configPath)
	applyCommon(&cfg, 0, "", *dbPath)
	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "useradd: --username and --password are required")
		os.Exit(2)
	}
	if *role != api.RoleAdmin && *role != "viewer" {
		fmt.Fprintln(os.Stderr, "useradd: --role must be admin or viewer")
		os.Exit(2)
	}

	db, err := openDB(cfg)
	if err != nil {
		fatal(err)
	}
	defer db.Close()

	hash, err := security.HashPassword(*password)
	if err != nil {
		fatal(err)
	}
	id, err := db.CreateUser(*username, hash, *role)
	if err != nil {
		fatal(fmt.Errorf("create user: %w", err))
	}
	fmt.Printf("User OK\n  %s (id %d, role %s)\n", *username, id, *role)
}
