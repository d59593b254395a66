package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/meltforce/classpulse/internal/archive"
	"github.com/meltforce/classpulse/internal/config"
	"github.com/meltforce/classpulse/internal/engine"
	"github.com/meltforce/classpulse/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	sinceFlag := flag.String("since", "", "archive sessions ended at or after this time (RFC3339 or YYYY-MM-DD, default 30 days ago)")
	archiveDir := flag.String("archive-dir", "", "SQLite archive directory (overrides config)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	since := time.Now().AddDate(0, 0, -30)
	if *sinceFlag != "" {
		parsed, err := parseSince(*sinceFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -since value %q: %v\n", *sinceFlag, err)
			flag.PrintDefaults()
			os.Exit(1)
		}
		since = parsed
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dir := cfg.Archive.Dir
	if *archiveDir != "" {
		dir = *archiveDir
	}
	if dir == "" {
		log.Error("no archive directory configured; set archive.dir or pass -archive-dir")
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := storage.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	arch, err := archive.Open(dir)
	if err != nil {
		log.Error("failed to open archive", "dir", dir, "error", err)
		os.Exit(1)
	}
	defer arch.Close()

	eng := engine.New(db, db, db, log)
	ex := &archive.Exporter{Engine: eng, Store: db, Archive: arch}

	res, err := ex.Run(ctx, since)
	if err != nil {
		log.Error("export failed", "error", err)
		os.Exit(1)
	}

	total, err := arch.CountSessions(ctx)
	if err != nil {
		log.Warn("failed to count archived sessions", "error", err)
	}

	log.Info("export complete",
		"batch", res.Batch,
		"archived", res.Archived,
		"skipped", res.Skipped,
		"since", since.Format(time.RFC3339),
		"total_in_archive", total,
	)
}

func parseSince(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
