package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meltforce/classpulse/internal/archive"
	"github.com/meltforce/classpulse/internal/config"
	"github.com/meltforce/classpulse/internal/engine"
	"github.com/meltforce/classpulse/internal/models"
	"github.com/meltforce/classpulse/internal/server"
	"github.com/meltforce/classpulse/internal/storage"
	"github.com/meltforce/classpulse/internal/storage/memory"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	devMode := flag.Bool("dev", false, "in-memory store with seeded fixtures, no database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("ClassPulse starting", "version", Version)

	ctx := context.Background()

	var (
		eng      *engine.Engine
		store    engine.SessionStore
		listener net.Listener
		opsKey   string
		archDir  string
		tsCfg    config.TailscaleConfig
		addr     string
	)

	if *devMode {
		// Dev mode runs entirely in memory with a seeded class so the
		// API is exercisable without Postgres or gateway headers.
		mem := memory.New()
		seedDevFixtures(mem)
		store = mem
		eng = engine.New(mem, mem, mem, log)
		opsKey = "dev"
		addr = "127.0.0.1:8080"
		log.Info("dev mode: in-memory store, identity injected as coach user 1")
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}

		dsn := cfg.Database.DSN()
		if err := storage.RunMigrations(dsn, "migrations"); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")

		if *migrateOnly {
			log.Info("migrate-only: exiting")
			return
		}

		db, err := storage.New(ctx, dsn)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		log.Info("database connected")

		store = db
		eng = engine.New(db, db, db, log)
		opsKey = cfg.Auth.OpsAPIKey
		archDir = cfg.Archive.Dir
		tsCfg = cfg.Tailscale
		addr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	}

	srv := server.New(eng, opsKey, log)

	if archDir != "" {
		arch, err := archive.Open(archDir)
		if err != nil {
			log.Error("failed to open archive", "dir", archDir, "error", err)
			os.Exit(1)
		}
		defer arch.Close()
		srv.SetArchiver(&archive.Exporter{Engine: eng, Store: store, Archive: arch})
		log.Info("results archive enabled", "dir", archDir)
	}

	var handler http.Handler = srv
	if *devMode {
		handler = server.DevIdentity(srv)
	}

	// Start server, tsnet or plain HTTP
	var tsServer *tsnet.Server
	var err error

	if tsCfg.Enabled {
		tsServer = &tsnet.Server{
			Hostname: tsCfg.Hostname,
			Dir:      tsCfg.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", tsCfg.Hostname)
	} else {
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr)
	}

	httpSrv := &http.Server{Handler: handler}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

// seedDevFixtures registers a three-round FOR_TIME class coached by
// user 1 with three booked athletes, plus an AMRAP class for variety.
func seedDevFixtures(mem *memory.Store) {
	forTimeRounds := make([]models.Round, 3)
	for i := range forTimeRounds {
		forTimeRounds[i] = models.Round{
			Number: i + 1,
			Subrounds: []models.Subround{{
				Number: 1,
				Exercises: []models.Exercise{
					{Name: "Run 400m", Reps: 1},
					{Name: "KB Swings", Reps: 21},
					{Name: "Pull-ups", Reps: 12},
				},
			}},
		}
	}
	mem.SeedClass(
		models.Class{ID: 1, CoachID: 1, WorkoutID: 10},
		[]int64{1, 2, 3},
		&models.WorkoutDefinition{
			ID:             10,
			Name:           "Helen-ish",
			Type:           models.WorkoutForTime,
			TimeCapSeconds: 900,
			Rounds:         forTimeRounds,
		},
	)
	mem.SeedClass(
		models.Class{ID: 2, CoachID: 1, WorkoutID: 20},
		[]int64{2, 4},
		&models.WorkoutDefinition{
			ID:             20,
			Name:           "Cindy-ish",
			Type:           models.WorkoutAmrap,
			TimeCapSeconds: 1200,
			Rounds: []models.Round{{
				Number: 1,
				Subrounds: []models.Subround{{
					Number: 1,
					Exercises: []models.Exercise{
						{Name: "Pull-ups", Reps: 5},
						{Name: "Push-ups", Reps: 10},
						{Name: "Air Squats", Reps: 15},
					},
				}},
			}},
		},
	)
}
