package main

import (
	"context"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"

	"battleship/internal/config"
	"battleship/internal/game"
	"battleship/internal/server"
	"battleship/internal/session"
	"battleship/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	variants := game.DefaultRegistry()
	rules, ok := variants.Get(cfg.Rules)
	if !ok {
		log.Fatalf("unknown rules %q", cfg.Rules)
	}

	store, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer store.Close()

	// Matches do not survive a restart, so neither do their rows.
	if n, err := store.Purge(); err != nil {
		log.Fatalf("purge match directory: %v", err)
	} else if n > 0 {
		log.Printf("purged %d stale matches", n)
	}

	dir := storage.NewDirectory(store, 256)
	defer dir.Close()

	mgr := session.NewManager(rules,
		session.WithRecorder(dir),
		session.WithSendBuffer(cfg.SendBuffer),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go dir.ReconcileLoop(ctx, cfg.ReconcileInterval, mgr.MatchIDs)

	var webFS fs.FS
	if cfg.WebDir != "" {
		webFS = os.DirFS(cfg.WebDir)
	}
	srv := &http.Server{Addr: cfg.Addr(), Handler: server.New(variants, mgr, store, webFS)}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	log.Printf("listening on %s (rules %s)", cfg.Addr(), rules.Name)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server: %v", err)
	}
}
