package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/csg33k/cps-dct/internal/adapters/infix"
	sqliteadapter "github.com/csg33k/cps-dct/internal/adapters/sqlite"
	"github.com/csg33k/cps-dct/internal/config"
	"github.com/csg33k/cps-dct/internal/handlers"
	"github.com/csg33k/cps-dct/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	layout, err := config.LoadLayout(cfg.LayoutConfig)
	if err != nil {
		log.Fatal(err)
	}

	repo, err := sqliteadapter.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer repo.Close()
	if err := repo.Migrate(context.Background()); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	p := pipeline.New(pipeline.Options{
		WorkDir:  cfg.WorkDir,
		IndexURL: cfg.IndexURL,
		Workers:  cfg.Workers,
	}, layout, logger).WithCatalog(repo)

	h := handlers.New(repo, infix.NewWithHints(layout.TypeHints()), p, logger)

	log.Printf("CPS dictionary server running on http://localhost:%s", cfg.Port)
	log.Printf("Database: %s  Work dir: %s", cfg.DBPath, cfg.WorkDir)
	if err := http.ListenAndServe(":"+cfg.Port, h.Routes()); err != nil {
		log.Fatal(err)
	}
}
