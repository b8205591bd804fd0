// Command ingest loads one pricing feed into the database and prints the
// row summary as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/app"
	"github.com/pricelens/backend/internal/infrastructure/csvfeed"
	"github.com/pricelens/backend/internal/usecase"
)

func main() {
	fs := pflag.NewFlagSet("ingest", pflag.ExitOnError)
	config.BindFlags(fs)
	file := fs.StringP("file", "f", "", "feed to ingest (defaults to ingest.default_file)")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := app.InitLogger(os.Stderr, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to open storage", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	// Reports are cached per server process; a standalone run has nothing to clear.
	svc := usecase.NewIngestService(store, csvfeed.Opener{}, nil, usecase.IngestServiceConfig{
		DefaultFile: cfg.Ingest.DefaultFile,
	})

	summary, err := svc.Ingest(ctx, *file)
	if err != nil {
		logger.Error("ingestion failed", "err", err)
		store.Close()
		os.Exit(1)
	}

	if err := json.NewEncoder(os.Stdout).Encode(summary); err != nil {
		logger.Error("failed to write summary", "err", err)
	}
}
