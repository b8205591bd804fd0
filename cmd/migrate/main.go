// Command migrate applies the embedded schema migrations and exits.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/app"
)

func main() {
	fs := pflag.NewFlagSet("migrate", pflag.ExitOnError)
	config.BindFlags(fs)
	driver := fs.String("driver", "", "database driver, overrides configuration (postgres or sqlite)")
	dsn := fs.String("dsn", "", "database DSN, overrides configuration")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *driver != "" {
		cfg.Database.Driver = *driver
	}
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}
	cfg.Database.AutoMigrate = true

	logger := app.InitLogger(os.Stderr, cfg.Log.Level)

	store, err := app.OpenStore(context.Background(), cfg.Database)
	if err != nil {
		logger.Error("migration failed", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	logger.Info("schema is up to date", "driver", cfg.Database.Driver)
}
