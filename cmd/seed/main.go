package main

import (
	"bytes"
	"context"
	_ "embed"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/oddsvault-backend/internal/plans"
	"github.com/angelmondragon/oddsvault-backend/pkg/config"
	"github.com/angelmondragon/oddsvault-backend/pkg/db"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
)

//go:embed catalog.yaml
var defaultCatalog []byte

func main() {
	logg := logger.New(logger.Options{ServiceName: "seed"})
	_ = godotenv.Load()

	file := flag.String("file", "", "plan catalog YAML (defaults to the embedded catalog)")
	dryRun := flag.Bool("dry-run", false, "parse the catalog and exit")
	flag.Parse()

	catalog, err := readCatalog(*file)
	requireResource(logg, "catalog", err)
	if *dryRun {
		fmt.Printf("catalog ok: %d plans\n", len(catalog.Plans))
		return
	}

	cfg, err := config.Load()
	requireResource(logg, "config", err)
	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithField(context.Background(), "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(logg, "database", err)
	defer dbClient.Close()

	svc, err := plans.NewService(plans.ServiceParams{
		Repo:        plans.NewRepository(dbClient.DB()),
		HomeCountry: cfg.Subscription.HomeCountry,
	})
	requireResource(logg, "plans service", err)

	result, err := plans.Seed(ctx, svc, catalog)
	if err != nil {
		logg.Error(ctx, "seed failed", err)
		os.Exit(1)
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"plans_created": result.Created,
		"plans_updated": result.Updated,
		"prices":        result.Prices,
	}), "seed complete")
}

func readCatalog(path string) (*plans.Catalog, error) {
	var r io.Reader = bytes.NewReader(defaultCatalog)
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return plans.LoadCatalog(r)
}

func requireResource(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
