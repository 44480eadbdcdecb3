package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/oddsvault-backend/pkg/config"
	"github.com/angelmondragon/oddsvault-backend/pkg/db"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
	"github.com/angelmondragon/oddsvault-backend/pkg/migrate"
)

const usage = `usage: migrate <command> [flags]

commands:
  up        apply pending migrations
  down      roll back the latest migration
  status    list migrations and when they were applied
  to        migrate up or down to -version
  create    write an empty migration named -name into -dir
  validate  check migration file names and goose markers
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	flags := flag.NewFlagSet(command, flag.ExitOnError)
	dir := flags.String("dir", "", "read migrations from this directory instead of the embedded set")
	name := flags.String("name", "", "migration name (create)")
	version := flags.String("version", "", "target version YYYYMMDDHHMMSS (to)")
	_ = flags.Parse(os.Args[2:])

	src := migrate.Embedded()
	if *dir != "" {
		src = migrate.FromDisk(*dir)
	}

	switch command {
	case "create":
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, *name, time.Now())
		exitOn(err)
		fmt.Println("created", path)
		return
	case "validate":
		exitOn(migrate.Validate(src))
		fmt.Println("migrations valid")
		return
	case "up", "down", "status", "to":
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	_ = godotenv.Load()
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	cfg, err := config.Load()
	exitOn(err)
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "command": command})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exitOn(err)
	defer dbClient.Close()
	sqlDB, err := dbClient.DB().DB()
	exitOn(err)
	dialect := migrate.DialectFor(cfg.DB.Driver)

	switch command {
	case "up":
		applied, err := migrate.Up(ctx, sqlDB, dialect, src)
		exitOn(err)
		logg.Info(logg.WithField(ctx, "applied", applied), "migrations applied")
	case "down":
		exitOn(migrate.Down(ctx, sqlDB, dialect, src))
		logg.Info(ctx, "rolled back one migration")
	case "to":
		exitOn(migrate.MigrateTo(ctx, sqlDB, dialect, src, *version))
		logg.Info(logg.WithField(ctx, "version", *version), "schema moved")
	case "status":
		statuses, err := migrate.Status(ctx, sqlDB, dialect, src)
		exitOn(err)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tFILE")
		for _, s := range statuses {
			applied := "-"
			if !s.AppliedAt.IsZero() {
				applied = s.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
		}
		_ = w.Flush()
	}
}

func exitOn(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "migrate:", err)
	os.Exit(1)
}
