package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/liftstate/internal/config"
	"github.com/claude/liftstate/internal/importer"
	"github.com/claude/liftstate/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	setsPath := flag.String("sets", "", "path to set log CSV export")
	exercisesPath := flag.String("exercises", "", "path to exercise sheet CSV export")
	dryRun := flag.Bool("dry-run", false, "report counts without inserting into database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *setsPath == "" && *exercisesPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: liftstate-import -config config.yaml [-exercises export.csv] [-sets export.csv] [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()

	// Run migrations
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode — no data will be written to the database")
	}

	// Connect database
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	imp := importer.New(db, log, *dryRun)

	// Exercises first so the set rows can reference them.
	var stats *importer.Stats
	if *exercisesPath != "" {
		stats, err = imp.ImportExercises(ctx, *exercisesPath)
		if err != nil {
			log.Error("exercise import failed", "error", err)
			printStats(log, stats)
			os.Exit(1)
		}
	}
	if *setsPath != "" {
		stats, err = imp.ImportSets(ctx, *setsPath)
		if err != nil {
			log.Error("set import failed", "error", err)
			printStats(log, stats)
			os.Exit(1)
		}
	}

	printStats(log, stats)
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	if stats == nil {
		return
	}
	log.Info("import stats",
		"set_rows_inserted", stats.SetRowsInserted,
		"set_rows_skipped", stats.SetRowsSkipped,
		"exercises_inserted", stats.ExercisesInserted,
		"exercises_skipped", stats.ExercisesSkipped,
	)
}
