package main

// Manage the client_state table used by STORAGE_BACKEND=postgres:
//   go run ./cmd/migrate            apply pending migrations
//   go run ./cmd/migrate -down      revert the last migration
//   go run ./cmd/migrate -version   print the applied version

import (
	"context"
	"flag"
	"log"
	"os"

	"signaware-client/internal/shared/config"
	"signaware-client/internal/shared/storage/db"
)

func main() {
	down := flag.Bool("down", false, "revert the most recent migration")
	versionOnly := flag.Bool("version", false, "print the applied schema version and exit")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	switch {
	case *versionOnly:
	case *down:
		if err := db.RollbackMigration(ctx, sqlDB); err != nil {
			log.Printf("failed to roll back migration: %v", err)
			os.Exit(1)
		}
	default:
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			log.Printf("failed to run migrations: %v", err)
			os.Exit(1)
		}
	}

	version, err := db.SchemaVersion(ctx, sqlDB)
	if err != nil {
		log.Printf("failed to read schema version: %v", err)
		os.Exit(1)
	}
	log.Printf("client_state schema version %d", version)
}
