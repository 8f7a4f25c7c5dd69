// cmd/werkbank-setup seeds a Werkbank storage backend from a YAML seed file:
// keyword mappings, product catalog, interaction history, and compatibility
// edges. Re-running an import is safe; seed operations use upsert semantics.
// It also creates and restores backups of the SQLite catalog.
//
// Usage:
//
//	werkbank-setup -seed seed.yaml
//	werkbank-setup -backup [-keep 7]
//	werkbank-setup -restore backups/werkbank-20260828-120000.db
//
// The backend is selected by WERKBANK_STORAGE_ENGINE (sqlite or postgres).
// Backup and restore apply to the sqlite backend only.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/werkbank/werkbank/internal/backup"
	"github.com/werkbank/werkbank/internal/config"
	"github.com/werkbank/werkbank/internal/importer"
	"github.com/werkbank/werkbank/internal/storage"
	"github.com/werkbank/werkbank/internal/storage/postgres"
	"github.com/werkbank/werkbank/internal/storage/sqlite"
)

func main() {
	log.SetOutput(os.Stderr)

	seedPath := flag.String("seed", "", "path to the YAML seed file")
	doBackup := flag.Bool("backup", false, "create a backup of the sqlite catalog")
	keep := flag.Int("keep", 0, "number of backups to retain after -backup (0 keeps all)")
	restorePath := flag.String("restore", "", "restore the sqlite catalog from the given backup file")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("werkbank-setup: %v", err)
	}

	switch {
	case *doBackup:
		runBackup(cfg, *keep)
		return
	case *restorePath != "":
		runRestore(cfg, *restorePath)
		return
	case *seedPath == "":
		fmt.Fprintln(os.Stderr, "usage: werkbank-setup -seed seed.yaml | -backup [-keep n] | -restore file")
		os.Exit(2)
	}

	seed, err := importer.Load(*seedPath)
	if err != nil {
		log.Fatalf("werkbank-setup: %v", err)
	}

	seeder, closeStore, err := openSeeder(cfg)
	if err != nil {
		log.Fatalf("werkbank-setup: %v", err)
	}
	defer closeStore()

	if err := seed.Apply(context.Background(), seeder); err != nil {
		log.Fatalf("werkbank-setup: import failed: %v", err)
	}

	log.Printf("werkbank-setup: import complete (%s backend)", cfg.Storage.StorageEngine)
}

// runBackup snapshots the sqlite catalog into DataPath/backups and applies
// the keep-N retention.
func runBackup(cfg *config.Config, keep int) {
	if cfg.Storage.StorageEngine != "sqlite" {
		log.Fatalf("werkbank-setup: -backup supports the sqlite backend only, configured engine is %s", cfg.Storage.StorageEngine)
	}

	mgr := &backup.Manager{
		Dir:  filepath.Join(cfg.Storage.DataPath, "backups"),
		Keep: keep,
	}

	info, err := mgr.Create(filepath.Join(cfg.Storage.DataPath, "werkbank.db"))
	if err != nil {
		log.Fatalf("werkbank-setup: %v", err)
	}
	log.Printf("werkbank-setup: backup written to %s (%d bytes)", info.Path, info.Size)

	removed, err := mgr.Prune()
	if err != nil {
		log.Fatalf("werkbank-setup: %v", err)
	}
	if removed > 0 {
		log.Printf("werkbank-setup: pruned %d old backups", removed)
	}
}

// runRestore replaces the sqlite catalog with a verified backup.
func runRestore(cfg *config.Config, backupPath string) {
	if cfg.Storage.StorageEngine != "sqlite" {
		log.Fatalf("werkbank-setup: -restore supports the sqlite backend only, configured engine is %s", cfg.Storage.StorageEngine)
	}

	target := filepath.Join(cfg.Storage.DataPath, "werkbank.db")
	if err := backup.Restore(backupPath, target); err != nil {
		log.Fatalf("werkbank-setup: %v", err)
	}
	log.Printf("werkbank-setup: restored %s from %s", target, backupPath)
}

// openSeeder opens the configured backend for writing.
func openSeeder(cfg *config.Config) (storage.Seeder, func(), error) {
	switch cfg.Storage.StorageEngine {
	case "postgres":
		store, err := postgres.New(cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		store, err := sqlite.New(filepath.Join(cfg.Storage.DataPath, "werkbank.db"))
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}
}
