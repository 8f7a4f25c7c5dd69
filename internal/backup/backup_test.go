package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/werkbank/werkbank/internal/storage/sqlite"
	"github.com/werkbank/werkbank/pkg/types"
)

func seedTestDatabase(t *testing.T, path string) {
	t.Helper()

	store, err := sqlite.New(path)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.SeedCategoryKeyword(ctx, "tools", "drill"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := store.SeedProduct(ctx, &types.ProductCandidate{ID: "p_drill", Name: "Drill", Category: "tools"}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
}

func TestCreateVerifyRestore(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "werkbank.db")
	seedTestDatabase(t, dbPath)

	mgr := &Manager{Dir: filepath.Join(dir, "backups")}

	info, err := mgr.Create(dbPath)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if info.Size == 0 {
		t.Error("expected a non-empty backup file")
	}
	if err := Verify(info.Path); err != nil {
		t.Errorf("Verify failed: %v", err)
	}

	// Restore into a fresh location and check the data survived.
	restoredPath := filepath.Join(dir, "restored.db")
	if err := Restore(info.Path, restoredPath); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	store, err := sqlite.New(restoredPath)
	if err != nil {
		t.Fatalf("failed to open restored database: %v", err)
	}
	defer store.Close()

	product, err := store.Product(context.Background(), "p_drill")
	if err != nil {
		t.Fatalf("restored database is missing data: %v", err)
	}
	if product.Name != "Drill" {
		t.Errorf("unexpected restored product: %+v", product)
	}
}

func TestVerifyRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.db")
	if err := os.WriteFile(path, []byte("not a database"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if err := Verify(path); err == nil {
		t.Error("expected verification to fail for a corrupt file")
	}
}

func TestListNewestFirst(t *testing.T) {
	dir := t.TempDir()
	mgr := &Manager{Dir: dir}

	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"werkbank-a.db", "werkbank-b.db", "werkbank-c.db"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		ts := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(path, ts, ts); err != nil {
			t.Fatalf("failed to set mtime: %v", err)
		}
	}
	// Non-backup files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("expected 3 backups, got %d", len(backups))
	}
	if filepath.Base(backups[0].Path) != "werkbank-c.db" {
		t.Errorf("expected newest first, got %s", backups[0].Path)
	}
}

func TestListMissingDirectory(t *testing.T) {
	mgr := &Manager{Dir: filepath.Join(t.TempDir(), "nope")}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("a missing directory must not error: %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("expected no backups, got %d", len(backups))
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	mgr := &Manager{Dir: dir, Keep: 2}

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		path := filepath.Join(dir, fmt.Sprintf("werkbank-%d.db", i))
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		ts := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(path, ts, ts); err != nil {
			t.Fatalf("failed to set mtime: %v", err)
		}
	}

	removed, err := mgr.Prune()
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("expected 3 backups removed, got %d", removed)
	}

	remaining, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(remaining) != 2 {
		t.Errorf("expected 2 backups to remain, got %d", len(remaining))
	}
}

func TestPruneDisabled(t *testing.T) {
	dir := t.TempDir()
	mgr := &Manager{Dir: dir}

	if err := os.WriteFile(filepath.Join(dir, "werkbank-x.db"), []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	removed, err := mgr.Prune()
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("Keep=0 must not delete anything, removed %d", removed)
	}
}
