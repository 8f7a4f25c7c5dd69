// Package backup creates and restores point-in-time backups of the SQLite
// catalog database. Backups use VACUUM INTO, which produces a consistent
// snapshot even in WAL mode, and every backup is integrity-checked before it
// counts as done.
package backup

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Info describes one backup file.
type Info struct {
	Path      string
	Timestamp time.Time
	Size      int64
}

// Manager creates, lists, prunes, and restores catalog backups in a single
// backup directory.
type Manager struct {
	// Dir is the directory holding backup files.
	Dir string

	// Keep is the number of most recent backups retained by Prune.
	// Zero means keep everything.
	Keep int
}

// Create snapshots the database at sourcePath into a timestamped file in the
// backup directory, verifies it, and returns its Info. A backup that fails
// verification is removed and reported as an error.
func (m *Manager) Create(sourcePath string) (*Info, error) {
	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: failed to create backup directory: %w", err)
	}

	destPath := filepath.Join(m.Dir, fmt.Sprintf("werkbank-%s.db", time.Now().UTC().Format("20060102-150405")))

	src, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", sourcePath))
	if err != nil {
		return nil, fmt.Errorf("backup: failed to open source database: %w", err)
	}
	defer src.Close()

	if err := src.Ping(); err != nil {
		return nil, fmt.Errorf("backup: source database unreachable: %w", err)
	}

	if _, err := src.Exec(fmt.Sprintf("VACUUM INTO '%s'", destPath)); err != nil {
		return nil, fmt.Errorf("backup: snapshot failed: %w", err)
	}

	if err := Verify(destPath); err != nil {
		os.Remove(destPath)
		return nil, err
	}

	stat, err := os.Stat(destPath)
	if err != nil {
		return nil, fmt.Errorf("backup: failed to stat backup: %w", err)
	}

	return &Info{Path: destPath, Timestamp: stat.ModTime(), Size: stat.Size()}, nil
}

// Verify runs SQLite's integrity check against a backup file.
func Verify(path string) error {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return fmt.Errorf("backup: failed to open %s: %w", path, err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("backup: integrity check failed for %s: %w", path, err)
	}
	if result != "ok" {
		return fmt.Errorf("backup: %s is corrupt: %s", path, result)
	}
	return nil
}

// Restore verifies the backup and copies it over targetPath. The target
// database must not be open.
func Restore(backupPath, targetPath string) error {
	if err := Verify(backupPath); err != nil {
		return err
	}

	src, err := os.Open(backupPath)
	if err != nil {
		return fmt.Errorf("backup: failed to open backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(targetPath)
	if err != nil {
		return fmt.Errorf("backup: failed to create target: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("backup: failed to copy backup: %w", err)
	}
	if err := dst.Sync(); err != nil {
		return fmt.Errorf("backup: failed to sync target: %w", err)
	}

	return Verify(targetPath)
}

// List returns the backups in the backup directory, newest first. A missing
// directory is an empty list, not an error.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("backup: failed to read backup directory: %w", err)
	}

	var backups []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}
		stat, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, Info{
			Path:      filepath.Join(m.Dir, entry.Name()),
			Timestamp: stat.ModTime(),
			Size:      stat.Size(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// Prune deletes all but the Keep most recent backups and returns the number
// removed. Deletion continues past individual failures; the last failure is
// returned.
func (m *Manager) Prune() (int, error) {
	if m.Keep <= 0 {
		return 0, nil
	}

	backups, err := m.List()
	if err != nil {
		return 0, err
	}
	if len(backups) <= m.Keep {
		return 0, nil
	}

	removed := 0
	var lastErr error
	for _, b := range backups[m.Keep:] {
		if err := os.Remove(b.Path); err != nil {
			lastErr = err
			continue
		}
		removed++
	}
	if lastErr != nil {
		return removed, fmt.Errorf("backup: failed to delete some backups: %w", lastErr)
	}
	return removed, nil
}
