package lexicon

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/MimeLyc/xieyin/pkg/log"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteStore keeps lexicon entries in a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// OpenSQLiteStore behaves like NewSQLiteStore, except that an existing file
// that cannot be opened as a database is renamed with a ".corrupt-<time>"
// suffix and a fresh database is created in its place.
func OpenSQLiteStore(dbPath string) (*SQLiteStore, error) {
	store, err := NewSQLiteStore(dbPath)
	if err == nil {
		return store, nil
	}
	if _, statErr := os.Stat(dbPath); statErr != nil {
		return nil, err
	}

	moved := fmt.Sprintf("%s.corrupt-%s", dbPath, time.Now().UTC().Format("20060102T150405"))
	log.Warn("Failed to open sqlite cache %s, moving it to %s: %v", dbPath, moved, err)
	if renameErr := os.Rename(dbPath, moved); renameErr != nil {
		return nil, errors.Join(err, fmt.Errorf("move corrupt db: %w", renameErr))
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Rename(dbPath+suffix, moved+suffix)
	}
	return NewSQLiteStore(dbPath)
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(path.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

func (s *SQLiteStore) Load(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT word, homophone FROM lexicon_entries`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make(map[string]string)
	for rows.Next() {
		var word, homophone string
		if err := rows.Scan(&word, &homophone); err != nil {
			return nil, err
		}
		ret[word] = homophone
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

// Save upserts the snapshot in one transaction. The lexicon never drops keys,
// so upserting every entry leaves the table equal to the snapshot.
func (s *SQLiteStore) Save(ctx context.Context, entries map[string]string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO lexicon_entries (word, homophone, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(word) DO UPDATE SET
			homophone=excluded.homophone,
			updated_at=excluded.updated_at
		 WHERE lexicon_entries.homophone <> excluded.homophone`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for word, homophone := range entries {
		if _, err = stmt.ExecContext(ctx, word, homophone, now); err != nil {
			return fmt.Errorf("upsert %q: %w", word, err)
		}
	}
	return tx.Commit()
}
