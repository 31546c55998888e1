// Package drafts keeps built but unsubmitted orders in a local SQLite file so
// a restarted client picks up where the player left off.
package drafts

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/DoyleJ11/dipclient/internal/orders"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens and migrates the store at path. ":memory:" gives a private
// in-memory database.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("drafts path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one connection keeps ":memory:" a single database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	files, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, file := range files {
		var n int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE name = ?`, file).Scan(&n); err != nil {
			return fmt.Errorf("check migration %s: %w", file, err)
		}
		if n > 0 {
			continue
		}
		body, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`, file, time.Now().UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		s.logger.Debug("applied migration", zap.String("file", file))
	}
	return nil
}

// Save replaces the drafts of (code, phase) with built.
func (s *Store) Save(ctx context.Context, code, phase string, built []orders.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save drafts: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM drafts WHERE code = ? AND phase = ?`, code, phase); err != nil {
		return fmt.Errorf("save drafts: %w", err)
	}
	now := time.Now().UnixMilli()
	for _, o := range built {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO drafts (code, phase, origin, order_text, updated_at) VALUES (?, ?, ?, ?, ?)`,
			code, phase, o.Origin, o.Text(), now,
		); err != nil {
			return fmt.Errorf("save draft %s: %w", o.Origin, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save drafts: %w", err)
	}
	return nil
}

// Load returns the drafts of (code, phase). Rows that no longer parse are
// dropped with a warning.
func (s *Store) Load(ctx context.Context, code, phase string) ([]orders.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT origin, order_text FROM drafts WHERE code = ? AND phase = ? ORDER BY origin`,
		code, phase,
	)
	if err != nil {
		return nil, fmt.Errorf("load drafts: %w", err)
	}
	defer rows.Close()

	var out []orders.Order
	for rows.Next() {
		var origin, text string
		if err := rows.Scan(&origin, &text); err != nil {
			return nil, fmt.Errorf("load drafts: %w", err)
		}
		o, err := orders.Parse(origin, text)
		if err != nil {
			s.logger.Warn("dropping unreadable draft", zap.String("origin", origin), zap.String("order", text), zap.Error(err))
			continue
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Purge deletes the drafts of code for every phase except keepPhase.
func (s *Store) Purge(ctx context.Context, code, keepPhase string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE code = ? AND phase <> ?`, code, keepPhase); err != nil {
		return fmt.Errorf("purge drafts: %w", err)
	}
	return nil
}
