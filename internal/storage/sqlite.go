package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"quotebot/internal/quotes"
	logx "quotebot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SampleRandom pulls up to n uniformly random rows. ORDER BY RANDOM() is a
// full scan, which is exactly why the serving layer batches: one scan serves
// n requests.
func (s *sqliteStore) SampleRandom(ctx context.Context, n int) ([]quotes.Quote, error) {
	if n <= 0 {
		return nil, fmt.Errorf("sample size must be positive, got %d", n)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT quote_number, date, rating, text FROM quotes ORDER BY RANDOM() LIMIT ?`, n)
	if err != nil {
		return nil, unavailable("sample quotes", err)
	}
	defer rows.Close()

	out := make([]quotes.Quote, 0, n)
	for rows.Next() {
		var q quotes.Quote
		if err := rows.Scan(&q.ID, &q.Date, &q.Rating, &q.Text); err != nil {
			return nil, fmt.Errorf("%w: decoding quote row %d (after #%d): %w",
				ErrCorrupt, len(out), lastID(out), err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("sample quotes", err)
	}
	return out, nil
}

func (s *sqliteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quotes`).Scan(&n); err != nil {
		return 0, unavailable("count quotes", err)
	}
	return n, nil
}

func (s *sqliteStore) AddSubscriber(ctx context.Context, chatID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscribers(chat_id, added_at) VALUES(?,?)
		 ON CONFLICT(chat_id) DO NOTHING`,
		chatID, time.Now().Format(time.RFC3339))
	if err != nil {
		return unavailable("add subscriber", err)
	}
	return nil
}

func (s *sqliteStore) RemoveSubscriber(ctx context.Context, chatID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM subscribers WHERE chat_id = ?`, chatID)
	if err != nil {
		return unavailable("remove subscriber", err)
	}
	return nil
}

func (s *sqliteStore) Subscribers(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chat_id FROM subscribers ORDER BY chat_id`)
	if err != nil {
		return nil, unavailable("list subscribers", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: decoding subscriber row: %w", ErrCorrupt, err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list subscribers", err)
	}
	return out, nil
}

func unavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

func lastID(qs []quotes.Quote) int64 {
	if len(qs) == 0 {
		return 0
	}
	return qs[len(qs)-1].ID
}
