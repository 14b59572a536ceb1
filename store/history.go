package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
	"unicode/utf8"

	_ "modernc.org/sqlite"
)

// Generation is one recorded attempt to render a QR code. The encoded text
// itself is never stored, only its length in characters.
type Generation struct {
	ID         int64  `json:"id"`
	CreatedAt  int64  `json:"created_at"`
	TextLength int    `json:"text_length"`
	Backend    string `json:"backend"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
}

// HistoryStore manages SQLite storage for generation history.
type HistoryStore struct {
	db  *sql.DB
	now func() time.Time
}

const createGenerationsTable = `
CREATE TABLE IF NOT EXISTS generations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at INTEGER NOT NULL,
    text_length INTEGER NOT NULL,
    backend TEXT NOT NULL DEFAULT '',
    ok INTEGER NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT ''
);
`

const createIndexes = `
CREATE INDEX IF NOT EXISTS idx_generations_created_at ON generations(created_at);
`

// NewHistoryStore opens (or creates) the SQLite database at dbPath, initialises
// the schema, and returns a ready-to-use HistoryStore.
func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	for _, stmt := range []string{
		createGenerationsTable,
		createIndexes,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec schema statement: %w", err)
		}
	}

	return &HistoryStore{db: db, now: time.Now}, nil
}

// RecordGeneration stores the outcome of one generation attempt. genErr is
// nil on success.
func (s *HistoryStore) RecordGeneration(ctx context.Context, text, backend string, genErr error) error {
	const query = `
		INSERT INTO generations (created_at, text_length, backend, ok, error)
		VALUES (?, ?, ?, ?, ?)
	`

	errText := ""
	if genErr != nil {
		errText = genErr.Error()
	}

	// Recording must not fail just because the triggering request went away.
	ctx = context.WithoutCancel(ctx)

	_, err := s.db.ExecContext(ctx, query,
		s.now().Unix(),
		utf8.RuneCountInString(text),
		backend,
		boolToInt(genErr == nil),
		errText,
	)
	if err != nil {
		return fmt.Errorf("record generation: %w", err)
	}
	return nil
}

// Recent returns the newest generations first.
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]Generation, error) {
	const query = `
		SELECT id, created_at, text_length, backend, ok, error
		FROM generations
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get generations: %w", err)
	}
	defer rows.Close()

	var gens []Generation
	for rows.Next() {
		var g Generation
		var ok int
		if err := rows.Scan(&g.ID, &g.CreatedAt, &g.TextLength, &g.Backend, &ok, &g.Error); err != nil {
			return nil, fmt.Errorf("scan generation row: %w", err)
		}
		g.OK = ok != 0
		gens = append(gens, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate generation rows: %w", err)
	}
	return gens, nil
}

// Counts returns the number of successful and failed generations.
func (s *HistoryStore) Counts(ctx context.Context) (ok, failed int, err error) {
	const query = `
		SELECT
			COALESCE(SUM(CASE WHEN ok = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN ok = 0 THEN 1 ELSE 0 END), 0)
		FROM generations
	`
	if err := s.db.QueryRowContext(ctx, query).Scan(&ok, &failed); err != nil {
		return 0, 0, fmt.Errorf("count generations: %w", err)
	}
	return ok, failed, nil
}

// Close closes the underlying database connection.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// --- helpers ----------------------------------------------------------------

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
