// Package history keeps an append-only log of assessments so CLI and API
// runs can be reviewed later.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/duartefn/rotulo/internal/logging"
	"github.com/duartefn/rotulo/internal/model"

	_ "modernc.org/sqlite" // pure-Go sqlite driver
)

const migrationSQL = `
CREATE TABLE IF NOT EXISTS history (
  id TEXT PRIMARY KEY,
  created_at INTEGER NOT NULL,
  command TEXT NOT NULL,
  request_source TEXT,
  ean TEXT NOT NULL,
  allergens TEXT NOT NULL,
  total_score REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_created_at ON history(created_at);
`

// Entry is one recorded assessment.
type Entry struct {
	ID            string
	CreatedAt     time.Time
	Command       string
	RequestSource string
	EAN           string
	Allergens     []string
	TotalScore    float64
}

// Log is a sqlite-backed history log.
type Log struct {
	db     *sql.DB
	logger logging.Logger
}

// Open creates the log at dsn, migrating the schema on first use.
func Open(dsn string, logger logging.Logger) (*Log, error) {
	if logger == nil {
		logger = logging.Nop{}
	}
	if dsn == "" {
		dsn = "file:rotulo_history.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(migrationSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Log{db: db, logger: logger.With(logging.Field{Key: "component", Value: "history"})}, nil
}

// Close releases the database handle.
func (l *Log) Close() error {
	return l.db.Close()
}

// Append records one assessment result. The generated row id is returned.
func (l *Log) Append(ctx context.Context, command, requestSource string, profile *model.UserAllergyProfile, result *model.RiskResult) (string, error) {
	if result == nil {
		return "", fmt.Errorf("nil result")
	}
	codes := profile.NormalizedCodes()
	labels := make([]string, 0, len(codes))
	for _, code := range codes {
		labels = append(labels, string(code))
	}

	id := uuid.New().String()
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO history (id, created_at, command, request_source, ean, allergens, total_score)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, time.Now().Unix(), command, requestSource, result.Product.EAN, strings.Join(labels, ","), result.TotalScore)
	if err != nil {
		return "", fmt.Errorf("append history: %w", err)
	}
	l.logger.Debug("history row appended",
		logging.Field{Key: "id", Value: id},
		logging.Field{Key: "ean", Value: result.Product.EAN})
	return id, nil
}

// Recent returns up to limit entries, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, created_at, command, request_source, ean, allergens, total_score
		FROM history
		ORDER BY created_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			createdAt int64
			allergens string
			reqSource sql.NullString
		)
		if err := rows.Scan(&entry.ID, &createdAt, &entry.Command, &reqSource, &entry.EAN, &allergens, &entry.TotalScore); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entry.CreatedAt = time.Unix(createdAt, 0).UTC()
		entry.RequestSource = reqSource.String
		if allergens != "" {
			entry.Allergens = strings.Split(allergens, ",")
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
