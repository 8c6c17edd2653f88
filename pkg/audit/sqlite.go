package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS request_logs (
	id            TEXT PRIMARY KEY,
	request_id    TEXT NOT NULL,
	user_id       INTEGER NOT NULL,
	api_key_id    INTEGER NOT NULL,
	model         TEXT NOT NULL,
	actual_model  TEXT NOT NULL,
	channel_id    INTEGER NOT NULL,
	channel_name  TEXT NOT NULL,
	format        TEXT NOT NULL,
	stream        INTEGER NOT NULL,
	status_code   INTEGER NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	input_tokens  INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	cost          REAL NOT NULL,
	latency_ms    INTEGER NOT NULL,
	created_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_request_logs_created ON request_logs(created_at);
CREATE INDEX IF NOT EXISTS idx_request_logs_user ON request_logs(user_id, created_at);
`

// SQLiteConfig configures the audit database.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is the wait when the database is locked.
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default audit storage configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:        "data/audit.db",
		BusyTimeout: 5 * time.Second,
	}
}

// SQLiteStorage implements Storage on SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStorage opens (and if necessary creates) the audit database.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)",
		config.Path, config.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		logger: slog.Default().With("component", "audit.sqlite"),
	}, nil
}

// Store implements Storage.
func (s *SQLiteStorage) Store(ctx context.Context, rec *Record) error {
	stream := 0
	if rec.Stream {
		stream = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO request_logs (
			id, request_id, user_id, api_key_id, model, actual_model,
			channel_id, channel_name, format, stream, status_code,
			error_message, input_tokens, output_tokens, cost, latency_ms,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RequestID, rec.UserID, rec.APIKeyID, rec.Model,
		rec.ActualModel, rec.ChannelID, rec.ChannelName, rec.Format, stream,
		rec.StatusCode, rec.ErrorMessage, rec.InputTokens, rec.OutputTokens,
		rec.Cost, rec.Latency.Milliseconds(), rec.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

// ListRecent implements Storage.
func (s *SQLiteStorage) ListRecent(ctx context.Context, limit int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, user_id, api_key_id, model, actual_model,
		       channel_id, channel_name, format, stream, status_code,
		       error_message, input_tokens, output_tokens, cost, latency_ms,
		       created_at
		FROM request_logs
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		var stream int
		var latencyMs, createdAt int64
		if err := rows.Scan(
			&rec.ID, &rec.RequestID, &rec.UserID, &rec.APIKeyID, &rec.Model,
			&rec.ActualModel, &rec.ChannelID, &rec.ChannelName, &rec.Format,
			&stream, &rec.StatusCode, &rec.ErrorMessage, &rec.InputTokens,
			&rec.OutputTokens, &rec.Cost, &latencyMs, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		rec.Stream = stream == 1
		rec.Latency = time.Duration(latencyMs) * time.Millisecond
		rec.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// DeleteBefore implements Storage.
func (s *SQLiteStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM request_logs WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit records: %w", err)
	}
	return res.RowsAffected()
}

// Close implements Storage.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
