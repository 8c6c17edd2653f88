package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteConfig contains configuration for the SQLite store.
type SQLiteConfig struct {
	// Path is the database file path. ":memory:" is accepted for tests.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/relay.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS channels (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	type        TEXT NOT NULL,
	base_url    TEXT NOT NULL,
	api_key     TEXT NOT NULL,
	models      TEXT NOT NULL DEFAULT '[]',
	status      TEXT NOT NULL DEFAULT 'active',
	weight      INTEGER NOT NULL DEFAULT 1,
	priority    INTEGER NOT NULL DEFAULT 0,
	max_retries INTEGER NOT NULL DEFAULT 3,
	timeout_s   INTEGER NOT NULL DEFAULT 300
);

CREATE TABLE IF NOT EXISTS groups (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	name             TEXT NOT NULL UNIQUE,
	balance_strategy TEXT NOT NULL DEFAULT 'round_robin',
	status           TEXT NOT NULL DEFAULT 'active'
);

CREATE TABLE IF NOT EXISTS group_channels (
	group_id      INTEGER NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
	channel_id    INTEGER NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
	model_mapping TEXT NOT NULL DEFAULT '',
	weight        INTEGER,
	priority      INTEGER,
	PRIMARY KEY (group_id, channel_id)
);

CREATE TABLE IF NOT EXISTS api_keys (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	key        TEXT NOT NULL UNIQUE,
	user_id    INTEGER NOT NULL,
	quota      INTEGER NOT NULL DEFAULT 0,
	used_quota INTEGER NOT NULL DEFAULT 0,
	enabled    INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS model_prices (
	model        TEXT PRIMARY KEY,
	input_price  REAL NOT NULL,
	output_price REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_group_channels_channel ON group_channels(channel_id);
`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (and if necessary creates) the configuration database.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "store.sqlite")

	dsn := config.Path + "?_foreign_keys=on"
	if config.BusyTimeout > 0 {
		dsn += fmt.Sprintf("&_busy_timeout=%d", config.BusyTimeout.Milliseconds())
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	if config.WALMode {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("configuration store opened", "path", config.Path)

	return &SQLiteStore{db: db, logger: logger}, nil
}

// GetGroupByName implements Store.
func (s *SQLiteStore) GetGroupByName(ctx context.Context, name string) (*Group, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, balance_strategy, status FROM groups WHERE name = ?`, name)

	var g Group
	if err := row.Scan(&g.ID, &g.Name, &g.BalanceStrategy, &g.Status); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query group %q: %w", name, err)
	}
	return &g, nil
}

// ListGroupChannels implements Store.
func (s *SQLiteStore) ListGroupChannels(ctx context.Context, groupID int64) ([]GroupChannel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id, channel_id, model_mapping, weight, priority
		 FROM group_channels WHERE group_id = ?`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query group channels: %w", err)
	}
	defer rows.Close()

	var memberships []GroupChannel
	for rows.Next() {
		var gc GroupChannel
		var weight, priority sql.NullInt64
		if err := rows.Scan(&gc.GroupID, &gc.ChannelID, &gc.ModelMapping, &weight, &priority); err != nil {
			return nil, fmt.Errorf("failed to scan group channel: %w", err)
		}
		if weight.Valid {
			w := int(weight.Int64)
			gc.Weight = &w
		}
		if priority.Valid {
			p := int(priority.Int64)
			gc.Priority = &p
		}
		memberships = append(memberships, gc)
	}
	return memberships, rows.Err()
}

// GetActiveChannels implements Store.
func (s *SQLiteStore) GetActiveChannels(ctx context.Context, ids []int64) ([]Channel, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	query := fmt.Sprintf(
		`SELECT id, name, type, base_url, api_key, models, status, weight, priority, max_retries, timeout_s
		 FROM channels WHERE id IN (%s) AND status = 'active'`, placeholders)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query channels: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]Channel)
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		byID[ch.ID] = ch
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Preserve caller order.
	channels := make([]Channel, 0, len(byID))
	for _, id := range ids {
		if ch, ok := byID[id]; ok {
			channels = append(channels, ch)
		}
	}
	return channels, nil
}

// ListGroupsContainingChannel implements Store.
func (s *SQLiteStore) ListGroupsContainingChannel(ctx context.Context, channelID int64) ([]Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id, g.name, g.balance_strategy, g.status
		 FROM groups g JOIN group_channels gc ON gc.group_id = g.id
		 WHERE gc.channel_id = ?`, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups for channel: %w", err)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name, &g.BalanceStrategy, &g.Status); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// GetAPIKey implements Store.
func (s *SQLiteStore) GetAPIKey(ctx context.Context, rawKey string) (*APIKeyInfo, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, key, user_id, quota, used_quota, enabled FROM api_keys WHERE key = ?`, rawKey)

	var info APIKeyInfo
	var enabled int
	if err := row.Scan(&info.ID, &info.Key, &info.UserID, &info.Quota, &info.UsedQuota, &enabled); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query api key: %w", err)
	}
	info.Enabled = enabled != 0
	return &info, nil
}

// AddUsedQuota implements Store.
func (s *SQLiteStore) AddUsedQuota(ctx context.Context, apiKeyID int64, delta int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE api_keys SET used_quota = used_quota + ? WHERE id = ?`, delta, apiKeyID)
	if err != nil {
		return fmt.Errorf("failed to update used quota: %w", err)
	}
	return nil
}

// GetModelPrice implements Store.
func (s *SQLiteStore) GetModelPrice(ctx context.Context, model string) (*ModelPrice, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT model, input_price, output_price FROM model_prices WHERE model = ?`, model)

	var p ModelPrice
	if err := row.Scan(&p.Model, &p.Input, &p.Output); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query model price: %w", err)
	}
	return &p, nil
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Administrative operations. These are used by the admin surface and by the
// seed command; the request path never calls them.

// CreateChannel inserts a channel and returns its id.
func (s *SQLiteStore) CreateChannel(ctx context.Context, ch *Channel) (int64, error) {
	models, err := json.Marshal(ch.Models)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal models: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO channels (name, type, base_url, api_key, models, status, weight, priority, max_retries, timeout_s)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ch.Name, string(ch.Type), ch.BaseURL, ch.APIKey, string(models),
		string(ch.Status), ch.Weight, ch.Priority, ch.MaxRetries, int(ch.Timeout/time.Second))
	if err != nil {
		return 0, fmt.Errorf("failed to insert channel: %w", err)
	}
	return res.LastInsertId()
}

// DeleteChannel removes a channel. Group memberships cascade.
func (s *SQLiteStore) DeleteChannel(ctx context.Context, channelID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM channels WHERE id = ?`, channelID)
	if err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}
	return nil
}

// CreateGroup inserts a group and returns its id.
func (s *SQLiteStore) CreateGroup(ctx context.Context, g *Group) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO groups (name, balance_strategy, status) VALUES (?, ?, ?)`,
		g.Name, g.BalanceStrategy, string(g.Status))
	if err != nil {
		return 0, fmt.Errorf("failed to insert group: %w", err)
	}
	return res.LastInsertId()
}

// AddGroupChannel inserts a membership row.
func (s *SQLiteStore) AddGroupChannel(ctx context.Context, gc *GroupChannel) error {
	var weight, priority any
	if gc.Weight != nil {
		weight = *gc.Weight
	}
	if gc.Priority != nil {
		priority = *gc.Priority
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO group_channels (group_id, channel_id, model_mapping, weight, priority)
		 VALUES (?, ?, ?, ?, ?)`,
		gc.GroupID, gc.ChannelID, gc.ModelMapping, weight, priority)
	if err != nil {
		return fmt.Errorf("failed to insert group channel: %w", err)
	}
	return nil
}

// CreateAPIKey inserts an API key row and returns its id.
func (s *SQLiteStore) CreateAPIKey(ctx context.Context, info *APIKeyInfo) (int64, error) {
	enabled := 0
	if info.Enabled {
		enabled = 1
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (key, user_id, quota, used_quota, enabled) VALUES (?, ?, ?, ?, ?)`,
		info.Key, info.UserID, info.Quota, info.UsedQuota, enabled)
	if err != nil {
		return 0, fmt.Errorf("failed to insert api key: %w", err)
	}
	return res.LastInsertId()
}

// SetModelPrice inserts or replaces a model's pricing row.
func (s *SQLiteStore) SetModelPrice(ctx context.Context, p *ModelPrice) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO model_prices (model, input_price, output_price) VALUES (?, ?, ?)
		 ON CONFLICT(model) DO UPDATE SET input_price = excluded.input_price, output_price = excluded.output_price`,
		p.Model, p.Input, p.Output)
	if err != nil {
		return fmt.Errorf("failed to upsert model price: %w", err)
	}
	return nil
}

// scanChannel scans one channels row.
func scanChannel(rows *sql.Rows) (Channel, error) {
	var ch Channel
	var chType, status, models string
	var timeoutSeconds int64

	if err := rows.Scan(&ch.ID, &ch.Name, &chType, &ch.BaseURL, &ch.APIKey, &models,
		&status, &ch.Weight, &ch.Priority, &ch.MaxRetries, &timeoutSeconds); err != nil {
		return Channel{}, fmt.Errorf("failed to scan channel: %w", err)
	}

	ch.Type = ChannelType(chType)
	ch.Status = Status(status)
	ch.Timeout = time.Duration(timeoutSeconds) * time.Second

	if models != "" {
		if err := json.Unmarshal([]byte(models), &ch.Models); err != nil {
			return Channel{}, fmt.Errorf("failed to unmarshal models for channel %d: %w", ch.ID, err)
		}
	}
	return ch, nil
}
