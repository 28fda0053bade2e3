package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"ticker-rain/internal/quotes"
	"ticker-rain/internal/rain"
)

// DB wraps SQLite database
type DB struct {
	db *sql.DB
}

// StoredMessage is a custom message received through the ingest server
type StoredMessage struct {
	ID        int64
	Message   rain.Message
	Timestamp int64
}

// NewDB creates a new database connection
func NewDB(path string) (*DB, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}

	// _pragma=journal_mode(WAL) & _pragma=synchronous(NORMAL)
	dsn := path
	if !strings.Contains(path, "?") {
		dsn += "?"
	} else {
		dsn += "&"
	}
	dsn += "_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	log.Info().Str("path", path).Msg("database initialized")
	return &DB{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS quotes (
		symbol TEXT PRIMARY KEY,
		price REAL NOT NULL,
		change REAL NOT NULL,
		change_percent REAL NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		tone TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_quotes_updated ON quotes(updated_at);
	CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);
	`

	_, err := db.Exec(schema)
	return err
}

// UpsertQuotes inserts or replaces quotes in one transaction
func (d *DB) UpsertQuotes(qs []quotes.Quote) error {
	if len(qs) == 0 {
		return nil
	}
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO quotes (symbol, price, change, change_percent, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			price = excluded.price,
			change = excluded.change,
			change_percent = excluded.change_percent,
			updated_at = excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := Now()
	for _, q := range qs {
		if q.Symbol == "" {
			continue
		}
		if _, err := stmt.Exec(q.Symbol, q.Price, q.Change, q.ChangePercent, now); err != nil {
			return fmt.Errorf("upsert %s: %w", q.Symbol, err)
		}
	}
	return tx.Commit()
}

// GetQuotes returns cached quotes, most recently updated first.
// limit <= 0 returns all of them.
func (d *DB) GetQuotes(limit int) ([]quotes.Quote, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.db.Query(`
		SELECT symbol, price, change, change_percent
		FROM quotes ORDER BY updated_at DESC, symbol LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []quotes.Quote
	for rows.Next() {
		var q quotes.Quote
		if err := rows.Scan(&q.Symbol, &q.Price, &q.Change, &q.ChangePercent); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Count returns the number of cached quotes
func (d *DB) Count() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM quotes").Scan(&n)
	return n, err
}

// InsertMessage logs a custom message
func (d *DB) InsertMessage(m rain.Message) error {
	_, err := d.db.Exec(`
		INSERT INTO messages (title, body, tone, timestamp)
		VALUES (?, ?, ?, ?)`,
		m.Title, m.Body, m.Tone.String(), time.Now().UnixNano())
	return err
}

// GetRecentMessages retrieves the most recent custom messages, oldest first
func (d *DB) GetRecentMessages(limit int) ([]StoredMessage, error) {
	rows, err := d.db.Query(`
		SELECT id, title, body, tone, timestamp FROM (
			SELECT id, title, body, tone, timestamp
			FROM messages ORDER BY timestamp DESC, id DESC LIMIT ?
		) ORDER BY timestamp, id`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredMessage
	for rows.Next() {
		var s StoredMessage
		var tone string
		if err := rows.Scan(&s.ID, &s.Message.Title, &s.Message.Body, &tone, &s.Timestamp); err != nil {
			return nil, err
		}
		s.Message.Tone = rain.ParseTone(tone)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close closes the database
func (d *DB) Close() error {
	return d.db.Close()
}

// Now returns current Unix timestamp (helper)
func Now() int64 {
	return time.Now().Unix()
}
