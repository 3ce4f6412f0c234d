package transcript

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteCapability backs the transcript store with a local sqlite file.
// Unlike the memory adapter this outlives the process, which is useful for a
// terminal client that is opened and closed many times a day.
type SQLiteCapability struct {
	db *sql.DB
}

// NewSQLiteCapability opens (or creates) the database at path.
func NewSQLiteCapability(path string) (*SQLiteCapability, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript db: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS transcripts (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize transcript schema: %w", err)
	}

	return &SQLiteCapability{db: db}, nil
}

func (c *SQLiteCapability) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM transcripts WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (c *SQLiteCapability) Set(ctx context.Context, key, value string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO transcripts (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func (c *SQLiteCapability) Remove(ctx context.Context, key string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM transcripts WHERE key = ?`, key)
	return err
}

// Close closes the database handle.
func (c *SQLiteCapability) Close() error { return c.db.Close() }

var _ Capability = (*SQLiteCapability)(nil)
