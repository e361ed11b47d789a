package storage

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
)

// PostgresLedger is the posted-ID ledger backed by Postgres, for
// deployments where several runners share state and a JSON file in a
// volume is not enough. Schema is created on connect.
type PostgresLedger struct {
	db  *sql.DB
	log *slog.Logger
}

// NewPostgresLedger connects, pings and ensures the schema exists.
func NewPostgresLedger(dsn string, log *slog.Logger) (*PostgresLedger, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	l := &PostgresLedger{db: db, log: log}
	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return l, nil
}

func (l *PostgresLedger) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS posted_articles (
		article_id TEXT PRIMARY KEY,
		posted_at  TIMESTAMP NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_posted_articles_posted_at ON posted_articles(posted_at);`

	_, err := l.db.Exec(schema)
	return err
}

// Contains reports whether id was already posted. Query errors are logged
// and read as "not posted": the worst outcome is a duplicate post, which
// the fingerprint gate and ledger re-check tolerate.
func (l *PostgresLedger) Contains(id string) bool {
	var exists bool
	err := l.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM posted_articles WHERE article_id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		l.log.Warn("posted lookup failed", "id", id, "error", err)
		return false
	}
	return exists
}

// MarkPosted records id immediately; the insert is idempotent.
func (l *PostgresLedger) MarkPosted(id string) {
	_, err := l.db.Exec(
		`INSERT INTO posted_articles (article_id) VALUES ($1)
		 ON CONFLICT (article_id) DO NOTHING`, id)
	if err != nil {
		l.log.Warn("cannot mark article as posted", "id", id, "error", err)
	}
}

// Trim deletes everything but the newest retention rows.
func (l *PostgresLedger) Trim(retention int) error {
	if retention <= 0 {
		retention = DefaultRetention
	}
	_, err := l.db.Exec(`
		DELETE FROM posted_articles WHERE article_id NOT IN (
			SELECT article_id FROM posted_articles ORDER BY posted_at DESC LIMIT $1
		)`, retention)
	return err
}

// Flush satisfies the posted-store contract; rows are already durable.
func (l *PostgresLedger) Flush() error { return nil }

// Close releases the connection pool.
func (l *PostgresLedger) Close() error { return l.db.Close() }
