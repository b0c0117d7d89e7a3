// Package storage persists the serialized server registry in SQLite so the
// bot resumes after a restart with rosters, accumulators and pinned message
// ids intact.
package storage

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite" // Driver sqlite
)

// Repository manages the SQLite database connection.
type Repository struct {
	db *sql.DB
}

// New initializes a new SQLite connection, sets connection pool parameters,
// and runs migrations.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// SaveState overwrites the persisted registry snapshot.
func (r *Repository) SaveState(data []byte) error {
	query := `
	INSERT INTO registry_state (id, data, saved_at) VALUES (1, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		data = excluded.data,
		saved_at = excluded.saved_at;
	`

	_, err := r.db.Exec(query, string(data), time.Now())
	return err
}

// LoadState returns the persisted registry snapshot, or nil when no snapshot
// has been saved yet.
func (r *Repository) LoadState() ([]byte, error) {
	var data string
	err := r.db.QueryRow(`SELECT data FROM registry_state WHERE id = 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return []byte(data), nil
}

// SavedAt returns the time of the last persisted snapshot.
func (r *Repository) SavedAt() (time.Time, error) {
	var at time.Time
	err := r.db.QueryRow(`SELECT saved_at FROM registry_state WHERE id = 1`).Scan(&at)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}

	return at, nil
}
