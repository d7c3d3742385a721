// Package journal persists decision history so runs can be inspected
// after the fact.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ahrav/go-ponder/internal/domain"
	"github.com/ahrav/go-ponder/internal/ports"
)

// ErrClosed is returned by operations on a closed journal.
var ErrClosed = errors.New("journal is closed")

// migrations are applied in order; PRAGMA user_version records how many
// have run.
var migrations = []string{
	`CREATE TABLE runs (
		id         TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL
	)`,
	`CREATE TABLE decisions (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id     TEXT    NOT NULL REFERENCES runs(id),
		tick       INTEGER NOT NULL,
		owner      INTEGER NOT NULL,
		action     TEXT    NOT NULL,
		value      REAL    NOT NULL,
		picked     INTEGER NOT NULL,
		fallback   INTEGER NOT NULL,
		picker     TEXT    NOT NULL,
		decided_at INTEGER NOT NULL
	)`,
	`CREATE INDEX idx_decisions_run_owner_tick ON decisions (run_id, owner, tick)`,
}

// SQLiteJournal records decisions in a SQLite database. Every Open starts
// a new run; records are tagged with its id so one file can hold the
// history of many runs.
type SQLiteJournal struct {
	runID uuid.UUID

	mu sync.RWMutex
	db *sql.DB
}

// Open opens or creates the database at path, applies pending migrations
// and registers a new run.
func Open(ctx context.Context, path string) (*SQLiteJournal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path: %w", domain.ErrEmptyValue)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	// A single connection serialises writers and keeps ":memory:"
	// databases alive across calls.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate journal %s: %w", path, err)
	}

	j := &SQLiteJournal{runID: uuid.New(), db: db}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		j.runID.String(), time.Now().UnixNano(),
	); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("register run: %w", err)
	}
	return j, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return err
	}

	for i := version; i < len(migrations); i++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, i+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}

// RunID identifies the run this journal writes to.
func (j *SQLiteJournal) RunID() string { return j.runID.String() }

// Record writes one tick's decisions in a single transaction.
func (j *SQLiteJournal) Record(ctx context.Context, tick uint64, decisions []domain.Decision) error {
	db, err := j.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record tick %d: %w", tick, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO decisions (run_id, tick, owner, action, value, picked, fallback, picker, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("record tick %d: %w", tick, err)
	}
	defer stmt.Close()

	for _, d := range decisions {
		if _, err := stmt.ExecContext(ctx,
			j.runID.String(), int64(tick), int64(d.Owner), d.Action, d.Value,
			d.Picked, d.Fallback, d.Picker, d.Timestamp.UnixNano(),
		); err != nil {
			return fmt.Errorf("record tick %d (%s): %w", tick, d.Owner, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record tick %d: %w", tick, err)
	}
	return nil
}

// Decisions returns owner's most recent decisions in this run, oldest
// first. A limit of zero or less returns all of them.
func (j *SQLiteJournal) Decisions(ctx context.Context, owner domain.Entity, limit int) ([]domain.Decision, error) {
	db, err := j.getDB()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := db.QueryContext(ctx, `
		SELECT tick, action, value, picked, fallback, picker, decided_at
		FROM decisions
		WHERE run_id = ? AND owner = ?
		ORDER BY tick DESC, id DESC
		LIMIT ?
	`, j.runID.String(), int64(owner), limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions of %s: %w", owner, err)
	}
	defer rows.Close()

	var out []domain.Decision
	for rows.Next() {
		var (
			tick      int64
			decidedAt int64
			d         = domain.Decision{Owner: owner}
		)
		if err := rows.Scan(&tick, &d.Action, &d.Value, &d.Picked, &d.Fallback, &d.Picker, &decidedAt); err != nil {
			return nil, fmt.Errorf("scan decision of %s: %w", owner, err)
		}
		d.Tick = uint64(tick)
		d.Timestamp = time.Unix(0, decidedAt)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query decisions of %s: %w", owner, err)
	}

	slices.Reverse(out)
	return out, nil
}

// Close closes the database. Later calls are no-ops.
func (j *SQLiteJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

func (j *SQLiteJournal) getDB() (*sql.DB, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.db == nil {
		return nil, ErrClosed
	}
	return j.db, nil
}

// Compile-time verification that SQLiteJournal implements DecisionJournal.
var _ ports.DecisionJournal = (*SQLiteJournal)(nil)
