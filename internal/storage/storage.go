// Package storage persists hunts, versions, steps and play progress in
// SQLite. Multi-row writes go through Store.WithTx; optimistic updates go
// through Queries.UpdateIf, which reports a lost race as hunt.ErrConflict.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/playperu/hunts/internal/hunt"
)

// timeLayout is fixed width so stored timestamps compare correctly as text
// and CAS tokens match byte for byte. Reads accept any RFC 3339 precision:
// the driver hands TEXT timestamps back as time.Time and database/sql
// reformats them with trailing zeros trimmed.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Queries runs statements outside any transaction.
func (s *Store) Queries() *Queries {
	return &Queries{q: s.db}
}

// WithTx runs fn inside a SQL transaction. The transaction is rolled back
// when fn returns an error. fn must only use the Queries it is given: the
// pool holds a single connection, so touching s.db inside fn deadlocks.
func (s *Store) WithTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&Queries{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Queries holds the repository methods. It is bound either to the pool or
// to one transaction.
type Queries struct {
	q querier
}

// UpdateIf executes a conditional write and returns a conflict error carrying
// msg when no row matched the condition.
func (q *Queries) UpdateIf(ctx context.Context, msg, query string, args ...any) error {
	res, err := q.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return hunt.Conflict(msg)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullJSON(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func encodeLocation(l *hunt.Location) (any, error) {
	if l == nil {
		return nil, nil
	}
	return nullJSON(l)
}

func decodeLocation(s sql.NullString) (*hunt.Location, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var l hunt.Location
	if err := json.Unmarshal([]byte(s.String), &l); err != nil {
		return nil, fmt.Errorf("decoding location: %w", err)
	}
	return &l, nil
}

func notFound(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return hunt.NotFound(msg)
	}
	return err
}
