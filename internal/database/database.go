// Package database opens the hunts SQLite file through libSQL.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/tursodatabase/go-libsql"
)

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
	"PRAGMA synchronous=NORMAL",
}

// Open opens the database file at path, creating its directory if needed.
// The pool holds a single connection: pragmas are per connection, and it
// serializes write transactions so optimistic-lock checks decide races
// instead of SQLITE_BUSY.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	db, err := sql.Open("libsql", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(0)

	for _, p := range pragmas {
		if err := execPragma(ctx, db, p); err != nil {
			db.Close()
			return nil, err
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

// execPragma runs p through QueryContext: libSQL rejects Exec for pragmas
// that return a row, and some of them do.
func execPragma(ctx context.Context, db *sql.DB, p string) error {
	rows, err := db.QueryContext(ctx, p)
	if err != nil {
		return fmt.Errorf("executing %s: %w", p, err)
	}
	defer rows.Close()
	for rows.Next() {
	}
	return rows.Err()
}
