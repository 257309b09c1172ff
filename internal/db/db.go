package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"

// Open returns the in-memory journal database. The pool is pinned to one
// long-lived connection: an in-memory SQLite database lives exactly as long
// as its connection. With trace set every statement is logged at debug level.
func Open(trace bool, logger *slog.Logger) (*sql.DB, error) {
	dsn := buildDSN()

	var db *sql.DB
	if trace {
		db = sql.OpenDB(NewTraceConnector(dsn, logger))
	} else {
		var err error
		db, err = sql.Open(driverName, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	// Validate connectivity early
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}

func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

func buildDSN() string {
	params := []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
	}
	return "file::memory:?" + strings.Join(params, "&")
}
