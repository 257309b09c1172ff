package db

import (
	"context"
	"database/sql/driver"
	"fmt"
	"log/slog"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// traceConnector opens sqlite3 connections that log every statement they
// run directly. Use with sql.OpenDB.
type traceConnector struct {
	dsn    string
	logger *slog.Logger
	driver *sqlite3.SQLiteDriver
}

// NewTraceConnector returns a driver.Connector logging SQL and arguments at
// debug level. If logger is nil, slog.Default() is used.
func NewTraceConnector(dsn string, logger *slog.Logger) driver.Connector {
	if logger == nil {
		logger = slog.Default()
	}
	return &traceConnector{dsn: dsn, logger: logger, driver: &sqlite3.SQLiteDriver{}}
}

func (c *traceConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := c.driver.Open(c.dsn)
	if err != nil {
		return nil, err
	}
	return &traceConn{Conn: conn, logger: c.logger}, nil
}

func (c *traceConnector) Driver() driver.Driver {
	return c.driver
}

// traceConn logs statements passed to ExecContext and QueryContext. Prepared
// statements are forwarded untouched through the embedded Conn.
type traceConn struct {
	driver.Conn
	logger *slog.Logger
}

func (c *traceConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	execer, ok := c.Conn.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	c.trace(ctx, "exec", query, args)
	return execer.ExecContext(ctx, query, args)
}

func (c *traceConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	queryer, ok := c.Conn.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	c.trace(ctx, "query", query, args)
	return queryer.QueryContext(ctx, query, args)
}

func (c *traceConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if beginner, ok := c.Conn.(driver.ConnBeginTx); ok {
		return beginner.BeginTx(ctx, opts)
	}
	//nolint:staticcheck // SA1019 – fallback when underlying conn does not implement ConnBeginTx
	return c.Conn.Begin()
}

func (c *traceConn) trace(ctx context.Context, op, query string, args []driver.NamedValue) {
	c.logger.DebugContext(ctx, "sql",
		"op", op,
		"sql", query,
		"args", formatArgs(args),
	)
}

func formatArgs(args []driver.NamedValue) []string {
	out := make([]string, len(args))
	for i, a := range args {
		v := formatValue(a.Value)
		if a.Name != "" {
			v = a.Name + "=" + v
		}
		out[i] = v
	}
	return out
}

func formatValue(v driver.Value) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
