package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"smogdash/internal/modules/smog/types"
)

//go:embed sql/insert-attempt.sql
var insertAttemptSQL string

//go:embed sql/get-latest-attempts.sql
var getLatestAttemptsSQL string

//go:embed sql/count-attempts.sql
var countAttemptsSQL string

//go:embed sql/prune-attempts.sql
var pruneAttemptsSQL string

// JournalRepository stores one row per fetch attempt.
type JournalRepository interface {
	InsertAttempt(ctx context.Context, a types.FetchAttempt) (int64, error)
	GetLatestAttempts(ctx context.Context, limit int) ([]types.FetchAttempt, error)
	CountAttempts(ctx context.Context) (int, error)
	PruneAttempts(ctx context.Context, keep int) (int64, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) JournalRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) InsertAttempt(ctx context.Context, a types.FetchAttempt) (int64, error) {
	if !validOutcome(a.Outcome) {
		return 0, fmt.Errorf("insert attempt: unknown outcome %q", a.Outcome)
	}
	if a.DurationMs < 0 {
		return 0, fmt.Errorf("insert attempt: negative duration %d", a.DurationMs)
	}

	res, err := r.db.ExecContext(ctx, insertAttemptSQL,
		a.StartedAt.UTC().Format(time.RFC3339Nano),
		a.DurationMs,
		a.Outcome,
		nullable(a.Error),
		a.PostCode,
		nullable(a.SchoolName),
		nullable(a.MeasuredAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert attempt: %w", err)
	}
	return res.LastInsertId()
}

func (r *repositoryImpl) GetLatestAttempts(ctx context.Context, limit int) ([]types.FetchAttempt, error) {
	rows, err := r.db.QueryContext(ctx, getLatestAttemptsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close fetch attempt rows", "error", err)
		}
	}()

	out := []types.FetchAttempt{}
	for rows.Next() {
		var a types.FetchAttempt
		var startedAt string
		var errText, school, measured sql.NullString
		if err := rows.Scan(&a.ID, &startedAt, &a.DurationMs, &a.Outcome, &errText, &a.PostCode, &school, &measured); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parse started_at %q: %w", startedAt, err)
		}
		a.StartedAt = t
		a.Error = fromNull(errText)
		a.SchoolName = fromNull(school)
		a.MeasuredAt = fromNull(measured)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) CountAttempts(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countAttemptsSQL).Scan(&n)
	return n, err
}

// PruneAttempts deletes everything but the newest keep rows and reports how
// many were removed.
func (r *repositoryImpl) PruneAttempts(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("prune attempts: negative keep %d", keep)
	}
	res, err := r.db.ExecContext(ctx, pruneAttemptsSQL, keep)
	if err != nil {
		return 0, fmt.Errorf("prune attempts: %w", err)
	}
	return res.RowsAffected()
}

func validOutcome(o string) bool {
	switch o {
	case types.OutcomeLoaded, types.OutcomeNotFound, types.OutcomeError:
		return true
	}
	return false
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
