package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"smogdash/internal/db"
	"smogdash/internal/migrate"
	"smogdash/internal/modules/smog/types"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(false, nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := db.Close(conn); closeErr != nil {
			t.Fatalf("close db: %v", closeErr)
		}
	})
	if err := migrate.Run(context.Background(), conn, nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func strPtr(s string) *string { return &s }

func attempt(startedAt time.Time, outcome string) types.FetchAttempt {
	return types.FetchAttempt{
		StartedAt:  startedAt,
		DurationMs: 120,
		Outcome:    outcome,
		PostCode:   types.TargetPostCode,
	}
}

func TestNewRepository(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	if repo == nil {
		t.Fatal("NewRepository returned nil")
	}
}

func TestGetLatestAttempts_Empty(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	got, err := repo.GetLatestAttempts(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetLatestAttempts: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("GetLatestAttempts = %#v; want empty non-nil slice", got)
	}
}

func TestInsertAttempt_RoundTrip(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	started := time.Date(2026, 3, 14, 9, 26, 53, 589000000, time.FixedZone("CET", 3600))

	loaded := attempt(started, types.OutcomeLoaded)
	loaded.SchoolName = strPtr("Szkoła Podstawowa nr 1")
	loaded.MeasuredAt = strPtr("2026-03-14 08:00:00")
	id, err := repo.InsertAttempt(ctx, loaded)
	if err != nil {
		t.Fatalf("InsertAttempt: %v", err)
	}
	if id <= 0 {
		t.Errorf("id = %d; want positive", id)
	}

	got, err := repo.GetLatestAttempts(ctx, 10)
	if err != nil {
		t.Fatalf("GetLatestAttempts: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d attempts; want 1", len(got))
	}
	a := got[0]
	if a.ID != id {
		t.Errorf("ID = %d; want %d", a.ID, id)
	}
	if !a.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v; want %v", a.StartedAt, started)
	}
	if a.StartedAt.Location() != time.UTC {
		t.Errorf("StartedAt location = %v; want UTC", a.StartedAt.Location())
	}
	if a.DurationMs != 120 || a.Outcome != types.OutcomeLoaded || a.PostCode != "59-600" {
		t.Errorf("attempt = %+v", a)
	}
	if a.Error != nil {
		t.Errorf("Error = %q; want nil", *a.Error)
	}
	if a.SchoolName == nil || *a.SchoolName != "Szkoła Podstawowa nr 1" {
		t.Errorf("SchoolName = %v", a.SchoolName)
	}
	if a.MeasuredAt == nil || *a.MeasuredAt != "2026-03-14 08:00:00" {
		t.Errorf("MeasuredAt = %v", a.MeasuredAt)
	}
}

func TestInsertAttempt_ErrorOutcome(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	failed := attempt(time.Now(), types.OutcomeError)
	failed.Error = strPtr("network error: connection refused")
	if _, err := repo.InsertAttempt(ctx, failed); err != nil {
		t.Fatalf("InsertAttempt: %v", err)
	}

	got, err := repo.GetLatestAttempts(ctx, 1)
	if err != nil {
		t.Fatalf("GetLatestAttempts: %v", err)
	}
	if len(got) != 1 || got[0].Error == nil || *got[0].Error != "network error: connection refused" {
		t.Fatalf("got %+v; want error text preserved", got)
	}
	if got[0].SchoolName != nil || got[0].MeasuredAt != nil {
		t.Errorf("SchoolName/MeasuredAt = %v/%v; want nil", got[0].SchoolName, got[0].MeasuredAt)
	}
}

func TestInsertAttempt_Invalid(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	tests := []struct {
		name string
		a    types.FetchAttempt
	}{
		{"unknown outcome", attempt(time.Now(), "maybe")},
		{"empty outcome", attempt(time.Now(), "")},
		{"negative duration", func() types.FetchAttempt {
			a := attempt(time.Now(), types.OutcomeLoaded)
			a.DurationMs = -1
			return a
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := repo.InsertAttempt(context.Background(), tt.a); err == nil {
				t.Error("InsertAttempt succeeded; want error")
			}
		})
	}
}

func TestGetLatestAttempts_NewestFirstWithLimit(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	outcomes := []string{types.OutcomeLoaded, types.OutcomeError, types.OutcomeNotFound, types.OutcomeLoaded}
	for i, o := range outcomes {
		if _, err := repo.InsertAttempt(ctx, attempt(base.Add(time.Duration(i)*5*time.Minute), o)); err != nil {
			t.Fatalf("InsertAttempt %d: %v", i, err)
		}
	}

	got, err := repo.GetLatestAttempts(ctx, 3)
	if err != nil {
		t.Fatalf("GetLatestAttempts: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d; want 3", len(got))
	}
	want := []string{types.OutcomeLoaded, types.OutcomeNotFound, types.OutcomeError}
	for i, a := range got {
		if a.Outcome != want[i] {
			t.Errorf("got[%d].Outcome = %q; want %q", i, a.Outcome, want[i])
		}
		if i > 0 && a.ID >= got[i-1].ID {
			t.Errorf("ids not descending: %d after %d", a.ID, got[i-1].ID)
		}
	}
}

func TestCountAndPruneAttempts(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := range 7 {
		if _, err := repo.InsertAttempt(ctx, attempt(base.Add(time.Duration(i)*time.Minute), types.OutcomeLoaded)); err != nil {
			t.Fatalf("InsertAttempt %d: %v", i, err)
		}
	}

	n, err := repo.CountAttempts(ctx)
	if err != nil {
		t.Fatalf("CountAttempts: %v", err)
	}
	if n != 7 {
		t.Fatalf("CountAttempts = %d; want 7", n)
	}

	removed, err := repo.PruneAttempts(ctx, 3)
	if err != nil {
		t.Fatalf("PruneAttempts: %v", err)
	}
	if removed != 4 {
		t.Errorf("removed = %d; want 4", removed)
	}

	got, err := repo.GetLatestAttempts(ctx, 10)
	if err != nil {
		t.Fatalf("GetLatestAttempts: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("remaining = %d; want 3", len(got))
	}
	if !got[0].StartedAt.Equal(base.Add(6*time.Minute)) || !got[2].StartedAt.Equal(base.Add(4*time.Minute)) {
		t.Errorf("kept %v..%v; want the newest three", got[2].StartedAt, got[0].StartedAt)
	}

	removed, err = repo.PruneAttempts(ctx, 3)
	if err != nil {
		t.Fatalf("second PruneAttempts: %v", err)
	}
	if removed != 0 {
		t.Errorf("second prune removed %d; want 0", removed)
	}
}

func TestPruneAttempts_NegativeKeep(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	if _, err := repo.PruneAttempts(context.Background(), -1); err == nil {
		t.Fatal("PruneAttempts(-1) succeeded; want error")
	}
}
