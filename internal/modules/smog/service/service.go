package service

import (
	"context"
	"log/slog"
	"time"

	"smogdash/internal/modules/smog/repository"
	"smogdash/internal/modules/smog/scheduler"
	"smogdash/internal/modules/smog/state"
	"smogdash/internal/modules/smog/types"
)

// StationPublisher forwards loaded records to an outside consumer.
type StationPublisher interface {
	PublishStation(rec types.StationRecord, fetchedAt time.Time) error
}

// Service records every refresh in the fetch journal and publishes loaded
// stations. Its failures are logged only; they never touch the view state.
type Service struct {
	repository   repository.JournalRepository
	publisher    StationPublisher
	postCode     string
	journalLimit int
	logger       *slog.Logger
}

var _ scheduler.Observer = (*Service)(nil)

// NewService builds the refresh observer. publisher may be nil.
func NewService(repo repository.JournalRepository, publisher StationPublisher, postCode string, journalLimit int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repository:   repo,
		publisher:    publisher,
		postCode:     postCode,
		journalLimit: journalLimit,
		logger:       logger,
	}
}

func (s *Service) ObserveRefresh(ctx context.Context, o scheduler.Outcome) {
	s.journal(ctx, o)

	if s.publisher != nil && o.Kind == state.KindLoaded && o.Record != nil && o.Applied {
		if err := s.publisher.PublishStation(*o.Record, o.StartedAt.Add(o.Duration)); err != nil {
			s.logger.Warn("publish station failed", "error", err)
		}
	}
}

func (s *Service) journal(ctx context.Context, o scheduler.Outcome) {
	attempt := NewAttempt(o, s.postCode)
	if _, err := s.repository.InsertAttempt(ctx, attempt); err != nil {
		s.logger.Error("journal fetch attempt", "outcome", attempt.Outcome, "error", err)
		return
	}
	if s.journalLimit <= 0 {
		return
	}
	removed, err := s.repository.PruneAttempts(ctx, s.journalLimit)
	if err != nil {
		s.logger.Error("prune fetch journal", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Debug("pruned fetch journal", "removed", removed, "keep", s.journalLimit)
	}
}

// NewAttempt converts a refresh outcome into a journal row.
func NewAttempt(o scheduler.Outcome, postCode string) types.FetchAttempt {
	a := types.FetchAttempt{
		StartedAt:  o.StartedAt,
		DurationMs: max(o.Duration.Milliseconds(), 0),
		PostCode:   postCode,
	}
	switch o.Kind {
	case state.KindLoaded:
		a.Outcome = types.OutcomeLoaded
		if o.Record != nil {
			name := o.Record.School.Name
			measured := o.Record.Timestamp
			a.SchoolName = &name
			a.MeasuredAt = &measured
		}
	case state.KindNotFound:
		a.Outcome = types.OutcomeNotFound
	default:
		a.Outcome = types.OutcomeError
	}
	if o.Err != nil {
		msg := o.Err.Error()
		a.Error = &msg
	}
	return a
}
