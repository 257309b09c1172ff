package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"smogdash/internal/modules/smog/fetcher"
	"smogdash/internal/modules/smog/state"
	"smogdash/internal/modules/smog/types"
)

// DefaultInterval is the dashboard refresh period.
const DefaultInterval = 5 * time.Minute

type Fetcher interface {
	Fetch(ctx context.Context) (*types.StationRecord, error)
}

// Outcome describes one finished refresh.
type Outcome struct {
	StartedAt time.Time
	Duration  time.Duration
	Kind      state.Kind
	Record    *types.StationRecord
	Err       error
	// Applied is false when a newer refresh or Close superseded this one.
	Applied bool
}

type Observer interface {
	ObserveRefresh(ctx context.Context, o Outcome)
}

type Scheduler struct {
	fetcher   Fetcher
	store     *state.Store
	clock     clockwork.Clock
	interval  time.Duration
	logger    *slog.Logger
	observers []Observer
}

type Option func(*Scheduler)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

func WithInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		s.interval = interval
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		s.observers = append(s.observers, o)
	}
}

func New(f Fetcher, store *state.Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		fetcher:  f,
		store:    store,
		clock:    clockwork.NewRealClock(),
		interval: DefaultInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run refreshes once immediately and then on every tick until ctx is done.
// On return the store is closed, so a late response can no longer change it.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.store.Close()

	s.logger.Info("refresh scheduler started", "interval", s.interval)
	s.Refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("refresh scheduler stopped")
			return ctx.Err()
		case <-ticker.Chan():
			s.Refresh(ctx)
		}
	}
}

// Refresh runs one fetch cycle against the store and returns its outcome.
func (s *Scheduler) Refresh(ctx context.Context) Outcome {
	gen, ok := s.store.Begin()
	if !ok {
		return Outcome{Kind: state.KindLoading}
	}

	started := s.clock.Now()
	rec, err := s.fetcher.Fetch(ctx)
	out := Outcome{
		StartedAt: started,
		Duration:  s.clock.Since(started),
		Err:       err,
	}

	// Shutdown raced the response: leave the state alone.
	if ctx.Err() != nil {
		s.logger.Debug("refresh abandoned", "error", ctx.Err())
		out.Kind = state.KindLoading
		return out
	}

	switch {
	case err == nil:
		out.Kind = state.KindLoaded
		out.Record = rec
		out.Applied = s.store.Loaded(gen, *rec)
		s.logger.Info("station refreshed",
			"post_code", rec.School.PostCode,
			"school", rec.School.Name,
			"timestamp", rec.Timestamp,
			"duration_ms", out.Duration.Milliseconds(),
		)
	case errors.Is(err, fetcher.ErrNotFound):
		out.Kind = state.KindNotFound
		out.Applied = s.store.NotFound(gen)
		s.logger.Warn("station missing from feed", "error", err)
	default:
		out.Kind = state.KindError
		out.Applied = s.store.Failed(gen, err)
		s.logger.Error("station refresh failed", "error", err)
	}

	for _, o := range s.observers {
		o.ObserveRefresh(ctx, out)
	}
	return out
}
