package smog

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jonboulle/clockwork"

	"smogdash/internal/config"
	"smogdash/internal/modules/smog/controller"
	"smogdash/internal/modules/smog/fetcher"
	"smogdash/internal/modules/smog/repository"
	"smogdash/internal/modules/smog/scheduler"
	"smogdash/internal/modules/smog/service"
	"smogdash/internal/modules/smog/state"
	"smogdash/internal/modules/smog/types"
)

// Feature holds the running pieces of the station dashboard. The caller owns
// Scheduler.Run; the store closes when it returns.
type Feature struct {
	Store     *state.Store
	Scheduler *scheduler.Scheduler
}

// NewFetcher builds the feed client for the configured relay and upstream.
func NewFetcher(cfg config.Config, logger *slog.Logger) (*fetcher.Fetcher, error) {
	endpoint, err := fetcher.BuildURL(cfg.RelayURL, cfg.UpstreamURL)
	if err != nil {
		return nil, fmt.Errorf("build feed endpoint: %w", err)
	}
	return fetcher.New(endpoint,
		fetcher.WithTimeout(cfg.FetchTimeout),
		fetcher.WithLogger(logger),
	), nil
}

// RegisterFeature mounts the dashboard routes on mux and builds the
// scheduler that drives store. db must already be migrated. publisher may
// be nil.
func RegisterFeature(mux *http.ServeMux, db *sql.DB, cfg config.Config, store *state.Store, publisher service.StationPublisher, clock clockwork.Clock, logger *slog.Logger) (*Feature, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	f, err := NewFetcher(cfg, logger.With("component", "fetcher"))
	if err != nil {
		return nil, err
	}

	journal := repository.NewRepository(db)
	svc := service.NewService(journal, publisher, types.TargetPostCode, cfg.JournalLimit, logger.With("component", "journal"))
	sched := scheduler.New(f, store,
		scheduler.WithClock(clock),
		scheduler.WithLogger(logger.With("component", "scheduler")),
		scheduler.WithObserver(svc),
	)

	stationController := controller.NewStationController(store, journal, logger.With("component", "http"))
	stationController.RegisterRoutes(mux)

	return &Feature{Store: store, Scheduler: sched}, nil
}
