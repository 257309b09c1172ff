package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"smogdash/internal/config"
	"smogdash/internal/db"
	"smogdash/internal/httpapi"
	"smogdash/internal/migrate"
	smog "smogdash/internal/modules/smog"
	"smogdash/internal/modules/smog/service"
	"smogdash/internal/modules/smog/state"
	smogviews "smogdash/internal/modules/smog/views"
	"smogdash/internal/mqtt"
)

const (
	mqttConnectTimeout = 5 * time.Second
	shutdownTimeout    = 10 * time.Second
)

// Run serves the dashboard until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"upstreamURL", cfg.UpstreamURL,
		"relayURL", cfg.RelayURL,
		"fetchTimeout", cfg.FetchTimeout,
		"journalLimit", cfg.JournalLimit,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)

	dbConn, err := db.Open(cfg.LogLevel <= slog.LevelDebug, logger.With("component", "db"))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(ctx, dbConn, logger); err != nil {
		return err
	}

	if err := smogviews.LoadTemplates(); err != nil {
		return err
	}

	var publisher service.StationPublisher
	if cfg.MQTTEnabled() {
		p, err := mqtt.NewPublisher(cfg, logger.With("component", "mqtt"))
		if err != nil {
			return err
		}
		// Short timeout so a missing broker does not block startup.
		connectCtx, connectCancel := context.WithTimeout(ctx, mqttConnectTimeout)
		err = p.Connect(connectCtx)
		connectCancel()
		if err != nil {
			logger.Warn("mqtt connection failed (continuing, client keeps retrying)", "error", err)
		}
		defer p.Disconnect()
		publisher = p
	} else {
		logger.Info("mqtt disabled")
	}

	clock := clockwork.NewRealClock()
	store := state.NewStore(clock.Now)
	mux := httpapi.NewMux(dbConn, store)
	feature, err := smog.RegisterFeature(mux, dbConn, cfg, store, publisher, clock, logger)
	if err != nil {
		return err
	}

	schedCtx, stopScheduler := context.WithCancel(ctx)
	defer stopScheduler()
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		_ = feature.Scheduler.Run(schedCtx)
	}()

	srv := httpapi.NewServer(cfg, mux, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	// Stop refreshing first; closing the store also ends websocket streams.
	stopScheduler()
	<-schedDone

	if serveErr != nil {
		if errors.Is(serveErr, http.ErrServerClosed) {
			return nil
		}
		return serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
