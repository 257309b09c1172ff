package controller

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"smogdash/internal/modules/smog/repository"
	"smogdash/internal/modules/smog/state"
)

// StateSource is the read side of state.Store.
type StateSource interface {
	Current() state.ViewState
	Subscribe() (<-chan state.ViewState, func())
}

type StationController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type stationControllerImpl struct {
	store      StateSource
	repository repository.JournalRepository
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

func NewStationController(store StateSource, repository repository.JournalRepository, logger *slog.Logger) StationController {
	if logger == nil {
		logger = slog.Default()
	}
	return &stationControllerImpl{
		store:      store,
		repository: repository,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger: logger,
	}
}

func (c *stationControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleDashboard)
	mux.HandleFunc("GET /partials/station", c.handleStationPartial)
	mux.HandleFunc("GET /api/v1/station", c.handleStation)
	mux.HandleFunc("GET /api/v1/fetches", c.handleFetches)
	mux.HandleFunc("GET /ws", c.handleWebsocket)
}
