package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"

	"smogdash/internal/modules/smog/state"
	"smogdash/internal/utils"
)

// StateReporter exposes the current dashboard state to the health check.
type StateReporter interface {
	Current() state.ViewState
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	db    *sql.DB
	state StateReporter
}

func NewHealthchecker(db *sql.DB, state StateReporter) healthchecker {
	return &healthcheckerImpl{db: db, state: state}
}

// handleHealthz fails only when the journal database is unreachable. A
// failing upstream feed is reported in "station" but keeps the service healthy.
func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	var ok int
	if err := h.db.QueryRowContext(r.Context(), `SELECT 1`).Scan(&ok); err != nil {
		slog.Error("failed to check database connectivity", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check database connectivity")
		return
	}
	body := map[string]string{"status": "ok"}
	if h.state != nil {
		body["station"] = h.state.Current().Kind.String()
	}
	utils.WriteJSON(w, http.StatusOK, body)
}

func registerHealthcheck(mux *http.ServeMux, db *sql.DB, state StateReporter) {
	healthchecker := NewHealthchecker(db, state)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
