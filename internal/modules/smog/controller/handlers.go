package controller

import (
	"io"
	"net/http"

	"smogdash/internal/modules/smog/views"
	"smogdash/internal/utils"
)

func (c *stationControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := views.DashboardData{Station: views.NewStationView(c.store.Current())}
	err := utils.WriteHTML(w, func(out io.Writer) error {
		return views.RenderDashboard(out, data)
	})
	if err != nil {
		c.logger.Error("dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
	}
}

func (c *stationControllerImpl) handleStationPartial(w http.ResponseWriter, r *http.Request) {
	view := views.NewStationView(c.store.Current())
	err := utils.WriteHTML(w, func(out io.Writer) error {
		return views.RenderStationPartial(out, view)
	})
	if err != nil {
		c.logger.Error("station partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
	}
}

func (c *stationControllerImpl) handleStation(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, views.NewStationDocument(c.store.Current()))
}

func (c *stationControllerImpl) handleFetches(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimitQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	attempts, err := c.repository.GetLatestAttempts(r.Context(), limit)
	if err != nil {
		c.logger.Error("fetches: get latest attempts failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load fetch journal")
		return
	}
	utils.WriteJSON(w, http.StatusOK, attempts)
}
