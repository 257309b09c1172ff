package views

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
	texttemplate "text/template"
)

//go:embed templates
var viewsFS embed.FS

var (
	dashboardTmpl *template.Template
	textTmpl      *texttemplate.Template
)

// loadTemplatesFromFS loads dashboard templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	html, err := template.ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	text, err := texttemplate.ParseFS(sub, "*.txt")
	if err != nil {
		return err
	}
	dashboardTmpl, textTmpl = html, text
	return nil
}

// LoadTemplates loads the embedded templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

type DashboardData struct {
	Station StationView
}

func RenderDashboard(w io.Writer, data DashboardData) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "dashboard.html", data)
}

// RenderStationPartial executes only the station partial into w.
// Use for HTMX fragment refresh and websocket pushes.
func RenderStationPartial(w io.Writer, data StationView) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "partials/station.html", data)
}

// RenderText writes the plain text card printed by the CLI.
func RenderText(w io.Writer, data StationView) error {
	if textTmpl == nil {
		return errors.New("text template not loaded: call views.LoadTemplates during startup")
	}
	return textTmpl.ExecuteTemplate(w, "station.txt", data)
}
