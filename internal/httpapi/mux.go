package httpapi

import (
	"database/sql"
	"net/http"
)

func NewMux(db *sql.DB, state StateReporter) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db, state)
	return mux
}
