package controller

import (
	"errors"
	"net/http"
	"strconv"
)

const (
	defaultFetchesLimit = 100
	maxFetchesLimit     = 1000
)

func parseLimitQuery(r *http.Request) (limit int, err error) {
	q := r.URL.Query()
	limit = defaultFetchesLimit
	if s := q.Get("limit"); s != "" {
		n, convErr := strconv.Atoi(s)
		if convErr != nil {
			return 0, errors.New("invalid 'limit' (expected integer)")
		}
		if n <= 0 {
			return 0, errors.New("'limit' must be > 0")
		}
		if n > maxFetchesLimit {
			return 0, errors.New("'limit' must be <= 1000")
		}
		limit = n
	}
	return limit, nil
}
