package fetcher

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetwork means the request could not be completed or its body read.
	ErrNetwork = errors.New("network failure")
	// ErrHTTPStatus means the upstream answered with a non-2xx status.
	ErrHTTPStatus = errors.New("unexpected http status")
	// ErrParse means the body was not the expected JSON document.
	ErrParse = errors.New("malformed response")
	// ErrNotFound means the response had no record for the postal code.
	ErrNotFound = errors.New("station not found")
)

// StatusError carries the status code of a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", ErrHTTPStatus, e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Is(target error) bool {
	return target == ErrHTTPStatus
}
