package transport

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v57/github"
)

// HTTPError is a non-2xx answer of the release host or of the storage it redirected to.
type HTTPError struct {
	// StatusCode is the HTTP status code of the final response.
	StatusCode int
	// Status is the status line text, e.g. "404 Not Found".
	Status string
	// URL is the request URL that produced the response.
	URL string
	// Err is the underlying client error.
	Err error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.URL, e.Status, e.Err)
}

// Unwrap returns the underlying client error.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status carried by err, or 0 when err has none.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}

	return 0
}

// IsNotFound reports whether err carries a 404 status.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// wrapError attaches the status code and request URL to go-github response errors.
// Errors without a response (network failures, cancellation) pass through unchanged.
func wrapError(err error, requestURL string) error {
	var (
		errorResponse *github.ErrorResponse
		rateLimit     *github.RateLimitError
		abuseLimit    *github.AbuseRateLimitError
		response      *http.Response
	)

	switch {
	case errors.As(err, &rateLimit):
		response = rateLimit.Response
	case errors.As(err, &abuseLimit):
		response = abuseLimit.Response
	case errors.As(err, &errorResponse):
		response = errorResponse.Response
	}

	if response == nil {
		return err
	}

	return &HTTPError{
		StatusCode: response.StatusCode,
		Status:     response.Status,
		URL:        requestURL,
		Err:        err,
	}
}
