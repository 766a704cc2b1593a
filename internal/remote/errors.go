// Package remote holds the adapters for the external services: prayer
// timings, scripture text and audio, and the mentor chat model.
//
// Every call is a single attempt. Failures come back wrapped in one of the
// kinds below so callers can tell them apart with errors.Is.
package remote

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable means the request never got a response.
	ErrUnavailable = errors.New("service unavailable")
	// ErrBadStatus means the service answered with a non-success status.
	ErrBadStatus = errors.New("unexpected status")
	// ErrMalformed means the response could not be decoded into the expected shape.
	ErrMalformed = errors.New("malformed response")
)

func statusError(resp *http.Response) error {
	return fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
}
