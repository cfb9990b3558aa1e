package fhirclient

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gofhir/labcodeset/terminology"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4 << 10

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string

	// notFound is set when the server reported the code as unknown.
	notFound bool
}

func newStatusError(resp *http.Response, url string) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{StatusCode: resp.StatusCode, URL: url, Body: string(body)}
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// Is reports a not-found response as terminology.ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == terminology.ErrNotFound && e.notFound
}
