package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTransport marks network, DNS and timeout failures.
var ErrTransport = errors.New("transport failure")

// ErrMalformed marks a response body that could not be decoded.
var ErrMalformed = errors.New("malformed response body")

// StatusError reports a completed exchange whose HTTP status was not 200.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d %s", e.Code, http.StatusText(e.Code))
}

// CheckStatus returns resp.Error if the exchange failed, a [*StatusError]
// if the status is anything other than 200, and nil otherwise.
func CheckStatus(resp Response) error {
	if resp.Error != nil {
		return resp.Error
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}
