package isapi

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means the device rejected both the probe and the
	// negotiated credentials. Fatal for the run.
	ErrUnauthorized = errors.New("device rejected credentials")

	// ErrTruncated means the search paging cap was reached before the device
	// signalled completion. The tracks gathered so far are still returned.
	ErrTruncated = errors.New("search results truncated: page cap reached")
)

// DeviceError is an application-level error reported by the device, parsed
// from its ResponseStatus body.
type DeviceError struct {
	HTTPStatus int
	Code       string
	Message    string
}

func (e *DeviceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("device error: HTTP %d", e.HTTPStatus)
	}
	return fmt.Sprintf("device error: HTTP %d: %s - %s", e.HTTPStatus, e.Message, e.Code)
}
