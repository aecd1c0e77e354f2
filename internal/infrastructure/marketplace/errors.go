package marketplace

import (
	"fmt"
	"net/http"

	"github.com/crosslist/backend/internal/domain/listing"
)

// maxResponseSize is the maximum allowed response size from a marketplace API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// statusError maps an HTTP status code to an adapter error. The message
// should carry whatever detail the platform returned in its error body.
func statusError(platform listing.Platform, status int, message string) *listing.AdapterError {
	if message == "" {
		message = http.StatusText(status)
	}
	var code string
	var permanent bool
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code, permanent = listing.AdapterErrCodeAuth, true
	case status == http.StatusNotFound || status == http.StatusGone:
		code, permanent = listing.AdapterErrCodeNotFound, true
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		code, permanent = listing.AdapterErrCodeValidation, true
	case status == http.StatusTooManyRequests:
		code = listing.AdapterErrCodeRateLimited
	case status >= 500:
		code = listing.AdapterErrCodeUnreachable
	default:
		code = listing.AdapterErrCodeUnknown
		message = fmt.Sprintf("unexpected status %d: %s", status, message)
	}
	adapterErr := listing.NewAdapterError(platform, code, message)
	adapterErr.Permanent = permanent
	adapterErr.Details["http_status"] = status
	return adapterErr
}

// transportError wraps a network-level failure as a transient adapter error.
func transportError(platform listing.Platform, err error) *listing.AdapterError {
	return listing.NewAdapterError(platform, listing.AdapterErrCodeUnreachable, err.Error())
}
