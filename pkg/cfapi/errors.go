package cfapi

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// APIError is a failure reported by the platform API. StatusCode carries the
// HTTP status; Code/Title/Detail mirror the platform's error body when one
// was returned.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Code       int    `json:"code,omitempty"`
	Title      string `json:"title,omitempty"`
	Detail     string `json:"detail,omitempty"`

	// Err is the underlying transport error, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("cf api: %d %s: %s", e.StatusCode, e.Title, e.Detail)
	}
	if e.Err != nil {
		return fmt.Sprintf("cf api: %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("cf api: status %d", e.StatusCode)
}

// Unwrap returns the underlying error for chain inspection.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err represents absence of the requested
// resource. Absence is the only condition permitted to trigger a
// create-new branch; every other failure class propagates.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsTransient reports whether err looks like a temporary platform or
// network hiccup worth retrying: 5xx responses, rate limiting, timeouts.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 500 || apiErr.StatusCode == http.StatusTooManyRequests {
			return true
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// IsSSL reports whether err originates from TLS negotiation or certificate
// verification. The schedule orchestrator retries exactly this class and
// nothing else.
func IsSSL(err error) bool {
	var (
		record    tls.RecordHeaderError
		certVerif *tls.CertificateVerificationError
		unknownCA x509.UnknownAuthorityError
		invalid   x509.CertificateInvalidError
		hostname  x509.HostnameError
	)
	return errors.As(err, &record) ||
		errors.As(err, &certVerif) ||
		errors.As(err, &unknownCA) ||
		errors.As(err, &invalid) ||
		errors.As(err, &hostname)
}
