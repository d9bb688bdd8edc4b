package cfapi

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"404", &APIError{StatusCode: http.StatusNotFound}, true},
		{"wrapped 404", fmt.Errorf("looking up app: %w", &APIError{StatusCode: http.StatusNotFound}), true},
		{"500", &APIError{StatusCode: http.StatusInternalServerError}, false},
		{"plain error", errors.New("nope"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"500", &APIError{StatusCode: http.StatusInternalServerError}, true},
		{"502", &APIError{StatusCode: http.StatusBadGateway}, true},
		{"429", &APIError{StatusCode: http.StatusTooManyRequests}, true},
		{"404", &APIError{StatusCode: http.StatusNotFound}, false},
		{"400", &APIError{StatusCode: http.StatusBadRequest}, false},
		{"timeout", &APIError{Err: timeoutError{}}, true},
		{"plain error", errors.New("nope"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsSSL(t *testing.T) {
	sslErr := &APIError{Err: x509.UnknownAuthorityError{}}
	if !IsSSL(sslErr) {
		t.Error("expected unknown authority to classify as SSL")
	}
	if !IsSSL(fmt.Errorf("scheduling: %w", sslErr)) {
		t.Error("expected wrapped SSL error to classify as SSL")
	}
	if IsSSL(&APIError{StatusCode: http.StatusInternalServerError}) {
		t.Error("500 must not classify as SSL")
	}
	if IsSSL(errors.New("handshake-ish message")) {
		t.Error("message contents must not drive classification")
	}
}

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{StatusCode: 422, Title: "CF-UnprocessableEntity", Detail: "name must be unique"}
	got := err.Error()
	want := "cf api: 422 CF-UnprocessableEntity: name must be unique"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

// timeoutError satisfies net.Error with Timeout() == true.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }
