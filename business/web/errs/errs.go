// Package errs provides types and support for classifying failures and
// carrying them through the request path with web specific context.
package errs

import (
	"errors"
	"net/http"
)

// Kind classifies a failure into one of the categories the API reports.
type Kind string

// Set of failure categories used across the business layer.
const (
	Validation        Kind = "VALIDATION"
	Auth              Kind = "AUTH"
	InsufficientFunds Kind = "INSUFFICIENT_FUNDS"
	Conflict          Kind = "CONFLICT"
	NotFound          Kind = "NOT_FOUND"
	Transient         Kind = "TRANSIENT"
	Fatal             Kind = "FATAL"
)

// Status returns the HTTP status code the category maps to.
func (k Kind) Status() int {
	switch k {
	case Validation, InsufficientFunds:
		return http.StatusBadRequest
	case Auth:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Trusted is used to pass an error during the request through the
// application with web specific context.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// NewKinded wraps a provided error with the HTTP status code its
// failure category maps to.
func NewKinded(kind Kind, err error) error {
	return &Trusted{err, kind.Status()}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (re *Trusted) Error() string {
	return re.Err.Error()
}

// IsTrusted checks if an error of type Trusted exists inside err's chain.
func IsTrusted(err error) bool {
	var re *Trusted
	return errors.As(err, &re)
}

// GetTrusted returns a copy of the Trusted error pointer.
func GetTrusted(err error) *Trusted {
	var re *Trusted
	if !errors.As(err, &re) {
		return nil
	}
	return re
}
