// Package apperrors defines the typed errors shared by services and handlers.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for propagation and HTTP mapping
type Kind string

const (
	KindValidation         Kind = "validation_error"
	KindAuthentication     Kind = "authentication_error"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "not_found"
	KindVerificationFailed Kind = "verification_failed"
	KindProvider           Kind = "provider_error"
	KindPersistence        Kind = "persistence_error"
	KindConfig             Kind = "config_error"
)

// Error codes returned to clients
const (
	CodeMissingParameters   = "MISSING_PARAMETERS"
	CodeMissingPrice        = "MISSING_PRICE"
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidRouteStages  = "INVALID_ROUTE_STAGES"
	CodeInvalidSignature    = "INVALID_SIGNATURE"
	CodeUnauthenticated     = "UNAUTHENTICATED"
	CodeForbidden           = "FORBIDDEN"
	CodeRouteNotFound       = "ROUTE_NOT_FOUND"
	CodeTicketNotFound      = "TICKET_NOT_FOUND"
	CodeNotFound            = "NOT_FOUND"
	CodeBusNotFound         = "BUS_NOT_FOUND"
	CodeBusSuspended        = "BUS_SUSPENDED"
	CodeVerificationFailed  = "VERIFICATION_FAILED"
	CodeProviderUnreachable = "PROVIDER_UNREACHABLE"
	CodeProviderBadResponse = "PROVIDER_BAD_RESPONSE"
	CodePersistenceFailure  = "PERSISTENCE_FAILURE"
	CodeBookingCreateFailed = "BOOKING_CREATE_FAILED"
	CodeOrderUpsertFailed   = "ORDER_UPSERT_FAILED"
	CodeMissingProviderKey  = "MISSING_PROVIDER_KEY"
)

// Error is the application error carried across layers
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the error kind to a response status
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindVerificationFailed:
		return http.StatusPaymentRequired
	case KindProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func Validation(code, message string) *Error {
	return newError(KindValidation, code, message, nil)
}

func Unauthenticated(message string) *Error {
	return newError(KindAuthentication, CodeUnauthenticated, message, nil)
}

func Forbidden(message string) *Error {
	return newError(KindForbidden, CodeForbidden, message, nil)
}

func NotFound(code, message string) *Error {
	return newError(KindNotFound, code, message, nil)
}

func VerificationFailed(message string) *Error {
	return newError(KindVerificationFailed, CodeVerificationFailed, message, nil)
}

func Provider(code, message string, err error) *Error {
	return newError(KindProvider, code, message, err)
}

func Persistence(code, message string, err error) *Error {
	return newError(KindPersistence, code, message, err)
}

func MissingProviderKey() *Error {
	return newError(KindConfig, CodeMissingProviderKey, "payment provider secret key not set", nil)
}

// As extracts the application error from err, if any
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

func is(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

func IsValidation(err error) bool         { return is(err, KindValidation) }
func IsNotFound(err error) bool           { return is(err, KindNotFound) }
func IsVerificationFailed(err error) bool { return is(err, KindVerificationFailed) }
func IsProvider(err error) bool           { return is(err, KindProvider) }
func IsPersistence(err error) bool        { return is(err, KindPersistence) }

// HasCode reports whether err is an application error with the given code
func HasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}
