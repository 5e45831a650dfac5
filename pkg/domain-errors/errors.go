// Package domainerrors carries the error codes every ledger operation can fail with.
//
// Services return *Error values; transports translate the code into a status
// with ToHTTPStatus. Stores never return *Error directly, they return
// pkg/platform/sentinel values that services translate.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code identifies a failure kind. Codes are stable and part of the API contract.
type Code string

// Ledger failure kinds. Each is a local validation failure: the transition is
// rejected and no state changes.
const (
	CodeUnauthorized          Code = "unauthorized"
	CodeOperationsSuspended   Code = "operations_suspended"
	CodeNotEligibleToPropose  Code = "not_eligible_to_propose"
	CodeAlreadyRegistered     Code = "already_registered"
	CodeInsufficientFunds     Code = "insufficient_funds"
	CodeAlreadyFunded         Code = "already_funded"
	CodeAirlineNotEligible    Code = "airline_not_eligible"
	CodeInsufficientFee       Code = "insufficient_fee"
	CodeNotRegistered         Code = "not_registered"
	CodeIndexMismatch         Code = "index_mismatch"
	CodeAlreadyFinalized      Code = "already_finalized"
	CodePremiumOutOfRange     Code = "premium_out_of_range"
	CodeFlightAlreadyResolved Code = "flight_already_resolved"
	CodeAlreadyInsured        Code = "already_insured"
	CodeNoBalance             Code = "no_balance"
	CodeFlightNotFound        Code = "flight_not_found"
	CodeNoOpenRequest         Code = "no_open_request"
)

// Transport and infrastructure codes.
const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeNotFound           Code = "not_found"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// Error is a coded domain error. Err keeps the wrapped cause for logging.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code. A target with a
// message also has to match the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != e.Code {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// New builds a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the outermost *Error in the chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// ToHTTPStatus maps a code to the status the HTTP layer responds with.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotEligibleToPropose, CodeAirlineNotEligible:
		return http.StatusForbidden
	case CodeOperationsSuspended:
		return http.StatusServiceUnavailable
	case CodeAlreadyRegistered, CodeAlreadyFunded, CodeAlreadyFinalized,
		CodeFlightAlreadyResolved, CodeAlreadyInsured:
		return http.StatusConflict
	case CodeInsufficientFunds, CodeInsufficientFee:
		return http.StatusPaymentRequired
	case CodeNotRegistered, CodeNotFound, CodeFlightNotFound, CodeNoOpenRequest:
		return http.StatusNotFound
	case CodeIndexMismatch, CodePremiumOutOfRange, CodeNoBalance, CodeValidation,
		CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
