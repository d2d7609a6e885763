// Package vaulterr defines the symbolic error tags surfaced by vault operations.
//
// Every failed operation returns exactly one *Error whose Code clients can
// branch on. errors.Is matches by code, so callers compare against the
// sentinel values below.
package vaulterr

import (
	"errors"
	"fmt"
)

// Code is a stable symbolic error tag.
type Code string

const (
	CodeInvalidAmount          Code = "InvalidAmount"
	CodeInvalidPeriods         Code = "InvalidPeriods"
	CodeInvalidInterval        Code = "InvalidInterval"
	CodeInvalidSliceAmount     Code = "InvalidSliceAmount"
	CodeInvalidRequest         Code = "InvalidRequest"
	CodeUnauthorized           Code = "Unauthorized"
	CodeWrongAssociatedAccount Code = "WrongAssociatedAccount"
	CodeWrongMint              Code = "WrongMint"
	CodeSwapNotDue             Code = "SwapNotDue"
	CodePlanComplete           Code = "PlanComplete"
	CodeInsufficientBalance    Code = "InsufficientBalance"
	CodeSwapExecutionFailed    Code = "SwapExecutionFailed"
	CodeInvalidDestination     Code = "InvalidDestination"
	CodeNotFound               Code = "NotFound"
	CodeAlreadyExists          Code = "AlreadyExists"
	CodeArithmeticOverflow     Code = "ArithmeticOverflow"
	CodeInternal               Code = "Internal"
)

// Kind groups codes into the categories callers handle uniformly.
type Kind string

const (
	KindValidation    Kind = "ValidationError"
	KindAuthorization Kind = "AuthorizationError"
	KindSchedule      Kind = "ScheduleError"
	KindFunds         Kind = "FundsError"
	KindExternal      Kind = "ExternalError"
	KindNotFound      Kind = "NotFoundError"
	KindConflict      Kind = "ConflictError"
	KindInternal      Kind = "InternalError"
)

var kinds = map[Code]Kind{
	CodeInvalidAmount:          KindValidation,
	CodeInvalidPeriods:         KindValidation,
	CodeInvalidInterval:        KindValidation,
	CodeInvalidSliceAmount:     KindValidation,
	CodeInvalidRequest:         KindValidation,
	CodeUnauthorized:           KindAuthorization,
	CodeWrongAssociatedAccount: KindAuthorization,
	CodeWrongMint:              KindAuthorization,
	CodeSwapNotDue:             KindSchedule,
	CodePlanComplete:           KindSchedule,
	CodeInsufficientBalance:    KindFunds,
	CodeSwapExecutionFailed:    KindExternal,
	CodeInvalidDestination:     KindExternal,
	CodeNotFound:               KindNotFound,
	CodeAlreadyExists:          KindConflict,
	CodeArithmeticOverflow:     KindInternal,
	CodeInternal:               KindInternal,
}

// Kind returns the category of the code. Unknown codes are internal.
func (c Code) Kind() Kind {
	if k, ok := kinds[c]; ok {
		return k
	}
	return KindInternal
}

// Error is a tagged vault error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = defaultMessages[e.Code]
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var defaultMessages = map[Code]string{
	CodeInvalidAmount:          "amount must be greater than zero",
	CodeInvalidPeriods:         "periods must be greater than zero",
	CodeInvalidInterval:        "interval must be greater than zero",
	CodeInvalidSliceAmount:     "invalid slice amount for swap",
	CodeInvalidRequest:         "malformed request",
	CodeUnauthorized:           "unauthorized access to vault",
	CodeWrongAssociatedAccount: "account is not the expected associated holding",
	CodeWrongMint:              "account holds an unexpected asset",
	CodeSwapNotDue:             "swap is not due yet",
	CodePlanComplete:           "dca plan is already complete",
	CodeInsufficientBalance:    "insufficient balance",
	CodeSwapExecutionFailed:    "swap execution failed",
	CodeInvalidDestination:     "invalid swap destination",
	CodeNotFound:               "not found",
	CodeAlreadyExists:          "vault already exists",
	CodeArithmeticOverflow:     "arithmetic overflow",
	CodeInternal:               "internal error",
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidAmount          = &Error{Code: CodeInvalidAmount}
	ErrInvalidPeriods         = &Error{Code: CodeInvalidPeriods}
	ErrInvalidInterval        = &Error{Code: CodeInvalidInterval}
	ErrInvalidSliceAmount     = &Error{Code: CodeInvalidSliceAmount}
	ErrInvalidRequest         = &Error{Code: CodeInvalidRequest}
	ErrUnauthorized           = &Error{Code: CodeUnauthorized}
	ErrWrongAssociatedAccount = &Error{Code: CodeWrongAssociatedAccount}
	ErrWrongMint              = &Error{Code: CodeWrongMint}
	ErrSwapNotDue             = &Error{Code: CodeSwapNotDue}
	ErrPlanComplete           = &Error{Code: CodePlanComplete}
	ErrInsufficientBalance    = &Error{Code: CodeInsufficientBalance}
	ErrSwapExecutionFailed    = &Error{Code: CodeSwapExecutionFailed}
	ErrInvalidDestination     = &Error{Code: CodeInvalidDestination}
	ErrNotFound               = &Error{Code: CodeNotFound}
	ErrAlreadyExists          = &Error{Code: CodeAlreadyExists}
	ErrArithmeticOverflow     = &Error{Code: CodeArithmeticOverflow}
)

// New returns an error with the given code and message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags err with code. If err already carries a code it is returned as is.
func Wrap(code Code, err error) error {
	if err == nil {
		return nil
	}
	var ve *Error
	if errors.As(err, &ve) {
		return err
	}
	return &Error{Code: code, Err: err}
}

// CodeOf extracts the tag from err. Untagged errors are internal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Code
	}
	return CodeInternal
}
