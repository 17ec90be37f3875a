package intent

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound                  Kind = "not_found"
	KindConflict                  Kind = "conflict"
	KindValidation                Kind = "validation"
	KindPaymentVerificationFailed Kind = "payment_verification_failed"
	KindPaymentSettlementFailed   Kind = "payment_settlement_failed"
	KindExpired                   Kind = "expired"
	KindUnavailable               Kind = "unavailable"
	KindInternal                  Kind = "internal"
)

// Error is the error type returned by Service. Status is set on conflicts
// and carries the intent's current status.
type Error struct {
	Kind    Kind
	Message string
	Status  Status
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches kind sentinels, so errors.Is(err, ErrConflict) holds for every
// conflict.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrNotFound                  = &Error{Kind: KindNotFound}
	ErrConflict                  = &Error{Kind: KindConflict}
	ErrValidation                = &Error{Kind: KindValidation}
	ErrPaymentVerificationFailed = &Error{Kind: KindPaymentVerificationFailed}
	ErrPaymentSettlementFailed   = &Error{Kind: KindPaymentSettlementFailed}
	ErrExpired                   = &Error{Kind: KindExpired}
	ErrUnavailable               = &Error{Kind: KindUnavailable}
	ErrInternal                  = &Error{Kind: KindInternal}
)

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func conflict(in *Intent) *Error {
	return &Error{
		Kind:    KindConflict,
		Message: fmt.Sprintf("intent %s is %s", in.ID, in.Status),
		Status:  in.Status,
	}
}

func internal(err error, format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: err}
}
