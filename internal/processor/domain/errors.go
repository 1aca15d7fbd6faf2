package domain

import (
	"errors"
	"strings"
)

var (
	ErrUpstream               = errors.New("upstream_error")
	ErrCardDeclined           = errors.New("card_declined")
	ErrAuthenticationRequired = errors.New("authentication_required")
	ErrSignatureInvalid       = errors.New("signature_invalid")
	ErrNotFound               = errors.New("not_found")
	ErrInvalidRequest         = errors.New("invalid_request")
	ErrInvalidPayload         = errors.New("invalid_payload")
)

// Error is a classified processor failure. Kind is one of the sentinels above;
// Message carries the processor's own wording for client display.
type Error struct {
	Kind    error
	Op      string
	Code    string
	Message string
	Status  int
	Cause   error
}

func (e *Error) Error() string {
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	if e.Cause != nil {
		return e.Op + ": " + e.Cause.Error()
	}
	if e.Kind != nil {
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Op + ": processor error"
}

func (e *Error) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf returns the sentinel kind of err, or ErrUpstream when err is an
// unclassified failure.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) && pe.Kind != nil {
		return pe.Kind
	}
	for _, kind := range []error{
		ErrCardDeclined,
		ErrAuthenticationRequired,
		ErrSignatureInvalid,
		ErrNotFound,
		ErrInvalidRequest,
		ErrInvalidPayload,
		ErrUpstream,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrUpstream
}
