package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers that need to react to it.
type Kind string

const (
	KindValidation      Kind = "ValidationError"
	KindExtraction      Kind = "ExtractionError"
	KindBudgetExceeded  Kind = "BudgetExceededError"
	KindExternalService Kind = "ExternalServiceError"
	KindConfiguration   Kind = "ConfigurationError"
	KindInternal        Kind = "InternalError"
)

// Error is a classified error. The wrapped cause, if any, stays reachable via errors.Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Message
	case e.Message == "":
		return e.Err.Error()
	default:
		return e.Message + ": " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrExtraction      = &Error{Kind: KindExtraction}
	ErrBudgetExceeded  = &Error{Kind: KindBudgetExceeded}
	ErrExternalService = &Error{Kind: KindExternalService}
	ErrConfiguration   = &Error{Kind: KindConfiguration}
)

// Validation reports malformed, empty or oversized input.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Validationf is Validation with formatting.
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Extraction reports an unreadable document or one that yields no text.
func Extraction(msg string, err error) error {
	return &Error{Kind: KindExtraction, Message: msg, Err: err}
}

// BudgetExceeded reports an exhausted token budget.
func BudgetExceeded(msg string) error {
	return &Error{Kind: KindBudgetExceeded, Message: msg}
}

// ExternalService reports a failed or unusable call to the reasoning service.
func ExternalService(msg string, err error) error {
	return &Error{Kind: KindExternalService, Message: msg, Err: err}
}

// Configuration reports a missing or invalid setting that prevents construction.
func Configuration(msg string) error {
	return &Error{Kind: KindConfiguration, Message: msg}
}

// KindOf returns the kind of the first classified error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Headline returns the user-facing summary for a kind.
func Headline(kind Kind) string {
	switch kind {
	case KindValidation:
		return "Invalid resume submission."
	case KindExtraction:
		return "Error processing resume. Ensure the file is a valid PDF."
	case KindBudgetExceeded:
		return "Token limit reached. Please try again later."
	case KindExternalService:
		return "Error during analysis."
	case KindConfiguration:
		return "Analysis service unavailable."
	default:
		return "Unexpected error processing resume."
	}
}
