// Package errs defines the error taxonomy shared across the gardener
// runtime. Components wrap a sentinel kind so callers can classify
// failures with errors.Is/errors.As instead of matching on type names.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure from §7 of the specification.
type Kind string

const (
	KindUser                  Kind = "user_error"
	KindCapabilityUnavailable Kind = "capability_unavailable"
	KindResourceExhausted     Kind = "resource_exhausted"
	KindPersistence           Kind = "persistence_error"
	KindLLMUnavailable        Kind = "llm_unavailable"
	KindLLMTimeout            Kind = "llm_timeout"
	KindIngest                Kind = "ingest_error"
	KindInvariantViolated     Kind = "internal_invariant_violated"
)

// Sentinel values for errors.Is comparisons against a Kind.
var (
	ErrUser                  = errors.New(string(KindUser))
	ErrCapabilityUnavailable = errors.New(string(KindCapabilityUnavailable))
	ErrResourceExhausted     = errors.New(string(KindResourceExhausted))
	ErrPersistence           = errors.New(string(KindPersistence))
	ErrLLMUnavailable        = errors.New(string(KindLLMUnavailable))
	ErrLLMTimeout            = errors.New(string(KindLLMTimeout))
	ErrIngest                = errors.New(string(KindIngest))
	ErrInvariantViolated     = errors.New(string(KindInvariantViolated))
)

func sentinelFor(k Kind) error {
	switch k {
	case KindUser:
		return ErrUser
	case KindCapabilityUnavailable:
		return ErrCapabilityUnavailable
	case KindResourceExhausted:
		return ErrResourceExhausted
	case KindPersistence:
		return ErrPersistence
	case KindLLMUnavailable:
		return ErrLLMUnavailable
	case KindLLMTimeout:
		return ErrLLMTimeout
	case KindIngest:
		return ErrIngest
	case KindInvariantViolated:
		return ErrInvariantViolated
	default:
		return errors.New(string(k))
	}
}

// Error is a taxonomy-tagged error carrying a human-readable reason and an
// optional wrapped cause.
type Error struct {
	Kind   Kind
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return sentinelFor(e.Kind)
}

// New builds a taxonomy error with no underlying cause.
func New(kind Kind, reason string) error {
	return &Error{Kind: kind, Reason: reason}
}

// Wrap builds a taxonomy error around an underlying cause.
func Wrap(kind Kind, reason string, cause error) error {
	return &Error{Kind: kind, Reason: reason, Cause: cause}
}

// CapabilityUnavailable reports that an optional subsystem named `name` is
// unavailable for `reason`.
func CapabilityUnavailable(name, reason string) error {
	return New(KindCapabilityUnavailable, fmt.Sprintf("%s unavailable: %s", name, reason))
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return errors.Is(err, sentinelFor(kind))
}

// ExitCode maps an error's taxonomy Kind to the CLI exit codes of §6:
// 0 success, 1 user error, 2 capability/runtime failure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if Is(err, KindUser) {
		return 1
	}
	return 2
}
