// Package fault defines the tagged failure type used across the analysis
// core. Callers switch on Kind instead of unwrapping provider-specific
// errors.
package fault

import (
	"errors"
	"fmt"
	"time"
)

// Kind discriminates failure categories surfaced to callers.
type Kind string

const (
	KindValidation           Kind = "VALIDATION"
	KindConfigMissing        Kind = "CONFIG_MISSING"
	KindProviderDown         Kind = "PROVIDER_DOWN"
	KindProviderTimeout      Kind = "PROVIDER_TIMEOUT"
	KindRateLimited          Kind = "RATE_LIMITED"
	KindQualityFailed        Kind = "QUALITY_FAILED"
	KindProgressionViolation Kind = "PROGRESSION_VIOLATION"
	KindNotFound             Kind = "NOT_FOUND"
	KindInternal             Kind = "INTERNAL"
)

// Fault is a classified failure. It implements error and carries enough
// detail for a caller to decide whether and when to retry.
type Fault struct {
	Kind        Kind
	Message     string
	Retryable   bool
	RetryAfter  time.Duration
	Diagnostics map[string]any
	cause       error
}

func (f *Fault) Error() string {
	if f.cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.cause)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Fault) Unwrap() error {
	return f.cause
}

// New creates a Fault with the retryability implied by its kind.
func New(kind Kind, message string) *Fault {
	return &Fault{
		Kind:      kind,
		Message:   message,
		Retryable: defaultRetryable(kind),
	}
}

// Newf creates a Fault with a formatted message.
func Newf(kind Kind, format string, args ...any) *Fault {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap creates a Fault wrapping an underlying cause.
func Wrap(err error, kind Kind, message string) *Fault {
	f := New(kind, message)
	f.cause = err
	return f
}

// WithRetryAfter sets an estimated wait before the caller should retry.
func (f *Fault) WithRetryAfter(d time.Duration) *Fault {
	f.RetryAfter = d
	return f
}

// WithDiagnostic attaches a named diagnostic value.
func (f *Fault) WithDiagnostic(key string, val any) *Fault {
	if f.Diagnostics == nil {
		f.Diagnostics = make(map[string]any)
	}
	f.Diagnostics[key] = val
	return f
}

func defaultRetryable(kind Kind) bool {
	switch kind {
	case KindProviderTimeout, KindRateLimited, KindProviderDown, KindQualityFailed:
		return true
	default:
		return false
	}
}

// KindOf extracts the Kind from an error chain. Unclassified errors map
// to INTERNAL.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindInternal
}

// As returns the Fault in err's chain, or a synthetic INTERNAL fault when
// err was never classified.
func As(err error) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return &Fault{
		Kind:    KindInternal,
		Message: err.Error(),
		cause:   err,
	}
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
