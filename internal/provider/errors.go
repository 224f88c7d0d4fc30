package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"google.golang.org/api/googleapi"

	"github.com/sells-group/bizclone/pkg/grok"
)

// Class categorizes a provider failure. It decides whether the same provider
// is retried and which fault kind the orchestrator surfaces.
type Class string

const (
	ClassTimeout     Class = "TIMEOUT"
	ClassNetwork     Class = "NETWORK"
	ClassRateLimited Class = "RATE_LIMITED"
	ClassAuth        Class = "AUTH"
	ClassValidation  Class = "VALIDATION"
	ClassUnknown     Class = "UNKNOWN"
)

// Error is a classified provider failure.
type Error struct {
	Provider string
	Class    Class
	err      error
}

// NewError builds a classified Error; intended for provider adapters and
// test fakes.
func NewError(name string, class Class, err error) *Error {
	return &Error{Provider: name, Class: class, err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Class, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Retryable reports whether the same provider may be attempted again.
// AUTH and VALIDATION are deterministic against a given provider, so
// retrying them wastes budget; the chain advances instead.
func (e *Error) Retryable() bool {
	switch e.Class {
	case ClassTimeout, ClassNetwork, ClassRateLimited:
		return true
	}
	return false
}

// Classify wraps err in a classified Error attributed to the named provider.
// Already-classified errors pass through unchanged.
func Classify(name string, err error) *Error {
	var classified *Error
	if errors.As(err, &classified) {
		if classified.Provider == "" {
			classified.Provider = name
		}
		return classified
	}

	return &Error{Provider: name, Class: classOf(err), err: err}
}

func classOf(err error) Class {
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ClassTimeout
		}
		return ClassNetwork
	}

	var grokErr *grok.APIError
	if errors.As(err, &grokErr) {
		return classifyStatus(grokErr.StatusCode)
	}

	var sdkErr *sdk.Error
	if errors.As(err, &sdkErr) {
		return classifyStatus(sdkErr.StatusCode)
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return classifyStatus(gErr.Code)
	}

	return ClassUnknown
}

func classifyStatus(status int) Class {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ClassAuth
	case http.StatusTooManyRequests:
		return ClassRateLimited
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ClassTimeout
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ClassValidation
	}
	if status >= 500 {
		return ClassNetwork
	}
	return ClassUnknown
}
