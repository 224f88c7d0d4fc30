package fault

import (
	"errors"
	"testing"
	"time"
)

func TestKindOf_Classified(t *testing.T) {
	err := New(KindQualityFailed, "composite below threshold")
	if got := KindOf(err); got != KindQualityFailed {
		t.Errorf("expected QUALITY_FAILED, got %s", got)
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	inner := Wrap(errors.New("dial tcp: connection refused"), KindProviderDown, "all providers exhausted")
	outer := errors.Join(errors.New("stage 3"), inner)
	if got := KindOf(outer); got != KindProviderDown {
		t.Errorf("expected PROVIDER_DOWN through chain, got %s", got)
	}
}

func TestKindOf_Unclassified(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Errorf("expected INTERNAL for plain error, got %s", got)
	}
}

func TestDefaultRetryable(t *testing.T) {
	cases := map[Kind]bool{
		KindValidation:           false,
		KindConfigMissing:        false,
		KindProviderDown:         true,
		KindProviderTimeout:      true,
		KindRateLimited:          true,
		KindQualityFailed:        true,
		KindProgressionViolation: false,
		KindNotFound:             false,
		KindInternal:             false,
	}
	for kind, want := range cases {
		if got := New(kind, "x").Retryable; got != want {
			t.Errorf("%s: retryable = %v, want %v", kind, got, want)
		}
	}
}

func TestWithRetryAfterAndDiagnostics(t *testing.T) {
	f := New(KindRateLimited, "capacity exceeded").
		WithRetryAfter(2 * time.Second).
		WithDiagnostic("in_flight", 5)

	if f.RetryAfter != 2*time.Second {
		t.Errorf("retry after = %v", f.RetryAfter)
	}
	if f.Diagnostics["in_flight"] != 5 {
		t.Errorf("diagnostics = %v", f.Diagnostics)
	}
}

func TestAs_SynthesizesInternal(t *testing.T) {
	f := As(errors.New("pg: connection lost"))
	if f.Kind != KindInternal {
		t.Errorf("kind = %s", f.Kind)
	}
	if f.Message == "" {
		t.Error("message should carry original error text")
	}
}
