package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/bizclone/internal/fault"
	"github.com/sells-group/bizclone/internal/provider"
	"github.com/sells-group/bizclone/internal/resilience"
)

// Executor walks an ordered provider fallback chain, retrying each provider
// on transient failures before advancing to the next. Provider identities
// and their ordering are configuration, not executor logic.
type Executor struct {
	registry    *provider.Registry
	order       []string
	retry       resilience.RetryConfig
	checkpoints *resilience.CheckpointStore
	callTimeout time.Duration
}

// NewExecutor builds an executor over the registered providers in the given
// fallback order. A positive callTimeout bounds each individual provider
// call; expiry classifies as TIMEOUT and follows the normal retry and
// fallback rules. A non-positive callTimeout leaves calls bounded only by
// the caller's context.
func NewExecutor(registry *provider.Registry, order []string, retry resilience.RetryConfig, checkpoints *resilience.CheckpointStore, callTimeout time.Duration) *Executor {
	return &Executor{
		registry:    registry,
		order:       order,
		retry:       retry,
		checkpoints: checkpoints,
		callTimeout: callTimeout,
	}
}

// terminalFailure records one provider's final error for the aggregate.
type terminalFailure struct {
	provider string
	class    provider.Class
	attempts int
	err      error
}

// Generate dispatches req down the fallback chain. AUTH and VALIDATION
// classifications advance to the next provider without retrying the same
// one; retryable classes exhaust the per-provider retry budget first. When
// every provider fails, the aggregated fault enumerates each terminal error.
func (e *Executor) Generate(ctx context.Context, id string, req provider.Request) (*provider.Result, error) {
	chain, err := e.registry.Chain(e.order)
	if err != nil {
		return nil, err
	}

	failures := make([]terminalFailure, 0, len(chain))

	for _, p := range chain {
		cfg := e.retry
		cfg.ShouldRetry = providerRetryable
		cfg.OnRetry = resilience.RetryLogger(p.Name(), "generate")

		outcome, err := resilience.Run(ctx, cfg, e.checkpoints, id,
			func(ctx context.Context) (*provider.Result, any, error) {
				if e.callTimeout > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, e.callTimeout)
					defer cancel()
				}
				res, genErr := p.Generate(ctx, req)
				if genErr != nil {
					return nil, partialOf(genErr), provider.Classify(p.Name(), genErr)
				}
				return res, nil, nil
			})
		if err == nil {
			e.clearCheckpoint(id)
			zap.L().Info("provider call succeeded",
				zap.String("provider", p.Name()),
				zap.Int("attempts", outcome.Attempts),
				zap.Duration("elapsed", outcome.Elapsed),
			)
			return outcome.Value, nil
		}

		if ctx.Err() != nil {
			return nil, fault.Wrap(err, fault.KindProviderTimeout, "generation canceled")
		}

		// A request-level fault (as opposed to a provider-side classification)
		// would fail identically against every provider, so stop here.
		if fault.Is(err, fault.KindValidation) || fault.Is(err, fault.KindConfigMissing) {
			return nil, err
		}

		classified := provider.Classify(p.Name(), err)
		failures = append(failures, terminalFailure{
			provider: p.Name(),
			class:    classified.Class,
			attempts: outcome.Attempts,
			err:      err,
		})
		zap.L().Warn("provider exhausted, advancing in fallback chain",
			zap.String("provider", p.Name()),
			zap.String("class", string(classified.Class)),
			zap.Int("attempts", outcome.Attempts),
			zap.Error(err),
		)
	}

	return nil, aggregateFailure(failures)
}

// clearCheckpoint drops the partial left by earlier failed attempts once a
// run succeeds, logging it so the recovery is visible to operators.
func (e *Executor) clearCheckpoint(id string) {
	if e.checkpoints == nil {
		return
	}
	cp, ok := e.checkpoints.Load(id)
	if !ok {
		return
	}
	zap.L().Debug("clearing checkpoint after success",
		zap.String("id", id),
		zap.Int("last_failed_attempt", cp.Attempt),
		zap.Any("partial", cp.Partial),
	)
	e.checkpoints.Delete(id)
}

// providerRetryable keeps AUTH and VALIDATION from burning retry budget:
// they are deterministic against the same provider.
func providerRetryable(err error) bool {
	var classified *provider.Error
	if errors.As(err, &classified) {
		return classified.Retryable()
	}
	return resilience.Retryable(err)
}

// partialOf extracts checkpoint-worthy context from a failed attempt.
func partialOf(err error) any {
	var classified *provider.Error
	if errors.As(err, &classified) {
		return map[string]any{
			"class": string(classified.Class),
			"error": err.Error(),
		}
	}
	return nil
}

// aggregateFailure folds per-provider terminal errors into a single fault.
// The kind is PROVIDER_TIMEOUT only when every terminal error was a timeout.
func aggregateFailure(failures []terminalFailure) *fault.Fault {
	kind := fault.KindProviderTimeout
	parts := make([]string, 0, len(failures))
	for _, f := range failures {
		if f.class != provider.ClassTimeout {
			kind = fault.KindProviderDown
		}
		parts = append(parts, fmt.Sprintf("%s: %s after %d attempt(s): %v",
			f.provider, f.class, f.attempts, f.err))
	}

	agg := fault.Newf(kind, "all providers failed: %s", strings.Join(parts, "; "))
	for _, f := range failures {
		agg = agg.WithDiagnostic(f.provider, string(f.class))
	}
	return agg
}
