package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	anthropicpkg "github.com/sells-group/bizclone/pkg/anthropic"
	"github.com/sells-group/bizclone/pkg/grok"

	"github.com/sells-group/bizclone/internal/analysis"
	"github.com/sells-group/bizclone/internal/extract"
	"github.com/sells-group/bizclone/internal/orchestrator"
	"github.com/sells-group/bizclone/internal/provider"
	"github.com/sells-group/bizclone/internal/quality"
	"github.com/sells-group/bizclone/internal/resilience"
	"github.com/sells-group/bizclone/internal/store"
)

// env bundles everything a command needs, with a single Close.
type env struct {
	Store   store.Store
	Service *analysis.Service

	closers []func()
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initEnv validates config for mode, opens the store and wires the full
// service: provider chain, retry executor, concurrency gate, quality engine
// and page extractor.
func initEnv(ctx context.Context, mode string) (*env, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	e := &env{}

	st, err := initStore(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	e.Store = st
	e.closers = append(e.closers, func() { _ = st.Close() })

	if err := st.Migrate(ctx); err != nil {
		e.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	registry := provider.NewRegistry()
	if cfg.Anthropic.Key != "" {
		registry.Register(provider.NewAnthropicProvider(
			anthropicpkg.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model))
	}
	if cfg.Gemini.Key != "" {
		gp, err := provider.NewGeminiProvider(ctx, cfg.Gemini.Key, cfg.Gemini.Model)
		if err != nil {
			e.Close()
			return nil, eris.Wrap(err, "init gemini")
		}
		registry.Register(gp)
		e.closers = append(e.closers, func() { _ = gp.Close() })
	}
	if cfg.Grok.Key != "" {
		var opts []grok.Option
		if cfg.Grok.BaseURL != "" {
			opts = append(opts, grok.WithBaseURL(cfg.Grok.BaseURL))
		}
		if cfg.Grok.Model != "" {
			opts = append(opts, grok.WithModel(cfg.Grok.Model))
		}
		registry.Register(provider.NewGrokProvider(grok.NewClient(cfg.Grok.Key, opts...)))
	}

	executor := orchestrator.NewExecutor(registry, cfg.Providers.Order, resilience.RetryConfig{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff,
		MaxBackoff:     cfg.Retry.MaxBackoff,
		Multiplier:     cfg.Retry.Multiplier,
		JitterFraction: cfg.Retry.JitterFraction,
	}, resilience.NewCheckpointStore(256), cfg.Providers.CallTimeout)

	qcfg := quality.DefaultConfig()
	if cfg.Quality.ConfigPath != "" {
		qcfg, err = quality.LoadConfig(cfg.Quality.ConfigPath)
		if err != nil {
			zap.L().Warn("quality config load failed, using defaults", zap.Error(err))
			qcfg = quality.DefaultConfig()
		}
	}
	engine, err := quality.NewEngine(qcfg)
	if err != nil {
		e.Close()
		return nil, eris.Wrap(err, "init quality engine")
	}

	var extractor analysis.PageExtractor
	if cfg.Extract.Enabled {
		extractor = extract.New(extract.Options{
			Timeout:   cfg.Extract.Timeout,
			UserAgent: cfg.Extract.UserAgent,
		})
	}

	e.Service = analysis.NewService(st, executor,
		orchestrator.NewGate[any](cfg.Gate.MaxConcurrent), engine, extractor)
	return e, nil
}
