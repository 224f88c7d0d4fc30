// Package analysis is the service layer: it ties the orchestration core to
// the store, the page extractor and the prompt builders, and enforces
// ownership, workflow progression and the quality gate.
package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/bizclone/internal/fault"
	"github.com/sells-group/bizclone/internal/model"
	"github.com/sells-group/bizclone/internal/orchestrator"
	"github.com/sells-group/bizclone/internal/prompt"
	"github.com/sells-group/bizclone/internal/provider"
	"github.com/sells-group/bizclone/internal/quality"
	"github.com/sells-group/bizclone/internal/schema"
	"github.com/sells-group/bizclone/internal/store"
	"github.com/sells-group/bizclone/internal/workflow"
)

// Generator dispatches one generation request down the provider chain.
// Satisfied by orchestrator.Executor.
type Generator interface {
	Generate(ctx context.Context, id string, req provider.Request) (*provider.Result, error)
}

// PageExtractor pulls best-effort first-party page context.
// Satisfied by extract.Extractor.
type PageExtractor interface {
	Extract(ctx context.Context, rawURL string) (*model.PageContext, error)
}

// Service implements the analysis operations behind the HTTP API and CLI.
type Service struct {
	store     store.Store
	generator Generator
	gate      *orchestrator.Gate[any]
	engine    *quality.Engine
	extractor PageExtractor // optional; nil disables first-party extraction
}

// NewService wires a Service. extractor may be nil.
func NewService(st store.Store, gen Generator, gate *orchestrator.Gate[any], engine *quality.Engine, extractor PageExtractor) *Service {
	return &Service{
		store:     st,
		generator: gen,
		gate:      gate,
		engine:    engine,
		extractor: extractor,
	}
}

// RequestKey derives the deduplication identity for a logical unit of work.
func RequestKey(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(h[:])
}

// CreateAnalysis runs the initial analysis of rawURL for ownerID, persists
// the record and returns it.
func (s *Service) CreateAnalysis(ctx context.Context, ownerID, rawURL string) (*model.AnalysisOutcome, error) {
	target, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	key := RequestKey(ownerID, target, "analysis")
	val, shared, err := s.gate.Submit(ctx, key, func(ctx context.Context) (any, error) {
		return s.runAnalysis(ctx, ownerID, target, key)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		zap.L().Info("analysis request deduplicated", zap.String("url", target))
	}
	return val.(*model.AnalysisOutcome), nil
}

func (s *Service) runAnalysis(ctx context.Context, ownerID, target, key string) (*model.AnalysisOutcome, error) {
	page := s.extractPage(ctx, target)

	res, err := s.generator.Generate(ctx, key, provider.Request{
		System: prompt.SystemPrompt,
		Prompt: prompt.AnalysisPrompt(target, page),
	})
	if err != nil {
		return nil, err
	}

	if err := s.checkQuality(schema.KindAnalysis, res.Content, s.bizContext(target, page)); err != nil {
		return nil, err
	}

	structured, err := decodeStructured(res.Content)
	if err != nil {
		return nil, err
	}

	rec := &model.AnalysisRecord{
		OwnerID:  ownerID,
		URL:      target,
		Summary:  structured.Synthesis.Summary,
		Provider: res.Provider,
		Analysis: structured,
	}
	if err := s.store.CreateAnalysis(ctx, rec); err != nil {
		// The generation succeeded; hand the content back alongside the
		// persistence failure so the caller does not pay for it twice.
		return nil, fault.Wrap(err, fault.KindInternal, "analysis generated but not persisted").
			WithDiagnostic("content", res.Content).
			WithDiagnostic("provider", res.Provider)
	}

	zap.L().Info("analysis created",
		zap.String("id", rec.ID),
		zap.String("url", target),
		zap.String("provider", res.Provider),
	)
	return &model.AnalysisOutcome{
		Record:       rec,
		Content:      structured,
		ProviderUsed: res.Provider,
	}, nil
}

// GenerateStage generates stage n of an analysis, enforcing workflow
// progression and the quality gate, then persists the stage.
func (s *Service) GenerateStage(ctx context.Context, ownerID, id string, stage int, regenerate bool) (*model.StageOutcome, error) {
	rec, err := s.load(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckProgression(rec, stage, regenerate); err != nil {
		return nil, err
	}

	key := RequestKey(id, "stage", strconv.Itoa(stage))
	val, _, err := s.gate.Submit(ctx, key, func(ctx context.Context) (any, error) {
		return s.runStage(ctx, rec, stage, key)
	})
	if err != nil {
		return nil, err
	}
	return val.(*model.StageOutcome), nil
}

func (s *Service) runStage(ctx context.Context, rec *model.AnalysisRecord, stage int, key string) (*model.StageOutcome, error) {
	res, err := s.generator.Generate(ctx, key, provider.Request{
		System: prompt.SystemPrompt,
		Prompt: prompt.StagePrompt(stage, rec),
	})
	if err != nil {
		return nil, err
	}

	if err := s.checkQuality(schema.KindForStage(stage), res.Content, s.bizContext(rec.URL, nil)); err != nil {
		return nil, err
	}

	data := workflow.Complete(stage, res.Content, time.Now().UTC())
	if err := s.store.SaveStage(ctx, rec.ID, data); err != nil {
		return nil, fault.Wrap(err, fault.KindInternal, "stage generated but not persisted").
			WithDiagnostic("content", res.Content).
			WithDiagnostic("stage", stage)
	}

	zap.L().Info("stage generated",
		zap.String("id", rec.ID),
		zap.Int("stage", stage),
		zap.String("provider", res.Provider),
	)
	return &model.StageOutcome{
		Stage:       stage,
		Content:     data.Content,
		GeneratedAt: data.GeneratedAt,
		NextStage:   workflow.NextStage(stage),
	}, nil
}

// GenerateImprovement runs the improvement pass over an analysis. It may run
// at any point after the initial analysis.
func (s *Service) GenerateImprovement(ctx context.Context, ownerID, id string) (*model.ImprovementOutcome, error) {
	rec, err := s.load(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if rec.Analysis == nil {
		return nil, fault.New(fault.KindValidation, "analysis has no initial analysis to improve")
	}

	key := RequestKey(id, "improvement")
	val, _, err := s.gate.Submit(ctx, key, func(ctx context.Context) (any, error) {
		return s.runImprovement(ctx, rec, key)
	})
	if err != nil {
		return nil, err
	}
	return val.(*model.ImprovementOutcome), nil
}

func (s *Service) runImprovement(ctx context.Context, rec *model.AnalysisRecord, key string) (*model.ImprovementOutcome, error) {
	res, err := s.generator.Generate(ctx, key, provider.Request{
		System: prompt.SystemPrompt,
		Prompt: prompt.ImprovementPrompt(rec),
	})
	if err != nil {
		return nil, err
	}

	if err := s.checkQuality(schema.KindImprovement, res.Content, s.bizContext(rec.URL, nil)); err != nil {
		return nil, err
	}

	imp := &model.Improvement{
		Suggestions: stringList(res.Content["suggestions"]),
		Priorities:  stringList(res.Content["priorities"]),
		QuickWins:   stringList(res.Content["quick_wins"]),
		GeneratedAt: time.Now().UTC(),
	}
	if err := s.store.SaveImprovement(ctx, rec.ID, imp); err != nil {
		return nil, fault.Wrap(err, fault.KindInternal, "improvement generated but not persisted").
			WithDiagnostic("content", res.Content)
	}

	return &model.ImprovementOutcome{
		Improvement:  imp,
		ProviderUsed: res.Provider,
	}, nil
}

// GetAnalysis returns one analysis owned by ownerID.
func (s *Service) GetAnalysis(ctx context.Context, ownerID, id string) (*model.AnalysisRecord, error) {
	return s.load(ctx, ownerID, id)
}

// ListAnalyses returns the owner's analyses, newest first.
func (s *Service) ListAnalyses(ctx context.Context, ownerID string, limit, offset int) ([]model.AnalysisRecord, error) {
	return s.store.ListAnalyses(ctx, store.ListFilter{
		OwnerID: ownerID,
		Limit:   limit,
		Offset:  offset,
	})
}

// DeleteAnalysis removes one analysis owned by ownerID.
func (s *Service) DeleteAnalysis(ctx context.Context, ownerID, id string) error {
	if _, err := s.load(ctx, ownerID, id); err != nil {
		return err
	}
	return s.store.DeleteAnalysis(ctx, id)
}

// load fetches a record and enforces ownership. A record owned by someone
// else reads as NOT_FOUND so existence never leaks across owners.
func (s *Service) load(ctx context.Context, ownerID, id string) (*model.AnalysisRecord, error) {
	rec, err := s.store.GetAnalysis(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.OwnerID != ownerID {
		return nil, fault.Newf(fault.KindNotFound, "analysis not found: %s", id)
	}
	return rec, nil
}

func (s *Service) extractPage(ctx context.Context, target string) *model.PageContext {
	if s.extractor == nil {
		return nil
	}
	page, err := s.extractor.Extract(ctx, target)
	if err != nil {
		zap.L().Warn("page extraction failed, continuing without first-party context",
			zap.String("url", target),
			zap.Error(err),
		)
		return nil
	}
	return page
}

func (s *Service) bizContext(target string, page *model.PageContext) quality.BusinessContext {
	biz := quality.BusinessContext{URL: target}
	if page != nil && page.Title != "" {
		biz.Name = page.Title
	}
	return biz
}

// checkQuality converts a failed quality verdict into a QUALITY_FAILED fault
// carrying the score and issues.
func (s *Service) checkQuality(kind schema.Kind, content map[string]any, biz quality.BusinessContext) error {
	qr := s.engine.Score(kind, content, biz)
	if qr.Passed {
		return nil
	}
	f := fault.Newf(fault.KindQualityFailed, "generated content failed quality gate (score %.2f)", qr.Score).
		WithDiagnostic("score", qr.Score)
	for name, score := range qr.CheckScores {
		f = f.WithDiagnostic("check_"+name, score)
	}
	if len(qr.Issues) > 0 {
		f = f.WithDiagnostic("issues", qr.Issues)
	}
	return f
}

// normalizeURL validates the target and strips fragments. Only absolute
// http(s) URLs are accepted.
func normalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fault.Newf(fault.KindValidation, "invalid target URL: %q", raw)
	}
	u.Fragment = ""
	return u.String(), nil
}

// decodeStructured converts raw provider content into the typed analysis
// payload via a JSON round trip.
func decodeStructured(content map[string]any) (*model.StructuredAnalysis, error) {
	data, err := json.Marshal(content)
	if err != nil {
		return nil, fault.Wrap(err, fault.KindInternal, "marshal analysis content")
	}
	var structured model.StructuredAnalysis
	if err := json.Unmarshal(data, &structured); err != nil {
		return nil, fault.Wrap(err, fault.KindInternal, "decode analysis content")
	}
	return &structured, nil
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
