package model

import "time"

// AnalysisOutcome is the successful result of an initial-analysis call.
type AnalysisOutcome struct {
	Record       *AnalysisRecord     `json:"record"`
	Content      *StructuredAnalysis `json:"content"`
	ProviderUsed string              `json:"provider_used"`
}

// StageOutcome is the successful result of a stage-generation call.
// NextStage is 0 after the final stage.
type StageOutcome struct {
	Stage       int            `json:"stage"`
	Content     map[string]any `json:"content"`
	GeneratedAt time.Time      `json:"generated_at"`
	NextStage   int            `json:"next_stage,omitempty"`
}

// ImprovementOutcome is the successful result of an improvement call.
type ImprovementOutcome struct {
	Improvement  *Improvement `json:"improvement"`
	ProviderUsed string       `json:"provider_used"`
}

// ValidationResult reports schema validation of generated content.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// QualityResult is the composite verdict of the quality scoring engine.
type QualityResult struct {
	Passed      bool               `json:"passed"`
	Score       float64            `json:"score"`
	Issues      []string           `json:"issues,omitempty"`
	CheckScores map[string]float64 `json:"check_scores,omitempty"`
}
