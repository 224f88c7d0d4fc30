// Package model defines the domain types for business-cloning analyses.
package model

import (
	"time"
)

// StageStatus represents the lifecycle of a single workflow stage.
type StageStatus string

const (
	StageStatusPending    StageStatus = "pending"
	StageStatusInProgress StageStatus = "in_progress"
	StageStatusCompleted  StageStatus = "completed"
)

// Workflow stage bounds. Stage 1 is synthesized from the initial analysis
// and never separately generated; stages 2-6 are generated on demand.
const (
	FirstGeneratedStage = 2
	LastStage           = 6
)

// AnalysisRecord is one business-cloning analysis. Owned by the store; the
// orchestration core reads it and proposes updates.
type AnalysisRecord struct {
	ID          string              `json:"id"`
	OwnerID     string              `json:"owner_id"`
	URL         string              `json:"url"`
	Summary     string              `json:"summary"`
	Provider    string              `json:"provider"`
	Analysis    *StructuredAnalysis `json:"analysis,omitempty"`
	Stages      map[int]StageData   `json:"stages,omitempty"`
	Improvement *Improvement        `json:"improvement,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// StructuredAnalysis is the nested payload produced by the initial analysis.
type StructuredAnalysis struct {
	Overview  Overview  `json:"overview"`
	Market    Market    `json:"market"`
	Technical Technical `json:"technical"`
	Data      DataUsage `json:"data"`
	Synthesis Synthesis `json:"synthesis"`
	Sources   []Source  `json:"sources,omitempty"`
}

// Overview summarizes the business model.
type Overview struct {
	ValueProposition string `json:"value_proposition"`
	TargetAudience   string `json:"target_audience"`
	Monetization     string `json:"monetization"`
}

// Market holds competitive landscape findings.
type Market struct {
	Competitors []Competitor `json:"competitors"`
	SWOT        SWOT         `json:"swot"`
}

// Competitor is a single identified competitor.
type Competitor struct {
	Name       string `json:"name"`
	Positioning string `json:"positioning,omitempty"`
}

// SWOT is the classic four-quadrant breakdown.
type SWOT struct {
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Opportunities []string `json:"opportunities"`
	Threats       []string `json:"threats"`
}

// Technical holds detected stack information. Confidence is in [0,1];
// out-of-range values are a validation failure, never clamped.
type Technical struct {
	Stack      []string `json:"stack"`
	Confidence float64  `json:"confidence"`
}

// DataUsage describes the metrics the business appears to track.
type DataUsage struct {
	Metrics []Metric `json:"metrics"`
}

// Metric is a tracked measurement with optional source attribution.
type Metric struct {
	Name   string `json:"name"`
	Value  string `json:"value,omitempty"`
	Source string `json:"source,omitempty"`
}

// Synthesis is the concluding section of the initial analysis.
type Synthesis struct {
	Summary     string   `json:"summary"`
	KeyInsights []string `json:"key_insights"`
	NextActions []string `json:"next_actions"`
}

// Source cites where a claim came from. URL must parse as an absolute URL.
type Source struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// StageData is the persisted record for one generated workflow stage.
type StageData struct {
	Stage       int            `json:"stage"`
	Status      StageStatus    `json:"status"`
	Content     map[string]any `json:"content,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// Improvement holds the optional improvement pass over a completed analysis.
type Improvement struct {
	Suggestions []string  `json:"suggestions"`
	Priorities  []string  `json:"priorities"`
	QuickWins   []string  `json:"quick_wins"`
	GeneratedAt time.Time `json:"generated_at"`
}

// PageContext is best-effort first-party data extracted from the target
// page. Its absence never blocks an analysis.
type PageContext struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	PrimaryHeading string `json:"primary_heading"`
	TextExcerpt    string `json:"text_excerpt"`
	CanonicalURL   string `json:"canonical_url"`
}

// StageCompleted reports whether stage n is recorded as completed. Stage 1
// is completed by definition once the initial analysis exists.
func (r *AnalysisRecord) StageCompleted(n int) bool {
	if n == 1 {
		return r.Analysis != nil
	}
	sd, ok := r.Stages[n]
	return ok && sd.Status == StageStatusCompleted
}
