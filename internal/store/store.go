// Package store persists analysis records. Two backends implement the same
// interface: Postgres (pgx) for deployments and SQLite for local use.
package store

import (
	"context"

	"github.com/sells-group/bizclone/internal/model"
)

// ListFilter specifies criteria for listing analyses.
type ListFilter struct {
	OwnerID string `json:"owner_id,omitempty"`
	URL     string `json:"url,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for analyses.
type Store interface {
	CreateAnalysis(ctx context.Context, rec *model.AnalysisRecord) error
	GetAnalysis(ctx context.Context, id string) (*model.AnalysisRecord, error)
	ListAnalyses(ctx context.Context, filter ListFilter) ([]model.AnalysisRecord, error)
	// UpdateAnalysis persists the mutable top-level fields: summary,
	// provider and the structured analysis payload.
	UpdateAnalysis(ctx context.Context, rec *model.AnalysisRecord) error
	SaveStage(ctx context.Context, analysisID string, data model.StageData) error
	SaveImprovement(ctx context.Context, analysisID string, imp *model.Improvement) error
	DeleteAnalysis(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
