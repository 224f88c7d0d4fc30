package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/bizclone/internal/db"
	"github.com/sells-group/bizclone/internal/fault"
	"github.com/sells-group/bizclone/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_analysis":  `INSERT INTO analyses (id, owner_id, url, summary, provider, analysis, stages, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
	"get_analysis":     `SELECT id, owner_id, url, summary, provider, analysis, stages, improvement, created_at, updated_at FROM analyses WHERE id = $1`,
	"update_analysis":  `UPDATE analyses SET summary = $1, provider = $2, analysis = $3, updated_at = $4 WHERE id = $5`,
	"save_stage":       `UPDATE analyses SET stages = jsonb_set(COALESCE(stages, '{}'::jsonb), ARRAY[$2::text], $3::jsonb, true), updated_at = $4 WHERE id = $1`,
	"save_improvement": `UPDATE analyses SET improvement = $2, updated_at = $3 WHERE id = $1`,
	"delete_analysis":  `DELETE FROM analyses WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	owner_id    TEXT NOT NULL,
	url         TEXT NOT NULL,
	summary     TEXT NOT NULL DEFAULT '',
	provider    TEXT NOT NULL DEFAULT '',
	analysis    JSONB,
	stages      JSONB NOT NULL DEFAULT '{}'::jsonb,
	improvement JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_analyses_owner_id ON analyses(owner_id);
CREATE INDEX IF NOT EXISTS idx_analyses_url ON analyses(url);
CREATE INDEX IF NOT EXISTS idx_analyses_owner_created ON analyses(owner_id, created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateAnalysis(ctx context.Context, rec *model.AnalysisRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	analysisJSON, stagesJSON, _, err := marshalRecord(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal analysis")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO analyses (id, owner_id, url, summary, provider, analysis, stages, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.OwnerID, rec.URL, rec.Summary, rec.Provider, analysisJSON, stagesJSON, now, now,
	)
	return eris.Wrap(err, "postgres: insert analysis")
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, url, summary, provider, analysis, stages, improvement, created_at, updated_at FROM analyses WHERE id = $1`,
		id,
	)

	rec, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fault.Newf(fault.KindNotFound, "analysis not found: %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get analysis %s", id)
	}
	return rec, nil
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, filter ListFilter) ([]model.AnalysisRecord, error) {
	query := `SELECT id, owner_id, url, summary, provider, analysis, stages, improvement, created_at, updated_at FROM analyses WHERE true`
	args := []any{}
	argIdx := 1

	if filter.OwnerID != "" {
		query += fmt.Sprintf(` AND owner_id = $%d`, argIdx)
		args = append(args, filter.OwnerID)
		argIdx++
	}
	if filter.URL != "" {
		query += fmt.Sprintf(` AND url = $%d`, argIdx)
		args = append(args, filter.URL)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	var out []model.AnalysisRecord
	for rows.Next() {
		rec, err := scanAnalysis(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list analyses rows")
}

func (s *PostgresStore) UpdateAnalysis(ctx context.Context, rec *model.AnalysisRecord) error {
	analysisJSON, _, _, err := marshalRecord(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal analysis")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE analyses SET summary = $1, provider = $2, analysis = $3, updated_at = $4 WHERE id = $5`,
		rec.Summary, rec.Provider, analysisJSON, time.Now().UTC(), rec.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update analysis %s", rec.ID)
	}
	if tag.RowsAffected() == 0 {
		return fault.Newf(fault.KindNotFound, "analysis not found: %s", rec.ID)
	}
	return nil
}

func (s *PostgresStore) SaveStage(ctx context.Context, analysisID string, data model.StageData) error {
	stageJSON, err := json.Marshal(data)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stage")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE analyses SET stages = jsonb_set(COALESCE(stages, '{}'::jsonb), ARRAY[$2::text], $3::jsonb, true), updated_at = $4 WHERE id = $1`,
		analysisID, strconv.Itoa(data.Stage), stageJSON, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save stage %d for %s", data.Stage, analysisID)
	}
	if tag.RowsAffected() == 0 {
		return fault.Newf(fault.KindNotFound, "analysis not found: %s", analysisID)
	}
	return nil
}

func (s *PostgresStore) SaveImprovement(ctx context.Context, analysisID string, imp *model.Improvement) error {
	impJSON, err := json.Marshal(imp)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal improvement")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE analyses SET improvement = $2, updated_at = $3 WHERE id = $1`,
		analysisID, impJSON, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save improvement for %s", analysisID)
	}
	if tag.RowsAffected() == 0 {
		return fault.Newf(fault.KindNotFound, "analysis not found: %s", analysisID)
	}
	return nil
}

func (s *PostgresStore) DeleteAnalysis(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM analyses WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete analysis %s", id)
	}
	if tag.RowsAffected() == 0 {
		return fault.Newf(fault.KindNotFound, "analysis not found: %s", id)
	}
	return nil
}

// marshalRecord serializes the JSONB columns of a record. Nil payloads
// marshal to nil so the columns stay NULL.
func marshalRecord(rec *model.AnalysisRecord) (analysis, stages, improvement []byte, err error) {
	if rec.Analysis != nil {
		analysis, err = json.Marshal(rec.Analysis)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	stagesMap := rec.Stages
	if stagesMap == nil {
		stagesMap = map[int]model.StageData{}
	}
	stages, err = json.Marshal(stagesMap)
	if err != nil {
		return nil, nil, nil, err
	}
	if rec.Improvement != nil {
		improvement, err = json.Marshal(rec.Improvement)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	return analysis, stages, improvement, nil
}

// scanAnalysis reads one analyses row from a pgx.Row or pgx.Rows.
func scanAnalysis(row pgx.Row) (*model.AnalysisRecord, error) {
	var rec model.AnalysisRecord
	var analysisJSON, stagesJSON, improvementJSON []byte

	err := row.Scan(&rec.ID, &rec.OwnerID, &rec.URL, &rec.Summary, &rec.Provider,
		&analysisJSON, &stagesJSON, &improvementJSON, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(analysisJSON) > 0 {
		rec.Analysis = &model.StructuredAnalysis{}
		if err := json.Unmarshal(analysisJSON, rec.Analysis); err != nil {
			return nil, eris.Wrap(err, "unmarshal analysis")
		}
	}
	if len(stagesJSON) > 0 {
		if err := json.Unmarshal(stagesJSON, &rec.Stages); err != nil {
			return nil, eris.Wrap(err, "unmarshal stages")
		}
	}
	if len(improvementJSON) > 0 {
		rec.Improvement = &model.Improvement{}
		if err := json.Unmarshal(improvementJSON, rec.Improvement); err != nil {
			return nil, eris.Wrap(err, "unmarshal improvement")
		}
	}
	return &rec, nil
}
