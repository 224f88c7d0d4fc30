package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/bizclone/internal/fault"
	"github.com/sells-group/bizclone/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id          TEXT PRIMARY KEY,
	owner_id    TEXT NOT NULL,
	url         TEXT NOT NULL,
	summary     TEXT NOT NULL DEFAULT '',
	provider    TEXT NOT NULL DEFAULT '',
	analysis    TEXT,
	stages      TEXT NOT NULL DEFAULT '{}',
	improvement TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_analyses_owner_id ON analyses(owner_id);
CREATE INDEX IF NOT EXISTS idx_analyses_url ON analyses(url);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateAnalysis(ctx context.Context, rec *model.AnalysisRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	analysisJSON, stagesJSON, _, err := marshalRecord(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal analysis")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, owner_id, url, summary, provider, analysis, stages, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OwnerID, rec.URL, rec.Summary, rec.Provider,
		nullString(analysisJSON), string(stagesJSON), now, now,
	)
	return eris.Wrap(err, "sqlite: insert analysis")
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, url, summary, provider, analysis, stages, improvement, created_at, updated_at FROM analyses WHERE id = ?`,
		id,
	)

	rec, err := scanSQLiteAnalysis(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fault.Newf(fault.KindNotFound, "analysis not found: %s", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get analysis %s", id)
	}
	return rec, nil
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, filter ListFilter) ([]model.AnalysisRecord, error) {
	query := `SELECT id, owner_id, url, summary, provider, analysis, stages, improvement, created_at, updated_at FROM analyses WHERE true`
	args := []any{}

	if filter.OwnerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, filter.OwnerID)
	}
	if filter.URL != "" {
		query += ` AND url = ?`
		args = append(args, filter.URL)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close()

	var out []model.AnalysisRecord
	for rows.Next() {
		rec, err := scanSQLiteAnalysis(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list analyses rows")
}

func (s *SQLiteStore) UpdateAnalysis(ctx context.Context, rec *model.AnalysisRecord) error {
	analysisJSON, _, _, err := marshalRecord(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal analysis")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET summary = ?, provider = ?, analysis = ?, updated_at = ? WHERE id = ?`,
		rec.Summary, rec.Provider, nullString(analysisJSON), time.Now().UTC(), rec.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update analysis %s", rec.ID)
	}
	return checkRowsAffected(res, rec.ID)
}

func (s *SQLiteStore) SaveStage(ctx context.Context, analysisID string, data model.StageData) error {
	stageJSON, err := json.Marshal(data)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stage")
	}

	path := fmt.Sprintf(`$."%d"`, data.Stage)
	res, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET stages = json_set(COALESCE(stages, '{}'), ?, json(?)), updated_at = ? WHERE id = ?`,
		path, string(stageJSON), time.Now().UTC(), analysisID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save stage %d for %s", data.Stage, analysisID)
	}
	return checkRowsAffected(res, analysisID)
}

func (s *SQLiteStore) SaveImprovement(ctx context.Context, analysisID string, imp *model.Improvement) error {
	impJSON, err := json.Marshal(imp)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal improvement")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET improvement = ?, updated_at = ? WHERE id = ?`,
		string(impJSON), time.Now().UTC(), analysisID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save improvement for %s", analysisID)
	}
	return checkRowsAffected(res, analysisID)
}

func (s *SQLiteStore) DeleteAnalysis(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete analysis %s", id)
	}
	return checkRowsAffected(res, id)
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return fault.Newf(fault.KindNotFound, "analysis not found: %s", id)
	}
	return nil
}

// nullString converts a possibly-nil JSON buffer into a nullable column value.
func nullString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func scanSQLiteAnalysis(scan func(...any) error) (*model.AnalysisRecord, error) {
	var rec model.AnalysisRecord
	var analysisJSON, improvementJSON sql.NullString
	var stagesJSON string

	err := scan(&rec.ID, &rec.OwnerID, &rec.URL, &rec.Summary, &rec.Provider,
		&analysisJSON, &stagesJSON, &improvementJSON, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if analysisJSON.Valid && analysisJSON.String != "" {
		rec.Analysis = &model.StructuredAnalysis{}
		if err := json.Unmarshal([]byte(analysisJSON.String), rec.Analysis); err != nil {
			return nil, eris.Wrap(err, "unmarshal analysis")
		}
	}
	if stagesJSON != "" {
		if err := json.Unmarshal([]byte(stagesJSON), &rec.Stages); err != nil {
			return nil, eris.Wrap(err, "unmarshal stages")
		}
	}
	if improvementJSON.Valid && improvementJSON.String != "" {
		rec.Improvement = &model.Improvement{}
		if err := json.Unmarshal([]byte(improvementJSON.String), rec.Improvement); err != nil {
			return nil, eris.Wrap(err, "unmarshal improvement")
		}
	}
	return &rec, nil
}
