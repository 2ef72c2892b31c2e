// Package store persists run history and the page analysis cache in a
// local SQLite database.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"scrapinator/pkg/task"
)

// Store wraps the SQLite database holding runs and cached page analyses.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// RunRecord is a summary row from the runs table, used for listings that
// do not need the full result payload.
type RunRecord struct {
	ID          string
	TaskID      string
	URL         string
	Status      task.RunStatus
	StartedAt   time.Time
	FinishedAt  time.Time
	ArtifactDir string
}

// DefaultPath returns the default database location under the user's
// home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".scrapinator", "scrapinator.db"), nil
}

// Open opens or creates a SQLite database at path and runs migrations.
// The parent directory (e.g. ~/.scrapinator) is created if it does not
// exist.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableCount == 0 {
		return s.freshInstall()
	}

	var v int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		// schema_version exists but is empty, treat as v1.
		v = schemaVersion1
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", v); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
	}

	switch v {
	case currentSchemaVersion:
		return nil
	default:
		return fmt.Errorf("unknown schema version %d", v)
	}
}

// freshInstall creates the current schema from scratch on an empty
// database, atomically.
func (s *Store) freshInstall() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin install tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(schemaV1); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version(version) VALUES(?)", currentSchemaVersion); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit install tx: %w", err)
	}
	return nil
}

// SaveRun inserts or replaces a run. Saving the same run ID again
// overwrites the earlier row, so a run can be persisted mid-flight and
// finalized later.
func (s *Store) SaveRun(result *task.RunResult) error {
	if result == nil {
		return errors.New("run result is nil")
	}
	if result.RunID == "" {
		return errors.New("run result has no run ID")
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal run result: %w", err)
	}

	var planJSON []byte
	if result.Plan != nil {
		planJSON, err = json.Marshal(result.Plan)
		if err != nil {
			return fmt.Errorf("marshal plan: %w", err)
		}
	}

	var finishedAt interface{}
	if !result.FinishedAt.IsZero() {
		finishedAt = result.FinishedAt.UTC().Format(time.RFC3339)
	}

	_, err = s.db.Exec(
		`INSERT INTO runs(id, task_id, url, status, started_at, finished_at, artifact_dir, plan_json, result_json)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   task_id = excluded.task_id,
		   url = excluded.url,
		   status = excluded.status,
		   started_at = excluded.started_at,
		   finished_at = excluded.finished_at,
		   artifact_dir = excluded.artifact_dir,
		   plan_json = excluded.plan_json,
		   result_json = excluded.result_json`,
		result.RunID, result.TaskID, result.URL, string(result.Status),
		result.StartedAt.UTC().Format(time.RFC3339), finishedAt,
		result.ArtifactDir, planJSON, resultJSON,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun returns the full result of the run with the given ID, or nil if
// no such run exists.
func (s *Store) GetRun(runID string) (*task.RunResult, error) {
	var resultJSON []byte
	err := s.db.QueryRow("SELECT result_json FROM runs WHERE id = ?", runID).Scan(&resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	var result task.RunResult
	if err := json.Unmarshal(resultJSON, &result); err != nil {
		return nil, fmt.Errorf("unmarshal run result: %w", err)
	}
	return &result, nil
}

// ListRuns returns run summaries ordered newest first. A limit of zero
// or less returns all runs.
func (s *Store) ListRuns(limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT id, task_id, url, status, started_at, finished_at, artifact_dir
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var list []*RunRecord
	for rows.Next() {
		var rec RunRecord
		var url, finishedAt, artifactDir sql.NullString
		var status, startedAt string
		if err := rows.Scan(&rec.ID, &rec.TaskID, &url, &status, &startedAt, &finishedAt, &artifactDir); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.URL = url.String
		rec.Status = task.RunStatus(status)
		rec.ArtifactDir = artifactDir.String
		if rec.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
			return nil, fmt.Errorf("parse run started_at: %w", err)
		}
		if finishedAt.Valid {
			if rec.FinishedAt, err = time.Parse(time.RFC3339, finishedAt.String); err != nil {
				return nil, fmt.Errorf("parse run finished_at: %w", err)
			}
		}
		list = append(list, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return list, nil
}

// CachePage inserts or refreshes the cached analysis for its URL.
func (s *Store) CachePage(analysis *task.PageAnalysis) error {
	if analysis == nil {
		return errors.New("page analysis is nil")
	}
	if analysis.URL == "" {
		return errors.New("page analysis has no URL")
	}

	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal page analysis: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO page_cache(url, analysis_json, fetched_at) VALUES(?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
		   analysis_json = excluded.analysis_json,
		   fetched_at = excluded.fetched_at`,
		analysis.URL, analysisJSON, s.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("cache page: %w", err)
	}
	return nil
}

// LookupPage returns the cached analysis for a URL, or nil when the URL
// is not cached or the entry is older than maxAge. A maxAge of zero or
// less accepts entries of any age. Served analyses are marked FromCache.
func (s *Store) LookupPage(url string, maxAge time.Duration) (*task.PageAnalysis, error) {
	var analysisJSON []byte
	var fetchedAt string
	err := s.db.QueryRow(
		"SELECT analysis_json, fetched_at FROM page_cache WHERE url = ?", url,
	).Scan(&analysisJSON, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup page: %w", err)
	}

	if maxAge > 0 {
		fetched, err := time.Parse(time.RFC3339, fetchedAt)
		if err != nil {
			return nil, fmt.Errorf("parse cache fetched_at: %w", err)
		}
		if s.now().Sub(fetched) > maxAge {
			return nil, nil
		}
	}

	var analysis task.PageAnalysis
	if err := json.Unmarshal(analysisJSON, &analysis); err != nil {
		return nil, fmt.Errorf("unmarshal page analysis: %w", err)
	}
	analysis.FromCache = true
	return &analysis, nil
}

// PurgeCache deletes cache entries older than the given age and returns
// how many were removed.
func (s *Store) PurgeCache(olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan).UTC().Format(time.RFC3339)
	res, err := s.db.Exec("DELETE FROM page_cache WHERE fetched_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	purged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return purged, nil
}
