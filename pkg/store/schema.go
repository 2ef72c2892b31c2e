package store

// schemaVersion1 is the initial schema: run history plus the page
// analysis cache.
const schemaVersion1 = 1

// currentSchemaVersion is the target schema version for this build.
const currentSchemaVersion = schemaVersion1

// schemaV1 is the initial schema DDL.
var schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	task_id      TEXT NOT NULL,
	url          TEXT,
	status       TEXT NOT NULL,
	started_at   TEXT NOT NULL,
	finished_at  TEXT,
	artifact_dir TEXT,
	plan_json    BLOB,
	result_json  BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

CREATE TABLE IF NOT EXISTS page_cache (
	url           TEXT PRIMARY KEY,
	analysis_json BLOB NOT NULL,
	fetched_at    TEXT NOT NULL
);
`
