package store

import "fmt"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id            TEXT PRIMARY KEY,
    sprint_id     TEXT NOT NULL,
    sprint_name   TEXT NOT NULL,
    status        TEXT NOT NULL DEFAULT 'running',
    error         TEXT NOT NULL DEFAULT '',
    stories_total INTEGER NOT NULL DEFAULT 0,
    stories_done  INTEGER NOT NULL DEFAULT 0,
    defects_total INTEGER NOT NULL DEFAULT 0,
    defects_done  INTEGER NOT NULL DEFAULT 0,
    velocity      REAL NOT NULL DEFAULT 0.0,
    report_path   TEXT NOT NULL DEFAULT '',
    report_url    TEXT NOT NULL DEFAULT '',
    started_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
    finished_at   TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_sprint ON runs(sprint_id);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);

CREATE TABLE IF NOT EXISTS run_channels (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    channel  TEXT NOT NULL,
    ok       INTEGER NOT NULL DEFAULT 0,
    error    TEXT NOT NULL DEFAULT '',
    sent_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);

CREATE INDEX IF NOT EXISTS idx_run_channels_run ON run_channels(run_id);
`

func (s *Store) migrate() error {
	if _, err := s.Exec(schema); err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}
	return nil
}
