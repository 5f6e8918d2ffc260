package db

import (
	"database/sql"
	"fmt"
)

const schemaVersion = 2

const schemaVersionKey = "schema_version"

const schemaSQL = `
-- Generic key/value store: schema version marker and saved scope context
CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);

-- Event ledger
CREATE TABLE IF NOT EXISTS events (
  id TEXT PRIMARY KEY,                    -- UUIDv7, sorts in creation order
  topic TEXT NOT NULL,
  body TEXT NOT NULL,
  metadata TEXT,                          -- opaque, typically JSON
  correlation_id TEXT,                    -- links a reply chain
  parent_id TEXT,                         -- event this replies to
  status TEXT NOT NULL DEFAULT 'pending', -- pending/processing/completed/failed
  source TEXT NOT NULL DEFAULT 'agent',
  org_id TEXT,
  workspace_id TEXT,
  project_id TEXT,
  repo_id TEXT,
  created_at INTEGER NOT NULL,            -- unix ms
  processed_at INTEGER,
  claimed_by TEXT,
  claimed_at INTEGER,
  expires_at INTEGER,                     -- reserved, not enforced
  FOREIGN KEY (parent_id) REFERENCES events(id)
);

CREATE INDEX IF NOT EXISTS idx_events_topic_status ON events(topic, status);
CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);
CREATE INDEX IF NOT EXISTS idx_events_correlation_id ON events(correlation_id);
CREATE INDEX IF NOT EXISTS idx_events_claimed_by ON events(claimed_by);

-- Full-text index over event bodies, kept in sync by triggers so it always
-- commits or rolls back with the parent row
CREATE VIRTUAL TABLE IF NOT EXISTS events_fts USING fts5(
  body,
  content='events',
  content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS events_ai AFTER INSERT ON events BEGIN
  INSERT INTO events_fts(rowid, body) VALUES (new.rowid, new.body);
END;

CREATE TRIGGER IF NOT EXISTS events_ad AFTER DELETE ON events BEGIN
  INSERT INTO events_fts(events_fts, rowid, body) VALUES ('delete', old.rowid, old.body);
END;

CREATE TRIGGER IF NOT EXISTS events_au AFTER UPDATE ON events BEGIN
  INSERT INTO events_fts(events_fts, rowid, body) VALUES ('delete', old.rowid, old.body);
  INSERT INTO events_fts(rowid, body) VALUES (new.rowid, new.body);
END;

-- Named channels with optional persistent instructions
CREATE TABLE IF NOT EXISTS topics (
  name TEXT PRIMARY KEY,
  system_prompt TEXT,
  description TEXT,
  created_at INTEGER NOT NULL
);

-- Derived @mention index, one row per distinct mention per event
CREATE TABLE IF NOT EXISTS mentions (
  event_id TEXT NOT NULL,
  mention TEXT NOT NULL,
  FOREIGN KEY (event_id) REFERENCES events(id)
);

CREATE INDEX IF NOT EXISTS idx_mentions_mention ON mentions(mention);

-- Derived tool-name index, one row per distinct tool per event
CREATE TABLE IF NOT EXISTS tool_calls (
  event_id TEXT NOT NULL,
  tool_name TEXT NOT NULL,
  FOREIGN KEY (event_id) REFERENCES events(id)
);

CREATE INDEX IF NOT EXISTS idx_tool_calls_tool ON tool_calls(tool_name);
`

// InitSchema creates the schema and applies the scope migration for
// databases created before scope columns existed. Rows that predate scoping
// receive org_id "default" so scoped filters keep seeing them.
func InitSchema(conn *sql.DB, defaultOrg string) error {
	tx, err := conn.Begin()
	if err != nil {
		return err
	}
	if err := initSchemaWith(tx, defaultOrg); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func initSchemaWith(tx DBTX, defaultOrg string) error {
	if _, err := tx.Exec(schemaSQL); err != nil {
		return err
	}

	if err := ensureScopeColumns(tx); err != nil {
		return err
	}

	version, err := storedSchemaVersion(tx)
	if err != nil {
		return err
	}
	if version < schemaVersion {
		// Legacy rows were never written through the FTS triggers. The
		// backfill UPDATE below fires events_au, and deleting a row the
		// index has never seen corrupts it, so rebuild from content first.
		if _, err := tx.Exec("INSERT INTO events_fts(events_fts) VALUES('rebuild')"); err != nil {
			return err
		}
		// Rows from before scoping must stay visible to scoped filters.
		if _, err := tx.Exec("UPDATE events SET org_id = ? WHERE org_id IS NULL OR org_id = ''", defaultOrg); err != nil {
			return err
		}
	}

	if err := ensureScopeIndexes(tx); err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, schemaVersionKey, fmt.Sprintf("%d", schemaVersion))
	return err
}

func storedSchemaVersion(tx DBTX) (int, error) {
	row := tx.QueryRow("SELECT value FROM metadata WHERE key = ?", schemaVersionKey)
	var value string
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return 1, nil
		}
		return 0, err
	}
	var version int
	if _, err := fmt.Sscanf(value, "%d", &version); err != nil {
		return 1, nil
	}
	return version, nil
}

// ensureScopeColumns adds the scope columns to an events table created
// before scoping existed. New databases already have them.
func ensureScopeColumns(tx DBTX) error {
	columns, err := getTableInfo(tx, "events")
	if err != nil {
		return err
	}

	for _, name := range []string{"org_id", "workspace_id", "project_id", "repo_id"} {
		if hasColumn(columns, name) {
			continue
		}
		if _, err := tx.Exec(fmt.Sprintf("ALTER TABLE events ADD COLUMN %s TEXT", name)); err != nil {
			return err
		}
	}
	return nil
}

// ensureScopeIndexes runs after ensureScopeColumns so the columns exist on
// upgraded databases too.
func ensureScopeIndexes(tx DBTX) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_events_org_topic_status_created ON events(org_id, topic, status, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_events_org_workspace_topic_status_created ON events(org_id, workspace_id, topic, status, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_events_org_project_topic_status_created ON events(org_id, project_id, topic, status, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_events_org_repo_topic_status_created ON events(org_id, repo_id, topic, status, created_at)",
	}
	for _, stmt := range indexes {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

type tableColumn struct {
	Name    string
	ColType string
	NotNull int
	PK      int
}

func getTableInfo(tx DBTX, table string) ([]tableColumn, error) {
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []tableColumn
	for rows.Next() {
		var col tableColumn
		var cid int
		var defaultValue sql.NullString
		if err := rows.Scan(&cid, &col.Name, &col.ColType, &col.NotNull, &defaultValue, &col.PK); err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return columns, nil
}

func hasColumn(columns []tableColumn, name string) bool {
	for _, col := range columns {
		if col.Name == name {
			return true
		}
	}
	return false
}
