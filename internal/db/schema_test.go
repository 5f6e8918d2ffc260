package db

import (
	"fmt"
	"testing"

	"github.com/keybrdist/makiso/internal/core"
	"github.com/keybrdist/makiso/internal/types"
)

// v1SchemaSQL is the events table as it looked before scope columns and the
// version marker existed.
const v1SchemaSQL = `
CREATE TABLE metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);

CREATE TABLE events (
  id TEXT PRIMARY KEY,
  topic TEXT NOT NULL,
  body TEXT NOT NULL,
  metadata TEXT,
  correlation_id TEXT,
  parent_id TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  source TEXT NOT NULL DEFAULT 'agent',
  created_at INTEGER NOT NULL,
  processed_at INTEGER,
  claimed_by TEXT,
  claimed_at INTEGER,
  expires_at INTEGER,
  FOREIGN KEY (parent_id) REFERENCES events(id)
);
`

func TestInitSchemaFresh(t *testing.T) {
	conn := openTestDB(t)

	if err := InitSchema(conn, core.DefaultOrg); err != nil {
		t.Fatalf("init: %v", err)
	}

	var version string
	if err := conn.QueryRow(`SELECT value FROM metadata WHERE key = 'schema_version'`).Scan(&version); err != nil {
		t.Fatalf("read version: %v", err)
	}
	if version != "2" {
		t.Fatalf("expected version 2, got %s", version)
	}
}

func TestInitSchemaIdempotent(t *testing.T) {
	conn := openTestDB(t)

	if err := InitSchema(conn, core.DefaultOrg); err != nil {
		t.Fatalf("first init: %v", err)
	}
	event := mustInsert(t, conn, types.NewEventInput{Topic: "events", Body: "survives re-init", Scope: testScope("acme")})

	if err := InitSchema(conn, core.DefaultOrg); err != nil {
		t.Fatalf("second init: %v", err)
	}

	kept, err := GetEvent(conn, event.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if kept == nil {
		t.Fatal("expected event to survive re-init")
	}
	if kept.OrgID == nil || *kept.OrgID != "acme" {
		t.Fatal("re-init must not rewrite scoped rows")
	}
}

func TestInitSchemaMigratesV1(t *testing.T) {
	conn := openTestDB(t)

	if _, err := conn.Exec(v1SchemaSQL); err != nil {
		t.Fatalf("create v1 schema: %v", err)
	}
	if _, err := conn.Exec(`
		INSERT INTO events (id, topic, body, created_at) VALUES ('legacy-1', 'events', 'old row', 1000)
	`); err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}

	if err := InitSchema(conn, core.DefaultOrg); err != nil {
		t.Fatalf("init: %v", err)
	}

	event, err := GetEvent(conn, "legacy-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if event == nil {
		t.Fatal("expected legacy row")
	}
	if event.OrgID == nil || *event.OrgID != core.DefaultOrg {
		t.Fatalf("expected backfilled org, got %v", event.OrgID)
	}

	// The backfilled row is visible to scoped claims against the default org.
	claimed, err := ClaimNextEvent(conn, types.ClaimOptions{
		Topic: "events",
		Agent: "worker",
		Scope: types.Scope{OrgID: core.DefaultOrg},
	})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed == nil || claimed.ID != "legacy-1" {
		t.Fatal("expected migrated row claimable")
	}

	// Migration rebuilds the full-text index, so pre-scope rows are
	// searchable and later updates to them go through the sync triggers.
	hits, err := SearchEvents(conn, "old", nil, types.LevelOrg, false)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "legacy-1" {
		t.Fatalf("expected migrated row in search index, got %v", hits)
	}
}

func TestInitSchemaMigratesV1WithManyRows(t *testing.T) {
	conn := openTestDB(t)

	if _, err := conn.Exec(v1SchemaSQL); err != nil {
		t.Fatalf("create v1 schema: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := conn.Exec(
			"INSERT INTO events (id, topic, body, created_at) VALUES (?, 'events', 'bulk row', ?)",
			fmt.Sprintf("legacy-%d", i), 1000+i,
		); err != nil {
			t.Fatalf("insert legacy row %d: %v", i, err)
		}
	}

	// The org backfill rewrites every legacy row. Each rewrite fires the
	// update trigger, so the index rebuild has to land first.
	if err := InitSchema(conn, core.DefaultOrg); err != nil {
		t.Fatalf("init: %v", err)
	}

	var count int
	if err := conn.QueryRow("SELECT COUNT(*) FROM events WHERE org_id = ?", core.DefaultOrg).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 backfilled rows, got %d", count)
	}
}
