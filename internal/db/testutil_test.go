package db

import (
	"database/sql"
	"testing"

	"github.com/keybrdist/makiso/internal/core"
	"github.com/keybrdist/makiso/internal/types"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := OpenDatabase(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func requireSchema(t *testing.T, conn *sql.DB) {
	t.Helper()
	if err := InitSchema(conn, core.DefaultOrg); err != nil {
		t.Fatalf("init schema: %v", err)
	}
}

func strPtr(value string) *string {
	return &value
}

func testScope(org string) types.Scope {
	return types.Scope{OrgID: org}
}

func mustInsert(t *testing.T, conn *sql.DB, input types.NewEventInput) types.Event {
	t.Helper()
	event, err := InsertEvent(conn, input)
	if err != nil {
		t.Fatalf("insert event: %v", err)
	}
	return event
}

// backdate rewrites created_at so retention tests can age events.
func backdate(t *testing.T, conn *sql.DB, eventID string, createdAt int64) {
	t.Helper()
	if _, err := conn.Exec("UPDATE events SET created_at = ? WHERE id = ?", createdAt, eventID); err != nil {
		t.Fatalf("backdate event: %v", err)
	}
}
