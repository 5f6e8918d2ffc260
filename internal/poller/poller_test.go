package poller

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/keybrdist/makiso/internal/core"
	"github.com/keybrdist/makiso/internal/db"
	"github.com/keybrdist/makiso/internal/types"
	"github.com/rs/zerolog"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.OpenDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	if err := db.InitSchema(conn, core.DefaultOrg); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return conn
}

func testPoller(conn *sql.DB, onEvent func(types.ClaimedEvent)) *Poller {
	return New(conn, Options{
		TriggerPath: filepath.Join("tmp", ".trigger"),
		Interval:    time.Second,
		Claim: types.ClaimOptions{
			Topic: "events",
			Agent: "watcher",
			Scope: types.Scope{OrgID: core.DefaultOrg},
		},
		OnEvent: onEvent,
	}, zerolog.Nop())
}

func TestPollClaimsOneEvent(t *testing.T) {
	conn := openTestDB(t)

	if _, err := db.UpsertTopic(conn, "events", strPtr("handle with care"), nil); err != nil {
		t.Fatalf("upsert topic: %v", err)
	}
	first, _, err := db.PublishEvent(conn, types.NewEventInput{
		Topic: "events",
		Body:  "first",
		Scope: types.Scope{OrgID: core.DefaultOrg},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, _, err := db.PublishEvent(conn, types.NewEventInput{
		Topic: "events",
		Body:  "second",
		Scope: types.Scope{OrgID: core.DefaultOrg},
	}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	var claimed []types.ClaimedEvent
	p := testPoller(conn, func(event types.ClaimedEvent) {
		claimed = append(claimed, event)
	})

	p.poll()

	if len(claimed) != 1 {
		t.Fatalf("expected one claim per poll, got %d", len(claimed))
	}
	if claimed[0].ID != first.ID {
		t.Fatal("expected oldest event first")
	}
	if claimed[0].SystemPrompt == nil || *claimed[0].SystemPrompt != "handle with care" {
		t.Fatal("expected topic system prompt on claim")
	}
}

func TestPollMinIntervalGuard(t *testing.T) {
	conn := openTestDB(t)

	count := 0
	p := testPoller(conn, func(types.ClaimedEvent) {
		count++
	})

	if _, _, err := db.PublishEvent(conn, types.NewEventInput{
		Topic: "events",
		Body:  "one",
		Scope: types.Scope{OrgID: core.DefaultOrg},
	}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, _, err := db.PublishEvent(conn, types.NewEventInput{
		Topic: "events",
		Body:  "two",
		Scope: types.Scope{OrgID: core.DefaultOrg},
	}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	p.poll()
	p.poll() // within the interval, must be suppressed
	if count != 1 {
		t.Fatalf("expected back-to-back poll suppressed, got %d claims", count)
	}

	p.mu.Lock()
	p.lastPoll = time.Time{}
	p.mu.Unlock()

	p.poll()
	if count != 2 {
		t.Fatalf("expected poll after interval, got %d claims", count)
	}
}

func strPtr(value string) *string {
	return &value
}
