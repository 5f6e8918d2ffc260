package db

import (
	"testing"
	"time"

	"github.com/keybrdist/makiso/internal/types"
)

func ageMillis(days int) int64 {
	return time.Now().UnixMilli() - int64(days)*dayMillis
}

func TestCleanupRetention(t *testing.T) {
	conn := openTestDB(t)
	requireSchema(t, conn)

	oldPending := mustInsert(t, conn, types.NewEventInput{Topic: "events", Body: "stale", Scope: testScope("acme")})
	backdate(t, conn, oldPending.ID, ageMillis(8))

	freshPending := mustInsert(t, conn, types.NewEventInput{Topic: "events", Body: "recent", Scope: testScope("acme")})
	backdate(t, conn, freshPending.ID, ageMillis(6))

	oldDone := mustInsert(t, conn, types.NewEventInput{Topic: "events", Body: "done long ago", Scope: testScope("acme")})
	backdate(t, conn, oldDone.ID, ageMillis(31))
	if _, err := UpdateEventStatus(conn, oldDone.ID, types.StatusCompleted, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}

	freshDone := mustInsert(t, conn, types.NewEventInput{Topic: "events", Body: "done recently", Scope: testScope("acme")})
	backdate(t, conn, freshDone.ID, ageMillis(10))
	if _, err := UpdateEventStatus(conn, freshDone.ID, types.StatusCompleted, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}

	removed, err := CleanupEvents(conn, types.CleanupOptions{
		CompletedRetentionDays: 30,
		PendingRetentionDays:   7,
	})
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}

	for _, id := range []string{oldPending.ID, oldDone.ID} {
		event, err := GetEvent(conn, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if event != nil {
			t.Fatalf("expected %s removed", id)
		}
	}
	for _, id := range []string{freshPending.ID, freshDone.ID} {
		event, err := GetEvent(conn, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if event == nil {
			t.Fatalf("expected %s retained", id)
		}
	}
}

func TestCleanupDetachesSurvivingReplies(t *testing.T) {
	conn := openTestDB(t)
	requireSchema(t, conn)

	parent := mustInsert(t, conn, types.NewEventInput{Topic: "events", Body: "old parent @alice", Scope: testScope("acme")})
	backdate(t, conn, parent.ID, ageMillis(8))
	if err := InsertMentions(conn, parent.ID, parent.Body); err != nil {
		t.Fatalf("index: %v", err)
	}

	reply := mustInsert(t, conn, types.NewEventInput{
		Topic:    "events",
		Body:     "recent reply",
		ParentID: strPtr(parent.ID),
		Scope:    testScope("acme"),
	})

	removed, err := CleanupEvents(conn, types.CleanupOptions{
		CompletedRetentionDays: 30,
		PendingRetentionDays:   7,
	})
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	kept, err := GetEvent(conn, reply.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if kept == nil {
		t.Fatal("expected reply retained")
	}
	if kept.ParentID != nil {
		t.Fatal("expected reply detached from removed parent")
	}

	var mentions int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM mentions WHERE event_id = ?`, parent.ID).Scan(&mentions); err != nil {
		t.Fatalf("count mentions: %v", err)
	}
	if mentions != 0 {
		t.Fatal("expected index rows removed with the event")
	}
}

func TestCleanupScoped(t *testing.T) {
	conn := openTestDB(t)
	requireSchema(t, conn)

	inScope := mustInsert(t, conn, types.NewEventInput{Topic: "events", Body: "stale here", Scope: testScope("acme")})
	backdate(t, conn, inScope.ID, ageMillis(8))

	otherOrg := mustInsert(t, conn, types.NewEventInput{Topic: "events", Body: "stale elsewhere", Scope: testScope("globex")})
	backdate(t, conn, otherOrg.ID, ageMillis(8))

	scope := testScope("acme")
	removed, err := CleanupEvents(conn, types.CleanupOptions{
		CompletedRetentionDays: 30,
		PendingRetentionDays:   7,
		Scope:                  &scope,
	})
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	survivor, err := GetEvent(conn, otherOrg.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if survivor == nil {
		t.Fatal("expected other org untouched")
	}
}
