package db

import (
	"reflect"
	"testing"

	"github.com/keybrdist/makiso/internal/types"
)

func TestExtractMentions(t *testing.T) {
	cases := []struct {
		body string
		want []string
	}{
		{"ping @alice please", []string{"@alice"}},
		{"@alice @bob @alice", []string{"@alice", "@bob"}},
		{"emails like a@b are still matched as @b", []string{"@b"}},
		{"@deploy-bot and @ci_runner", []string{"@deploy-bot", "@ci_runner"}},
		{"no mentions here", nil},
		{"bare @ sign", nil},
	}
	for _, tc := range cases {
		got := ExtractMentions(tc.body)
		if len(got) == 0 && len(tc.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ExtractMentions(%q) = %v, want %v", tc.body, got, tc.want)
		}
	}
}

func TestPublishIndexesMentions(t *testing.T) {
	conn := openTestDB(t)
	requireSchema(t, conn)

	event, indexErr, err := PublishEvent(conn, types.NewEventInput{
		Topic: "events",
		Body:  "review needed @alice @alice cc @bob",
		Scope: testScope("acme"),
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if indexErr != nil {
		t.Fatalf("index: %v", indexErr)
	}

	var count int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM mentions WHERE event_id = ?`, event.ID).Scan(&count); err != nil {
		t.Fatalf("count mentions: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 mention rows, got %d", count)
	}

	forAlice, err := EventsByMention(conn, "@alice")
	if err != nil {
		t.Fatalf("events by mention: %v", err)
	}
	if len(forAlice) != 1 || forAlice[0].ID != event.ID {
		t.Fatalf("unexpected mention lookup: %v", forAlice)
	}

	forCarol, err := EventsByMention(conn, "@carol")
	if err != nil {
		t.Fatalf("events by mention: %v", err)
	}
	if len(forCarol) != 0 {
		t.Fatal("expected no events for @carol")
	}
}

func TestEventsByMentionNewestFirst(t *testing.T) {
	conn := openTestDB(t)
	requireSchema(t, conn)

	older, _, err := PublishEvent(conn, types.NewEventInput{Topic: "events", Body: "@alice first", Scope: testScope("acme")})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	newer, _, err := PublishEvent(conn, types.NewEventInput{Topic: "events", Body: "@alice second", Scope: testScope("acme")})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	backdate(t, conn, older.ID, 1000)
	backdate(t, conn, newer.ID, 2000)

	events, err := EventsByMention(conn, "@alice")
	if err != nil {
		t.Fatalf("events by mention: %v", err)
	}
	if len(events) != 2 || events[0].ID != newer.ID {
		t.Fatal("expected newest first")
	}
}
