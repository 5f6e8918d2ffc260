package db

import (
	"testing"
)

func TestUpsertTopic(t *testing.T) {
	conn := openTestDB(t)
	requireSchema(t, conn)

	created, err := UpsertTopic(conn, "deploys", strPtr("you are the deploy bot"), nil)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if created.CreatedAt == 0 {
		t.Fatal("expected created_at")
	}
	if created.SystemPrompt == nil || *created.SystemPrompt != "you are the deploy bot" {
		t.Fatalf("unexpected prompt: %v", created.SystemPrompt)
	}

	if _, err := conn.Exec(`UPDATE topics SET created_at = 1000 WHERE name = ?`, "deploys"); err != nil {
		t.Fatalf("backdate topic: %v", err)
	}

	updated, err := UpsertTopic(conn, "deploys", strPtr("revised prompt"), strPtr("deploy channel"))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if updated.SystemPrompt == nil || *updated.SystemPrompt != "revised prompt" {
		t.Fatalf("unexpected prompt: %v", updated.SystemPrompt)
	}
	if updated.Description == nil || *updated.Description != "deploy channel" {
		t.Fatalf("unexpected description: %v", updated.Description)
	}
	if updated.CreatedAt != 1000 {
		t.Fatal("created_at must not change on upsert")
	}
}

func TestUpsertTopicRequiresName(t *testing.T) {
	conn := openTestDB(t)
	requireSchema(t, conn)

	if _, err := UpsertTopic(conn, "", nil, nil); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestGetTopicByNameMissing(t *testing.T) {
	conn := openTestDB(t)
	requireSchema(t, conn)

	topic, err := GetTopicByName(conn, "nope")
	if err != nil {
		t.Fatalf("get topic: %v", err)
	}
	if topic != nil {
		t.Fatal("expected nil for missing topic")
	}
}

func TestListTopicsOrder(t *testing.T) {
	conn := openTestDB(t)
	requireSchema(t, conn)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if _, err := UpsertTopic(conn, name, nil, nil); err != nil {
			t.Fatalf("upsert %s: %v", name, err)
		}
	}

	topics, err := ListTopics(conn)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(topics) != 3 {
		t.Fatalf("expected 3 topics, got %d", len(topics))
	}
	if topics[0].Name != "alpha" || topics[2].Name != "zeta" {
		t.Fatalf("expected name order, got %v", topics)
	}
}
