package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/keybrdist/makiso/internal/types"
)

const topicColumns = `name, system_prompt, description, created_at`

func scanTopic(row rowScanner) (types.Topic, error) {
	var topic types.Topic
	var systemPrompt, description sql.NullString
	if err := row.Scan(&topic.Name, &systemPrompt, &description, &topic.CreatedAt); err != nil {
		return types.Topic{}, err
	}
	topic.SystemPrompt = nullableString(systemPrompt)
	topic.Description = nullableString(description)
	return topic, nil
}

// UpsertTopic creates a topic or, on name conflict, replaces its prompt and
// description. created_at is immutable after the first insert.
func UpsertTopic(conn *sql.DB, name string, systemPrompt, description *string) (types.Topic, error) {
	if name == "" {
		return types.Topic{}, errors.New("topic name is required")
	}

	_, err := conn.Exec(`
		INSERT INTO topics (name, system_prompt, description, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			system_prompt = excluded.system_prompt,
			description = excluded.description
	`, name, systemPrompt, description, time.Now().UnixMilli())
	if err != nil {
		return types.Topic{}, err
	}

	topic, err := GetTopicByName(conn, name)
	if err != nil {
		return types.Topic{}, err
	}
	return *topic, nil
}

// GetTopicByName returns the topic or nil when it does not exist.
func GetTopicByName(conn *sql.DB, name string) (*types.Topic, error) {
	row := conn.QueryRow("SELECT "+topicColumns+" FROM topics WHERE name = ?", name)
	topic, err := scanTopic(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

// ListTopics returns all topics by name ascending.
func ListTopics(conn *sql.DB) ([]types.Topic, error) {
	rows, err := conn.Query("SELECT " + topicColumns + " FROM topics ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []types.Topic
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return topics, nil
}
