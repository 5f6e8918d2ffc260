package db

import (
	"database/sql"
	"regexp"

	"github.com/keybrdist/makiso/internal/types"
)

var mentionRe = regexp.MustCompile(`@[A-Za-z0-9_-]+`)

// ExtractMentions returns the distinct @mention tokens in body, keeping the
// leading @ and first-seen order. Matching is case-sensitive.
func ExtractMentions(body string) []string {
	matches := mentionRe.FindAllString(body, -1)
	seen := make(map[string]struct{}, len(matches))
	mentions := make([]string, 0, len(matches))
	for _, match := range matches {
		if _, ok := seen[match]; ok {
			continue
		}
		seen[match] = struct{}{}
		mentions = append(mentions, match)
	}
	return mentions
}

// InsertMentions indexes the body's mentions for the event. Rows are purely
// additive and removed only by cascading event deletion.
func InsertMentions(conn *sql.DB, eventID, body string) error {
	mentions := ExtractMentions(body)
	if len(mentions) == 0 {
		return nil
	}

	tx, err := conn.Begin()
	if err != nil {
		return err
	}
	for _, mention := range mentions {
		if _, err := tx.Exec("INSERT INTO mentions (event_id, mention) VALUES (?, ?)", eventID, mention); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// EventsByMention returns events whose bodies mention the token, newest
// first. The token must include the leading @.
func EventsByMention(conn *sql.DB, mention string) ([]types.Event, error) {
	rows, err := conn.Query(`
		SELECT `+eventColumnsAliased+` FROM events e
		INNER JOIN mentions ON mentions.event_id = e.id
		WHERE mentions.mention = ?
		ORDER BY e.created_at DESC
	`, mention)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}
