package db

import (
	"database/sql"
	"regexp"

	"github.com/keybrdist/makiso/internal/types"
)

// toolRe matches the closed vocabulary of recognized action tools as whole
// words.
var toolRe = regexp.MustCompile(`\b(bash|read|write|edit|glob|grep|task|question)\b`)

// ExtractToolCalls returns the distinct tool names referenced in body, in
// first-seen order.
func ExtractToolCalls(body string) []string {
	matches := toolRe.FindAllString(body, -1)
	seen := make(map[string]struct{}, len(matches))
	tools := make([]string, 0, len(matches))
	for _, match := range matches {
		if _, ok := seen[match]; ok {
			continue
		}
		seen[match] = struct{}{}
		tools = append(tools, match)
	}
	return tools
}

// InsertToolCalls indexes the body's tool references for the event.
func InsertToolCalls(conn *sql.DB, eventID, body string) error {
	tools := ExtractToolCalls(body)
	if len(tools) == 0 {
		return nil
	}

	tx, err := conn.Begin()
	if err != nil {
		return err
	}
	for _, tool := range tools {
		if _, err := tx.Exec("INSERT INTO tool_calls (event_id, tool_name) VALUES (?, ?)", eventID, tool); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// EventsByTool returns events referencing the tool, newest first.
func EventsByTool(conn *sql.DB, toolName string) ([]types.Event, error) {
	rows, err := conn.Query(`
		SELECT `+eventColumnsAliased+` FROM events e
		INNER JOIN tool_calls ON tool_calls.event_id = e.id
		WHERE tool_calls.tool_name = ?
		ORDER BY e.created_at DESC
	`, toolName)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}
