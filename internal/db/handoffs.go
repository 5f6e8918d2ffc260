package db

import (
	"database/sql"
	"strings"
	"time"

	"github.com/keybrdist/makiso/internal/types"
)

func toMention(value string) string {
	if strings.HasPrefix(value, "@") {
		return value
	}
	return "@" + value
}

func toPlain(value string) string {
	return strings.TrimPrefix(value, "@")
}

// ClaimNextHandoffEvent claims the oldest pending event on the topic that is
// addressed to the recipient, under the same ordering and pending-at-write
// guard as ClaimNextEvent. Addressing is checked against the structured
// metadata paths used by current and legacy publishers, and falls back to
// the recipient's mention token appearing literally in the body.
func ClaimNextHandoffEvent(conn *sql.DB, opts types.HandoffClaimOptions) (*types.Event, error) {
	condition := buildScopeCondition(opts.Scope, opts.Level, opts.IncludeUnscoped, "")
	recipientMention := toMention(opts.Recipient)
	recipientPlain := toPlain(opts.Recipient)

	tx, err := conn.Begin()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	params := append([]any{opts.Topic}, condition.Params...)
	params = append(params,
		recipientMention, recipientPlain,
		recipientMention, recipientPlain,
		recipientPlain, recipientMention,
		recipientPlain, recipientMention,
		"%"+recipientMention+"%",
	)

	row := tx.QueryRow(`
		SELECT id FROM events
		WHERE topic = ? AND status = 'pending' AND `+condition.SQL+`
			AND (
				(json_valid(metadata) AND (
					json_extract(metadata, '$.handoff.to_agent') IN (?, ?)
					OR json_extract(metadata, '$.handoff.to') IN (?, ?)
					OR json_extract(metadata, '$.to_agent') IN (?, ?)
					OR json_extract(metadata, '$.to') IN (?, ?)
				))
				OR body LIKE ?
			)
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`, params...)

	var id string
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	result, err := tx.Exec(`
		UPDATE events
		SET status = 'processing', claimed_by = ?, claimed_at = ?
		WHERE id = ? AND status = 'pending'
	`, opts.Agent, time.Now().UnixMilli(), id)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}

	event, err := scanEvent(tx.QueryRow("SELECT "+eventColumns+" FROM events WHERE id = ?", id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &event, nil
}
