package db

import (
	"database/sql"
	"time"

	"github.com/keybrdist/makiso/internal/types"
)

const dayMillis = 24 * 60 * 60 * 1000

// CleanupEvents removes completed/failed events older than the completed
// retention and pending events older than the pending retention, measured
// from created_at. A scope restricts eligibility to matching rows. Returns
// the number of events removed.
func CleanupEvents(conn *sql.DB, opts types.CleanupOptions) (int64, error) {
	now := time.Now().UnixMilli()
	completedCutoff := now - int64(opts.CompletedRetentionDays)*dayMillis
	pendingCutoff := now - int64(opts.PendingRetentionDays)*dayMillis

	where := `(
		(status IN ('completed', 'failed') AND created_at < ?)
		OR (status = 'pending' AND created_at < ?)
	)`
	params := []any{completedCutoff, pendingCutoff}

	if opts.Scope != nil {
		condition := buildScopeCondition(*opts.Scope, opts.Level, opts.IncludeUnscoped, "")
		where += " AND " + condition.SQL
		params = append(params, condition.Params...)
	}

	tx, err := conn.Begin()
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Surviving replies may still reference a removed parent; detach them
	// so the parent_id foreign key does not block the delete.
	if _, err := tx.Exec(`
		UPDATE events SET parent_id = NULL WHERE parent_id IN (
			SELECT id FROM events WHERE `+where+`
		)
	`, params...); err != nil {
		return 0, err
	}

	// Index rows do not cascade in SQLite without ON DELETE CASCADE, so
	// clear them in the same transaction as the events they derive from.
	for _, table := range []string{"mentions", "tool_calls"} {
		if _, err := tx.Exec(`
			DELETE FROM `+table+` WHERE event_id IN (
				SELECT id FROM events WHERE `+where+`
			)
		`, params...); err != nil {
			return 0, err
		}
	}

	result, err := tx.Exec("DELETE FROM events WHERE "+where, params...)
	if err != nil {
		return 0, err
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return removed, nil
}
