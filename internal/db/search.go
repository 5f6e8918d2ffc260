package db

import (
	"database/sql"

	"github.com/keybrdist/makiso/internal/types"
)

// SearchEvents runs a full-text query over event bodies, newest first. A
// non-nil scope narrows results with the usual scope predicate.
func SearchEvents(conn *sql.DB, query string, scope *types.Scope, level types.ScopeLevel, includeUnscoped bool) ([]types.Event, error) {
	stmt := `
		SELECT ` + eventColumnsAliased + ` FROM events e
		INNER JOIN events_fts ON events_fts.rowid = e.rowid
		WHERE events_fts MATCH ?
	`
	params := []any{query}

	if scope != nil {
		condition := buildScopeCondition(*scope, level, includeUnscoped, "e")
		stmt += " AND " + condition.SQL
		params = append(params, condition.Params...)
	}

	stmt += " ORDER BY e.created_at DESC"

	rows, err := conn.Query(stmt, params...)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}
