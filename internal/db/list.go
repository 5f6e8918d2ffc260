package db

import (
	"database/sql"

	"github.com/keybrdist/makiso/internal/types"
)

// ListOptions filters event listings. Zero values mean "no filter".
type ListOptions struct {
	Topic           string
	Status          types.EventStatus
	Scope           *types.Scope
	Level           types.ScopeLevel
	IncludeUnscoped bool
	Limit           int
}

// ListEvents returns matching events, newest first.
func ListEvents(conn *sql.DB, opts ListOptions) ([]types.Event, error) {
	stmt := "SELECT " + eventColumns + " FROM events WHERE 1=1"
	var params []any

	if opts.Topic != "" {
		stmt += " AND topic = ?"
		params = append(params, opts.Topic)
	}
	if opts.Status != "" {
		stmt += " AND status = ?"
		params = append(params, opts.Status)
	}
	if opts.Scope != nil {
		condition := buildScopeCondition(*opts.Scope, opts.Level, opts.IncludeUnscoped, "")
		stmt += " AND " + condition.SQL
		params = append(params, condition.Params...)
	}

	stmt += " ORDER BY created_at DESC, id DESC"
	if opts.Limit > 0 {
		stmt += " LIMIT ?"
		params = append(params, opts.Limit)
	}

	rows, err := conn.Query(stmt, params...)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// CountEventsByStatus returns the per-status event counts under the scope.
func CountEventsByStatus(conn *sql.DB, topic string, scope *types.Scope, level types.ScopeLevel, includeUnscoped bool) (map[types.EventStatus]int, error) {
	stmt := "SELECT status, COUNT(*) FROM events WHERE 1=1"
	var params []any

	if topic != "" {
		stmt += " AND topic = ?"
		params = append(params, topic)
	}
	if scope != nil {
		condition := buildScopeCondition(*scope, level, includeUnscoped, "")
		stmt += " AND " + condition.SQL
		params = append(params, condition.Params...)
	}
	stmt += " GROUP BY status"

	rows, err := conn.Query(stmt, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[types.EventStatus]int)
	for rows.Next() {
		var status types.EventStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
