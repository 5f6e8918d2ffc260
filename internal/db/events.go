package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/keybrdist/makiso/internal/core"
	"github.com/keybrdist/makiso/internal/types"
)

// eventColumns is the explicit column list for SELECT queries. Explicit so
// ALTER TABLE migrations cannot reorder scans.
const eventColumns = `id, topic, body, metadata, correlation_id, parent_id, status, source, org_id, workspace_id, project_id, repo_id, created_at, processed_at, claimed_by, claimed_at, expires_at`

// eventColumnsAliased is the same list with an e. prefix for JOINs.
const eventColumnsAliased = `e.id, e.topic, e.body, e.metadata, e.correlation_id, e.parent_id, e.status, e.source, e.org_id, e.workspace_id, e.project_id, e.repo_id, e.created_at, e.processed_at, e.claimed_by, e.claimed_at, e.expires_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (types.Event, error) {
	var event types.Event
	var metadata, correlationID, parentID, orgID, workspaceID, projectID, repoID, claimedBy sql.NullString
	var processedAt, claimedAt, expiresAt sql.NullInt64

	err := row.Scan(
		&event.ID, &event.Topic, &event.Body, &metadata, &correlationID, &parentID,
		&event.Status, &event.Source, &orgID, &workspaceID, &projectID, &repoID,
		&event.CreatedAt, &processedAt, &claimedBy, &claimedAt, &expiresAt,
	)
	if err != nil {
		return types.Event{}, err
	}

	event.Metadata = nullableString(metadata)
	event.CorrelationID = nullableString(correlationID)
	event.ParentID = nullableString(parentID)
	event.OrgID = nullableString(orgID)
	event.WorkspaceID = nullableString(workspaceID)
	event.ProjectID = nullableString(projectID)
	event.RepoID = nullableString(repoID)
	event.ClaimedBy = nullableString(claimedBy)
	event.ProcessedAt = nullableInt64(processedAt)
	event.ClaimedAt = nullableInt64(claimedAt)
	event.ExpiresAt = nullableInt64(expiresAt)
	return event, nil
}

func scanEvents(rows *sql.Rows) ([]types.Event, error) {
	defer rows.Close()

	var events []types.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func nullableString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	return &value.String
}

func nullableInt64(value sql.NullInt64) *int64 {
	if !value.Valid {
		return nil
	}
	return &value.Int64
}

// InsertEvent writes a new pending event and returns the stored row.
// Publishing to a topic with no topics row is legal and creates none.
func InsertEvent(conn *sql.DB, input types.NewEventInput) (types.Event, error) {
	if input.Topic == "" {
		return types.Event{}, errors.New("topic is required")
	}
	if input.Body == "" {
		return types.Event{}, errors.New("body is required")
	}

	id, err := core.NewEventID()
	if err != nil {
		return types.Event{}, err
	}

	source := input.Source
	if source == "" {
		source = "agent"
	}

	now := time.Now().UnixMilli()
	_, err = conn.Exec(`
		INSERT INTO events (
			id, topic, body, metadata, correlation_id, parent_id, status, source,
			org_id, workspace_id, project_id, repo_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, input.Topic, input.Body, input.Metadata, input.CorrelationID, input.ParentID,
		types.StatusPending, source, input.Scope.OrgID, input.Scope.WorkspaceID,
		input.Scope.ProjectID, input.Scope.RepoID, now)
	if err != nil {
		return types.Event{}, err
	}

	event, err := GetEvent(conn, id)
	if err != nil {
		return types.Event{}, err
	}
	return *event, nil
}

// GetEvent returns the event or nil when the id does not exist.
func GetEvent(conn *sql.DB, id string) (*types.Event, error) {
	row := conn.QueryRow("SELECT "+eventColumns+" FROM events WHERE id = ?", id)
	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ClaimNextEvent atomically claims the oldest pending event on the topic
// matching the scope predicate, or returns nil when none is pending. The
// update re-checks status so two concurrent claimants cannot both win the
// same row; the loser sees the re-check fail and reports no event.
func ClaimNextEvent(conn *sql.DB, opts types.ClaimOptions) (*types.Event, error) {
	condition := buildScopeCondition(opts.Scope, opts.Level, opts.IncludeUnscoped, "")

	tx, err := conn.Begin()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	params := append([]any{opts.Topic}, condition.Params...)
	row := tx.QueryRow(`
		SELECT id FROM events
		WHERE topic = ? AND status = 'pending' AND `+condition.SQL+`
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

// UpdateEventStatus overwrites status and processed_at without a transition
// guard; callers relying on monotonic status should treat this as advisory.
// Returns nil when the id does not exist.
func UpdateEventStatus(conn *sql.DB, id string, status types.EventStatus, processedAt *int64) (*types.Event, error) {
	stamp := time.Now().UnixMilli()
	if processedAt != nil {
		stamp = *processedAt
	}

	result, err := conn.Exec(`
		UPDATE events SET status = ?, processed_at = ? WHERE id = ?
	`, status, stamp, id)
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

	return GetEvent(conn, id)
}
