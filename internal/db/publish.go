package db

import (
	"database/sql"
	"errors"

	"github.com/keybrdist/makiso/internal/types"
)

// PublishEvent inserts the event and synchronously derives its mention and
// tool-call indexes. The full-text index is maintained by triggers inside
// the insert itself. Index failures never undo the committed insert; they
// come back as indexErr for the caller to report.
func PublishEvent(conn *sql.DB, input types.NewEventInput) (event types.Event, indexErr error, err error) {
	event, err = InsertEvent(conn, input)
	if err != nil {
		return types.Event{}, nil, err
	}

	indexErr = errors.Join(
		InsertMentions(conn, event.ID, event.Body),
		InsertToolCalls(conn, event.ID, event.Body),
	)
	return event, indexErr, nil
}
