package core

import (
	"fmt"

	"github.com/google/uuid"
)

// NewEventID returns a UUIDv7 identifier. These sort lexicographically in
// creation order, so "ORDER BY id" agrees with "ORDER BY created_at".
func NewEventID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate event id: %w", err)
	}
	return id.String(), nil
}
