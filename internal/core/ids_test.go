package core

import (
	"testing"
	"time"
)

func TestNewEventIDsSortable(t *testing.T) {
	previous := ""
	for i := 0; i < 10; i++ {
		id, err := NewEventID()
		if err != nil {
			t.Fatalf("new id: %v", err)
		}
		if len(id) != 36 {
			t.Fatalf("unexpected id length: %s", id)
		}
		if previous != "" && id <= previous {
			t.Fatalf("ids out of order: %s then %s", previous, id)
		}
		previous = id
		time.Sleep(time.Millisecond)
	}
}
