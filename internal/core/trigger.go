package core

import (
	"os"
	"strconv"
	"time"
)

// TouchTrigger stamps the trigger file so file watchers wake up and poll.
// Best-effort: watchers are optional, so errors are swallowed.
func TouchTrigger(path string) {
	_ = os.WriteFile(path, []byte(strconv.FormatInt(time.Now().UnixMilli(), 10)), 0o644)
}
