package db

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// openParams applies to every pooled connection. _txlock=immediate makes
// claim transactions take the write lock up front instead of deadlocking on
// a deferred-to-write upgrade under concurrent claimants.
const openParams = "?_txlock=immediate" +
	"&_pragma=journal_mode(WAL)" +
	"&_pragma=synchronous(NORMAL)" +
	"&_pragma=foreign_keys(1)" +
	"&_pragma=busy_timeout(5000)"

// OpenDatabase opens (creating if needed) the SQLite event database at path.
// The caller still owns schema initialization via InitSchema.
func OpenDatabase(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path+openParams)
	if err != nil {
		return nil, err
	}

	return conn, nil
}
