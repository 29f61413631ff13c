package rollout

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ThreadInfo is the metadata Codex keeps per thread in its state database.
type ThreadInfo struct {
	Title string
	CWD   string
}

// LookupThread reads a thread row from the Codex state database next to
// the sessions directory. Best-effort: a missing database, schema drift,
// or an unknown thread id all return an error the caller logs at debug.
func LookupThread(codexHome, threadID string) (*ThreadInfo, error) {
	dbPath := filepath.Join(codexHome, "state_5.sqlite")
	db, err := sql.Open("sqlite", dbPath+"?mode=ro&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening codex state db: %w", err)
	}
	defer db.Close()

	var info ThreadInfo
	err = db.QueryRow(
		"SELECT title, cwd FROM threads WHERE id = ?",
		threadID,
	).Scan(&info.Title, &info.CWD)
	if err != nil {
		return nil, fmt.Errorf("querying thread %s: %w", threadID, err)
	}
	return &info, nil
}
