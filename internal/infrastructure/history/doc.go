// Package history persists bus events to SQLite.
//
// Every state report the bridge receives from the central unit (and every
// optimistic local update, if the caller chooses to record them) is appended
// to the event_history table. The store answers bounded queries ordered
// newest first and supports pruning by age for retention control.
//
// # Storage
//
// A single SQLite file holds the history. WAL mode is recommended so reads
// do not block the writer. The schema is created on open, so no external
// migration step is needed.
//
//	CREATE TABLE event_history (
//	    id         INTEGER PRIMARY KEY AUTOINCREMENT,
//	    function   TEXT    NOT NULL,
//	    address    INTEGER NOT NULL,
//	    state      INTEGER NOT NULL,
//	    source     TEXT    NOT NULL DEFAULT 'bus',
//	    created_at TEXT    NOT NULL
//	)
//
// # Usage
//
//	store, err := history.Open(cfg.History)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	store.RecordEvent(ctx, "relay", 12, 255, "bus")
//	entries, _ := store.GetHistory(ctx, "relay", 12, 20)
package history
