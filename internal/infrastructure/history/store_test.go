package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/greyfold/teletask-bridge/internal/infrastructure/config"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := config.HistoryConfig{
		Enabled:     true,
		Path:        filepath.Join(t.TempDir(), "history.db"),
		WALMode:     true,
		BusyTimeout: 5,
	}

	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// insertRow inserts an event with an explicit timestamp for pruning tests.
func insertRow(t *testing.T, s *Store, function string, address, state int, createdAt time.Time) {
	t.Helper()

	_, err := s.db.Exec(
		"INSERT INTO event_history (function, address, state, source, created_at) VALUES (?, ?, ?, ?, ?)",
		function,
		address,
		state,
		"bus",
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		t.Fatalf("failed to insert row: %v", err)
	}
}

func TestRecordAndGetHistory(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.RecordEvent(ctx, "relay", 12, 255, "bus"); err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}

	entries, err := store.GetHistory(ctx, "relay", 12, 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries length = %d, want 1", len(entries))
	}

	entry := entries[0]
	if entry.Function != "relay" || entry.Address != 12 || entry.State != 255 {
		t.Errorf("entry = %+v, want relay/12/255", entry)
	}
	if entry.Source != "bus" {
		t.Errorf("source = %q, want bus", entry.Source)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("CreatedAt should be populated")
	}
}

func TestRecordEvent_EmptyFunction(t *testing.T) {
	store := openTestStore(t)

	if err := store.RecordEvent(context.Background(), "", 1, 0, "bus"); err == nil {
		t.Error("RecordEvent() with empty function should fail")
	}
}

func TestRecordEvent_DefaultSource(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.RecordEvent(ctx, "flag", 3, 1, ""); err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}

	entries, err := store.GetHistory(ctx, "flag", 3, 1)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Source != "bus" {
		t.Errorf("entries = %+v, want one entry with source bus", entries)
	}
}

func TestGetHistory_OrderAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, state := range []int{0, 255, 0} {
		if err := store.RecordEvent(ctx, "relay", 5, state, "bus"); err != nil {
			t.Fatalf("RecordEvent() error = %v", err)
		}
	}

	entries, err := store.GetHistory(ctx, "relay", 5, 2)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries length = %d, want 2", len(entries))
	}

	// Newest first: last insert (state 0), then the 255 before it.
	if entries[0].State != 0 || entries[1].State != 255 {
		t.Errorf("states = [%d %d], want [0 255]", entries[0].State, entries[1].State)
	}
}

func TestGetHistory_FiltersByDevice(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.RecordEvent(ctx, "relay", 1, 255, "bus"); err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}
	if err := store.RecordEvent(ctx, "relay", 2, 0, "bus"); err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}
	if err := store.RecordEvent(ctx, "dimmer", 1, 80, "bus"); err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}

	entries, err := store.GetHistory(ctx, "relay", 1, 0)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 1 || entries[0].State != 255 {
		t.Errorf("entries = %+v, want the single relay/1 event", entries)
	}
}

func TestPrune(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	insertRow(t, store, "relay", 1, 255, time.Now().Add(-48*time.Hour))
	insertRow(t, store, "relay", 1, 0, time.Now().Add(-time.Minute))

	deleted, err := store.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("Prune() deleted = %d, want 1", deleted)
	}

	entries, err := store.GetHistory(ctx, "relay", 1, 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 1 || entries[0].State != 0 {
		t.Errorf("entries = %+v, want only the recent event", entries)
	}
}

func TestPrune_InvalidWindow(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.Prune(context.Background(), 0); err == nil {
		t.Error("Prune() with zero window should fail")
	}
}

// TestRunRetention verifies the retention loop prunes immediately on
// start and reports outcomes through the callback.
func TestRunRetention(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	insertRow(t, store, "relay", 1, 255, time.Now().Add(-48*time.Hour))
	insertRow(t, store, "relay", 1, 0, time.Now().Add(-time.Minute))

	results := make(chan int64, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		store.RunRetention(ctx, 24*time.Hour, time.Hour, func(removed int64, err error) {
			if err != nil {
				t.Errorf("prune error = %v", err)
				return
			}
			select {
			case results <- removed:
			default:
			}
		})
	}()

	select {
	case removed := <-results:
		if removed != 1 {
			t.Errorf("initial prune removed %d rows, want 1", removed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("retention loop did not prune")
	}

	cancel()
	<-done

	entries, err := store.GetHistory(context.Background(), "relay", 1, 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 1 || entries[0].State != 0 {
		t.Errorf("entries after retention = %+v, want only the recent row", entries)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	cfg := config.HistoryConfig{
		Enabled:     true,
		Path:        filepath.Join(t.TempDir(), "history.db"),
		BusyTimeout: 5,
	}

	first, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := first.RecordEvent(context.Background(), "relay", 9, 255, "bus"); err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Reopening applies the schema again and keeps existing rows.
	second, err := Open(cfg)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer second.Close()

	entries, err := second.GetHistory(context.Background(), "relay", 9, 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("entries length = %d, want 1 after reopen", len(entries))
	}
}

func TestHealthCheck_Store(t *testing.T) {
	store := openTestStore(t)

	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}
