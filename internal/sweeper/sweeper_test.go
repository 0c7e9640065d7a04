package sweeper

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/playperu/hunts/internal/hunt"
	"github.com/playperu/hunts/internal/storage/storagetest"
)

func TestSweep(t *testing.T) {
	ctx := context.Background()
	store := storagetest.Open(t)
	q := store.Queries()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	h, err := q.CreateHunt(ctx, hunt.Hunt{CreatorID: "o", PlaySlug: "s", AccessMode: hunt.AccessOpen, LatestVersion: 1, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("CreateHunt: %v", err)
	}
	sessions := map[string]time.Time{
		"idle":   now.Add(-3 * time.Hour),
		"active": now.Add(-10 * time.Minute),
	}
	for id, updated := range sessions {
		err := q.CreateProgress(ctx, hunt.Progress{
			SessionID: id, HuntID: h.ID, Version: 1, Status: hunt.StatusInProgress,
			CurrentStepID: 1, StartedAt: updated, UpdatedAt: updated,
		})
		if err != nil {
			t.Fatalf("CreateProgress: %v", err)
		}
	}

	s := New(store, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return now }

	n, err := s.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("swept %d, want 1", n)
	}

	idle, _ := q.Progress(ctx, "idle")
	if idle.Status != hunt.StatusAbandoned {
		t.Errorf("idle status = %s, want abandoned", idle.Status)
	}
	active, _ := q.Progress(ctx, "active")
	if active.Status != hunt.StatusInProgress {
		t.Errorf("active status = %s, want in_progress", active.Status)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	store := storagetest.Open(t)
	s := New(store, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, 10*time.Millisecond) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
