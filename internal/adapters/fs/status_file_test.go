package fs

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/queueship/internal/domain"
)

func TestStatusFileRepository_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	repo := NewStatusFileRepository(filepath.Join(dir, "sub", "status.json"))
	ctx := context.Background()

	empty, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() on missing file = %v", err)
	}
	if empty.Operation != "" {
		t.Errorf("Load() on missing file = %+v, want zero value", empty)
	}

	want := domain.StatusSnapshot{
		Status:     domain.QueueStatus{QueuedPacketCount: 4, QueuedPacketSizeBytes: 40},
		Operation:  "cycle",
		LastError:  "TransportFailure: down",
		LastSendAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2024, 5, 1, 12, 0, 5, 0, time.UTC),
	}
	if err := repo.Save(ctx, want); err != nil {
		t.Fatalf("Save() = %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if got.Status != want.Status || got.Operation != want.Operation || got.LastError != want.LastError ||
		!got.LastSendAt.Equal(want.LastSendAt) || !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}

	if leftovers, _ := filepath.Glob(filepath.Join(dir, "sub", "*.tmp")); len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestStatusFileRepository_Directory(t *testing.T) {
	dir := t.TempDir()
	repo := NewStatusFileRepository(dir)

	if repo.Path() != filepath.Join(dir, DefaultStatusFileName) {
		t.Errorf("Path() = %s", repo.Path())
	}
}

func TestStatusFileRepository_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewStatusFileRepository(path).Load(context.Background()); err == nil {
		t.Error("Load() of corrupt file returned nil error")
	}
}

func TestStatusFileRepository_ConcurrentSaves(t *testing.T) {
	dir := t.TempDir()
	repo := NewStatusFileRepository(filepath.Join(dir, "status.json"))
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	const writers = 200
	var wg sync.WaitGroup
	errs := make(chan error, 2*writers)
	for i := 0; i < writers; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			errs <- repo.Save(ctx, domain.StatusSnapshot{
				Status:    domain.QueueStatus{QueuedPacketCount: i},
				Operation: "enqueue",
				UpdatedAt: base.Add(time.Duration(i) * time.Millisecond),
			})
		}(i)
		go func() {
			defer wg.Done()
			_, err := repo.Load(ctx)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent Save/Load = %v", err)
		}
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if got.Status.QueuedPacketCount != writers-1 {
		t.Errorf("QueuedPacketCount = %d, want the newest snapshot %d", got.Status.QueuedPacketCount, writers-1)
	}
	if leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp")); len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestStatusFileRepository_DropsOlderSnapshot(t *testing.T) {
	repo := NewStatusFileRepository(filepath.Join(t.TempDir(), "status.json"))
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if err := repo.Save(ctx, domain.StatusSnapshot{Operation: "cycle", UpdatedAt: now}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, domain.StatusSnapshot{Operation: "enqueue", UpdatedAt: now.Add(-time.Second)}); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Operation != "cycle" {
		t.Errorf("Operation = %q, want the newer snapshot to survive", got.Operation)
	}
}
