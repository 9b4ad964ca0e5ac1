package database_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/nandhiniannika/online-voting/internal/database"
	"github.com/nandhiniannika/online-voting/internal/database/mock"
)

func TestOpen_MissingStartsEmpty(t *testing.T) {
	store, err := database.Open(context.Background(), mock.NewMockBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d records", store.Len())
	}
}

func TestOpen_CorruptFails(t *testing.T) {
	backend := mock.NewMockBackend()
	backend.Seed([]string{"a", "b", "c"}, [][]float32{{1}, {2}})

	_, err := database.Open(context.Background(), backend)
	if !errors.Is(err, database.ErrStoreCorrupt) {
		t.Fatalf("expected ErrStoreCorrupt, got %v", err)
	}
}

func TestOpen_LoadsRecordsInOrder(t *testing.T) {
	backend := mock.NewMockBackend()
	backend.Seed([]string{"a", "b", "a"}, [][]float32{{1, 0}, {0, 1}, {1, 1}})

	store, err := database.Open(context.Background(), backend)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records, err := store.AllRecords()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"a", "b", "a"}
	for i, rec := range records {
		if rec.IdentityKey != want[i] {
			t.Errorf("record %d: expected %q, got %q", i, want[i], rec.IdentityKey)
		}
	}
}

func TestAppend_PersistsThenPublishes(t *testing.T) {
	backend := mock.NewMockBackend()
	store := database.NewIdentityStore(backend)

	var visibleDuringPersist int
	backend.PersistHook = func(next *database.Snapshot) {
		visibleDuringPersist = store.Len()
	}

	rec, err := store.Append(context.Background(), " V1 ", []float32{0.1, 0.2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.IdentityKey != "V1" {
		t.Errorf("expected normalised key V1, got %q", rec.IdentityKey)
	}
	if visibleDuringPersist != 0 {
		t.Errorf("record was visible before persistence completed")
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 record, got %d", store.Len())
	}
	if got := backend.PersistedKeys(); len(got) != 1 || got[0] != "V1" {
		t.Errorf("unexpected persisted keys: %v", got)
	}
}

func TestAppend_PersistFailureLeavesStoreUnchanged(t *testing.T) {
	backend := mock.NewMockBackend()
	backend.Seed([]string{"a"}, [][]float32{{1, 2}})
	store, err := database.Open(context.Background(), backend)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	backend.PersistError = errors.New("disk full")
	_, err = store.Append(context.Background(), "b", []float32{3, 4})
	if !errors.Is(err, database.ErrPersistenceWrite) {
		t.Fatalf("expected ErrPersistenceWrite, got %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("expected store unchanged with 1 record, got %d", store.Len())
	}
}

func TestAppend_DimensionMismatch(t *testing.T) {
	store := database.NewIdentityStore(mock.NewMockBackend())
	ctx := context.Background()

	if _, err := store.Append(ctx, "a", []float32{1, 2, 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Append(ctx, "b", []float32{1, 2}); !errors.Is(err, database.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestAppend_InvalidKey(t *testing.T) {
	backend := mock.NewMockBackend()
	store := database.NewIdentityStore(backend)

	if _, err := store.Append(context.Background(), "  ", []float32{1}); !errors.Is(err, database.ErrInvalidIdentityKey) {
		t.Errorf("expected ErrInvalidIdentityKey, got %v", err)
	}
	if backend.PersistCalls() != 0 {
		t.Error("persist should not be called for an invalid key")
	}
}

func TestAppend_DuplicateKeysKept(t *testing.T) {
	store := database.NewIdentityStore(mock.NewMockBackend())
	ctx := context.Background()

	for range 3 {
		if _, err := store.Append(ctx, "V1", []float32{1, 1}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := store.Snapshot().KeyCounts()["V1"]; got != 3 {
		t.Errorf("expected 3 records for V1, got %d", got)
	}
}

func TestAppend_CancelledContext(t *testing.T) {
	backend := mock.NewMockBackend()
	store := database.NewIdentityStore(backend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Append(ctx, "a", []float32{1}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if store.Len() != 0 {
		t.Error("store should be unchanged")
	}
}

func TestAppend_ConcurrentWritersAndReaders(t *testing.T) {
	backend := mock.NewMockBackend()
	store := database.NewIdentityStore(backend)
	ctx := context.Background()

	const writers = 16
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := store.Append(ctx, fmt.Sprintf("V%d", i), []float32{float32(i), 0}); err != nil {
				t.Errorf("append %d: %v", i, err)
			}
		}(i)
	}

	stop := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := store.Snapshot()
			if err := snap.Validate(); err != nil {
				t.Errorf("reader observed inconsistent snapshot: %v", err)
				return
			}
		}
	}()

	wg.Wait()
	close(stop)
	<-readerDone

	if store.Len() != writers {
		t.Errorf("expected %d records, got %d", writers, store.Len())
	}
	if backend.PersistCalls() != writers {
		t.Errorf("expected %d persist calls, got %d", writers, backend.PersistCalls())
	}
	if len(backend.PersistedKeys()) != writers {
		t.Errorf("durable state lost appends: %d keys", len(backend.PersistedKeys()))
	}
}

func TestSnapshot_UnaffectedByLaterAppends(t *testing.T) {
	store := database.NewIdentityStore(mock.NewMockBackend())
	ctx := context.Background()

	if _, err := store.Append(ctx, "a", []float32{1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := store.Snapshot()
	if _, err := store.Append(ctx, "b", []float32{2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Len() != 1 {
		t.Errorf("held snapshot changed to %d records", snap.Len())
	}
}

func TestOpenBackend_Unknown(t *testing.T) {
	if _, err := database.OpenBackend(context.Background(), "nope", database.BackendOptions{}); err == nil {
		t.Error("expected error for unregistered backend")
	}
}
