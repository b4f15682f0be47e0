package sqlite

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/region23/navatar/internal/storage"
	"github.com/region23/navatar/internal/storage/storagetest"
	"github.com/region23/navatar/internal/testutils"
	"github.com/region23/navatar/pkg/errors"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.ReservationStore {
		return newTestStorage(t)
	})
}

func TestSQLiteReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "navatar.db")
	ctx := testutils.TestContext()

	s, err := New(path)
	testutils.AssertNoError(t, err, "open")
	created, err := s.Create(ctx, testutils.Reservation("", "alice", "2030-05-01", "09:00", "10:00"))
	testutils.AssertNoError(t, err, "create")
	testutils.AssertNoError(t, s.Close(), "close")

	s, err = New(path)
	testutils.AssertNoError(t, err, "reopen")
	defer s.Close()

	items, err := s.List(ctx, storage.Filter{})
	testutils.AssertNoError(t, err, "list")
	testutils.AssertEqual(t, 1, len(items), "persisted")
	testutils.AssertEqual(t, created.ID, items[0].ID, "same id")
	testutils.AssertFalse(t, items[0].CreatedAt.IsZero(), "created_at stored")
}

func TestDSN(t *testing.T) {
	testutils.AssertEqual(t, "navatar.db?_txlock=immediate&_pragma=busy_timeout(5000)", dsn("navatar.db"), "plain path")
	testutils.AssertEqual(t, "file:x.db?mode=rwc&_txlock=immediate&_pragma=busy_timeout(5000)", dsn("file:x.db?mode=rwc"), "existing query")
}

func TestSQLiteSharedFileCreates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	ctx := testutils.TestContext()

	stores := make([]*SQLiteStorage, 2)
	for i := range stores {
		s, err := New(path)
		testutils.AssertNoError(t, err, "open")
		t.Cleanup(func() { s.Close() })
		stores[i] = s
	}

	const attempts = 6
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		other   []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			owner := fmt.Sprintf("owner-%d", i)
			_, err := stores[i%2].Create(ctx, testutils.Reservation("", owner, "2030-05-01", "09:00", "10:00"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case stderrors.Is(err, errors.ErrSlotOverlap):
			default:
				other = append(other, err)
			}
		}(i)
	}
	wg.Wait()

	testutils.AssertEqual(t, 1, created, "exactly one booking wins")
	testutils.AssertEqual(t, 0, len(other), fmt.Sprintf("losers see overlap, got %v", other))
}
