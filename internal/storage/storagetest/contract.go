// Package storagetest общий набор проверок для реализаций storage.ReservationStore
package storagetest

import (
	"errors"
	"sync"
	"testing"

	"github.com/region23/navatar/internal/booking"
	"github.com/region23/navatar/internal/storage"
	"github.com/region23/navatar/internal/testutils"
	apperrors "github.com/region23/navatar/pkg/errors"
)

// Factory создает пустое хранилище для одного подтеста
type Factory func(t *testing.T) storage.ReservationStore

// Run прогоняет контракт хранилища
func Run(t *testing.T, newStore Factory) {
	t.Run("create assigns id", func(t *testing.T) {
		s := newStore(t)
		ctx := testutils.TestContext()

		created, err := s.Create(ctx, testutils.Reservation("", "alice", "2030-05-01", "09:00", "10:30"))
		testutils.AssertNoError(t, err, "create")
		testutils.AssertNotEqual(t, "", created.ID, "id assigned")
		testutils.AssertEqual(t, "alice", created.OwnerID, "owner kept")

		items, err := s.List(ctx, storage.Filter{})
		testutils.AssertNoError(t, err, "list")
		testutils.AssertEqual(t, 1, len(items), "one reservation")
		testutils.AssertEqual(t, created.ID, items[0].ID, "listed id")
		testutils.AssertEqual(t, "10:30", items[0].EndTime, "listed end")
	})

	t.Run("overlap rejected", func(t *testing.T) {
		s := newStore(t)
		ctx := testutils.TestContext()

		first, err := s.Create(ctx, testutils.Reservation("", "alice", "2030-05-01", "09:00", "10:30"))
		testutils.AssertNoError(t, err, "first create")

		_, err = s.Create(ctx, testutils.Reservation("", "bob", "2030-05-01", "10:00", "11:00"))
		testutils.AssertErrorIs(t, err, apperrors.ErrSlotOverlap, "overlap")
		var oe *booking.OverlapError
		if !errors.As(err, &oe) {
			t.Fatalf("expected *booking.OverlapError, got %T", err)
		}
		testutils.AssertEqual(t, first.ID, oe.With.ID, "conflict reported")

		items, err := s.List(ctx, storage.Filter{})
		testutils.AssertNoError(t, err, "list")
		testutils.AssertEqual(t, 1, len(items), "loser not stored")
	})

	t.Run("adjacent and other day allowed", func(t *testing.T) {
		s := newStore(t)
		ctx := testutils.TestContext()

		_, err := s.Create(ctx, testutils.Reservation("", "alice", "2030-05-01", "09:00", "10:30"))
		testutils.AssertNoError(t, err, "first")
		_, err = s.Create(ctx, testutils.Reservation("", "bob", "2030-05-01", "10:30", "11:00"))
		testutils.AssertNoError(t, err, "adjacent")
		_, err = s.Create(ctx, testutils.Reservation("", "bob", "2030-05-02", "09:00", "10:30"))
		testutils.AssertNoError(t, err, "next day")
		_, err = s.Create(ctx, testutils.Reservation("", "bob", "2030-05-01", "23:30", "24:00"))
		testutils.AssertNoError(t, err, "end of day")
	})

	t.Run("filter", func(t *testing.T) {
		s := newStore(t)
		ctx := testutils.TestContext()

		for _, r := range []booking.Reservation{
			testutils.Reservation("", "alice", "2030-05-03", "09:00", "10:00"),
			testutils.Reservation("", "bob", "2030-05-01", "12:00", "13:00"),
			testutils.Reservation("", "alice", "2030-05-01", "09:00", "10:00"),
			testutils.Reservation("", "alice", "2030-05-05", "09:00", "10:00"),
		} {
			_, err := s.Create(ctx, r)
			testutils.AssertNoError(t, err, "seed")
		}

		items, err := s.List(ctx, storage.Filter{From: "2030-05-01", To: "2030-05-03"})
		testutils.AssertNoError(t, err, "range")
		testutils.AssertEqual(t, 3, len(items), "range count")
		testutils.AssertEqual(t, "2030-05-01", items[0].Date, "ordered by date")
		testutils.AssertEqual(t, "09:00", items[0].StartTime, "ordered by start")

		items, err = s.List(ctx, storage.Filter{OwnerID: "bob"})
		testutils.AssertNoError(t, err, "owner")
		testutils.AssertEqual(t, 1, len(items), "owner count")

		items, err = s.List(ctx, storage.Day("2030-05-04"))
		testutils.AssertNoError(t, err, "empty day")
		testutils.AssertEqual(t, 0, len(items), "empty day count")
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		ctx := testutils.TestContext()

		created, err := s.Create(ctx, testutils.Reservation("", "alice", "2030-05-01", "09:00", "10:00"))
		testutils.AssertNoError(t, err, "create")

		testutils.AssertNoError(t, s.Delete(ctx, created.ID), "first delete")
		testutils.AssertErrorIs(t, s.Delete(ctx, created.ID), apperrors.ErrBookingNotFound, "second delete")

		_, err = s.Create(ctx, testutils.Reservation("", "bob", "2030-05-01", "09:00", "10:00"))
		testutils.AssertNoError(t, err, "freed window can be booked again")
	})

	t.Run("concurrent create", func(t *testing.T) {
		s := newStore(t)
		ctx := testutils.TestContext()

		const workers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
			conflicts int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.Create(ctx, testutils.Reservation("", "user", "2030-06-01", "14:00", "15:00"))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					succeeded++
				case errors.Is(err, apperrors.ErrSlotOverlap):
					conflicts++
				default:
					t.Errorf("worker %d: unexpected error: %v", i, err)
				}
			}(i)
		}
		wg.Wait()

		testutils.AssertEqual(t, 1, succeeded, "exactly one winner")
		testutils.AssertEqual(t, workers-1, conflicts, "others see overlap")
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		testutils.AssertNoError(t, s.Ping(testutils.TestContext()), "ping")
	})
}
