package booking_test

import (
	"errors"
	"testing"
	"time"

	"github.com/region23/navatar/internal/booking"
	"github.com/region23/navatar/internal/testutils"
	apperrors "github.com/region23/navatar/pkg/errors"
)

var day = time.Date(2025, 3, 14, 14, 0, 0, 0, time.UTC)

func res(date, start, end string) booking.Reservation {
	return testutils.Reservation("", "alice", date, start, end)
}

func TestOverlaps(t *testing.T) {
	a := res("2025-03-14", "09:00", "10:30")

	tests := []struct {
		name string
		b    booking.Reservation
		want bool
	}{
		{"adjacent after", res("2025-03-14", "10:30", "11:00"), false},
		{"adjacent before", res("2025-03-14", "08:00", "09:00"), false},
		{"tail overlap", res("2025-03-14", "10:00", "11:00"), true},
		{"head overlap", res("2025-03-14", "08:30", "09:05"), true},
		{"contained", res("2025-03-14", "09:30", "09:45"), true},
		{"containing", res("2025-03-14", "08:00", "12:00"), true},
		{"same window", a, true},
		{"other day", res("2025-03-15", "09:00", "10:30"), false},
		{"end of day", res("2025-03-14", "23:30", "24:00"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutils.AssertEqual(t, tt.want, booking.Overlaps(a, tt.b), "Overlaps(a, b)")
			testutils.AssertEqual(t, tt.want, booking.Overlaps(tt.b, a), "Overlaps(b, a)")
		})
	}
}

func TestOverlapsSymmetric(t *testing.T) {
	var slots []booking.Reservation
	for start := 8 * 60; start < 12*60; start += 25 {
		for length := 5; length <= 90; length += 20 {
			slots = append(slots, res("2025-03-14", booking.FormatClock(start), booking.FormatClock(start+length)))
		}
	}
	for _, a := range slots {
		for _, b := range slots {
			if booking.Overlaps(a, b) != booking.Overlaps(b, a) {
				t.Fatalf("asymmetric result for %s and %s", a, b)
			}
		}
	}
}

func TestIsInPast(t *testing.T) {
	tests := []struct {
		name string
		c    booking.Reservation
		want bool
	}{
		{"earlier today", res("2025-03-14", "13:00", "13:30"), true},
		{"later today", res("2025-03-14", "15:00", "15:30"), false},
		{"exactly now", res("2025-03-14", "14:00", "14:30"), false},
		{"tomorrow same clock", res("2025-03-15", "13:00", "13:30"), false},
		{"yesterday", res("2025-03-13", "13:00", "13:30"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutils.AssertEqual(t, tt.want, booking.IsInPast(tt.c, day), "IsInPast")
		})
	}

	t.Run("seconds count", func(t *testing.T) {
		now := day.Add(30 * time.Second)
		testutils.AssertTrue(t, booking.IsInPast(res("2025-03-14", "14:00", "14:30"), now), "14:00 is past at 14:00:30")
	})
}

func TestCheckCandidate(t *testing.T) {
	a := testutils.Reservation("a", "bob", "2025-03-14", "09:00", "10:30")
	existing := []booking.Reservation{
		testutils.Reservation("x", "bob", "2025-03-14", "16:00", "17:00"),
		a,
	}
	now := day.Add(-6 * time.Hour) // 08:00

	t.Run("overlap reports conflict", func(t *testing.T) {
		got := booking.CheckCandidate(res("2025-03-14", "10:00", "11:00"), existing, now)
		testutils.AssertEqual(t, booking.Overlap, got.Kind, "kind")
		if got.Conflict == nil {
			t.Fatal("conflict should be set")
		}
		testutils.AssertEqual(t, a, *got.Conflict, "conflict")
	})

	t.Run("adjacent ok", func(t *testing.T) {
		got := booking.CheckCandidate(res("2025-03-14", "10:30", "11:00"), existing, now)
		testutils.AssertTrue(t, got.OK(), "adjacent slot should be free")
		testutils.AssertTrue(t, got.Conflict == nil, "no conflict")
	})

	t.Run("past before overlap", func(t *testing.T) {
		got := booking.CheckCandidate(res("2025-03-14", "09:00", "10:00"), existing, day)
		testutils.AssertEqual(t, booking.PastSlot, got.Kind, "kind")
	})

	t.Run("past day", func(t *testing.T) {
		got := booking.CheckCandidate(res("2025-03-13", "18:00", "19:00"), nil, day)
		testutils.AssertEqual(t, booking.PastSlot, got.Kind, "kind")
	})

	t.Run("next day not past", func(t *testing.T) {
		got := booking.CheckCandidate(res("2025-03-15", "13:00", "14:00"), existing, day)
		testutils.AssertEqual(t, booking.Ok, got.Kind, "kind")
	})

	t.Run("self excluded on revalidation", func(t *testing.T) {
		got := booking.CheckCandidate(a, existing, now)
		testutils.AssertEqual(t, booking.Ok, got.Kind, "a committed slot does not conflict with itself")

		copyOfA := a
		copyOfA.ID = ""
		got = booking.CheckCandidate(copyOfA, existing, now)
		testutils.AssertEqual(t, booking.Overlap, got.Kind, "same window without id conflicts")
	})
}

func TestValidationResultErr(t *testing.T) {
	conflict := testutils.Reservation("a", "bob", "2025-03-14", "09:00", "10:30")
	result := booking.ValidationResult{Kind: booking.Overlap, Conflict: &conflict}

	err := result.Err("alice")
	testutils.AssertErrorIs(t, err, apperrors.ErrSlotOverlap, "overlap error")
	testutils.AssertEqual(t, "This slot is already booked by someone else.", apperrors.UserMessage(err, ""), "foreign message")

	var oe *booking.OverlapError
	testutils.AssertTrue(t, errors.As(err, &oe), "errors.As OverlapError")
	testutils.AssertEqual(t, "a", oe.With.ID, "conflict id")

	own := result.Err("bob")
	testutils.AssertEqual(t, "You have already booked a slot that overlaps with this time.", apperrors.UserMessage(own, ""), "own message")

	testutils.AssertErrorIs(t, booking.ValidationResult{Kind: booking.PastSlot}.Err("bob"), apperrors.ErrPastSlot, "past")
	testutils.AssertNoError(t, booking.ValidationResult{}.Err("bob"), "ok has no error")
}

func TestPersistenceError(t *testing.T) {
	cause := errors.New("connection refused")
	err := booking.Persistence("create", cause)
	testutils.AssertErrorIs(t, err, apperrors.ErrPersistence, "matches sentinel")
	testutils.AssertErrorIs(t, err, cause, "unwraps to cause")
	testutils.AssertNoError(t, booking.Persistence("create", nil), "nil stays nil")
}
