package memory

import (
	"testing"

	"github.com/region23/navatar/internal/storage"
	"github.com/region23/navatar/internal/storage/storagetest"
	"github.com/region23/navatar/internal/testutils"
	"github.com/region23/navatar/pkg/errors"
)

func TestMemoryContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.ReservationStore {
		return New()
	})
}

func TestClosedStore(t *testing.T) {
	s := New()
	testutils.AssertNoError(t, s.Close(), "close")

	_, err := s.List(testutils.TestContext(), storage.Filter{})
	testutils.AssertErrorIs(t, err, errors.ErrPersistence, "list after close")
	testutils.AssertErrorIs(t, s.Ping(testutils.TestContext()), errors.ErrPersistence, "ping after close")
}
