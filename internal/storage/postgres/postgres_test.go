package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/region23/navatar/internal/storage"
	"github.com/region23/navatar/internal/storage/storagetest"
)

// Тесты требуют живую базу: TEST_DATABASE_URL=postgres://...
func TestPostgresContract(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := Open(ctx, url)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	storagetest.Run(t, func(t *testing.T) storage.ReservationStore {
		if err := s.truncate(ctx); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return s
	})
}
