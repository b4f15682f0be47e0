// Package memory хранилище бронирований в памяти процесса
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/region23/navatar/internal/booking"
	"github.com/region23/navatar/internal/storage"
	"github.com/region23/navatar/pkg/errors"
)

// Store реализует storage.ReservationStore в памяти
type Store struct {
	mu     sync.RWMutex
	items  map[string]booking.Reservation
	closed bool
}

var _ storage.ReservationStore = (*Store)(nil)

// New создает пустое хранилище
func New() *Store {
	return &Store{items: make(map[string]booking.Reservation)}
}

func (s *Store) List(_ context.Context, f storage.Filter) ([]booking.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, booking.Persistence("list", errStoreClosed)
	}

	out := make([]booking.Reservation, 0, len(s.items))
	for _, r := range s.items {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	booking.SortByStart(out)
	return out, nil
}

// Create проверяет пересечение и вставляет под одной блокировкой
func (s *Store) Create(_ context.Context, r booking.Reservation) (booking.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return booking.Reservation{}, booking.Persistence("create", errStoreClosed)
	}

	// самый ранний конфликт, как в SQL-реализациях
	var conflict *booking.Reservation
	for _, existing := range s.items {
		if !booking.Overlaps(r, existing) {
			continue
		}
		if conflict == nil || existing.StartMinutes() < conflict.StartMinutes() {
			e := existing
			conflict = &e
		}
	}
	if conflict != nil {
		return booking.Reservation{}, &booking.OverlapError{With: *conflict, Owner: r.OwnerID}
	}

	r.ID = uuid.NewString()
	r.CreatedAt = time.Now().UTC()
	s.items[r.ID] = r
	return r, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return booking.Persistence("delete", errStoreClosed)
	}
	if _, ok := s.items[id]; !ok {
		return errors.ErrBookingNotFound.WithContext(map[string]interface{}{"id": id})
	}
	delete(s.items, id)
	return nil
}

func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return booking.Persistence("ping", errStoreClosed)
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var errStoreClosed = errors.New("STORE_CLOSED", "store is closed")
