// Package storage описывает авторитетное хранилище бронирований ресурса.
package storage

import (
	"context"

	"github.com/region23/navatar/internal/booking"
)

// Filter ограничивает выборку List. Пустые поля не фильтруют.
// From и To включительные даты в формате booking.DateLayout.
type Filter struct {
	From    string
	To      string
	OwnerID string
}

// Day фильтр на один день
func Day(date string) Filter {
	return Filter{From: date, To: date}
}

// Match проверяет бронь на соответствие фильтру
func (f Filter) Match(r booking.Reservation) bool {
	if f.From != "" && r.Date < f.From {
		return false
	}
	if f.To != "" && r.Date > f.To {
		return false
	}
	if f.OwnerID != "" && r.OwnerID != f.OwnerID {
		return false
	}
	return true
}

// ReservationStore авторитетный набор подтвержденных бронирований.
//
// Create обязан атомарно проверить пересечение и вставить запись: при
// конфликте возвращается *booking.OverlapError, запись не создается.
// Delete возвращает errors.ErrBookingNotFound для неизвестного id.
// Прочие сбои возвращаются как *booking.PersistenceError.
type ReservationStore interface {
	List(ctx context.Context, f Filter) ([]booking.Reservation, error)
	Create(ctx context.Context, r booking.Reservation) (booking.Reservation, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}
