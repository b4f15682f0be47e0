package scheduler

import (
	"context"

	"github.com/region23/navatar/internal/booking"
)

// SnapshotSource отдает последний снимок хранилища и умеет его обновлять
type SnapshotSource interface {
	// Latest возвращает последний полученный снимок без обращения к хранилищу
	Latest() []booking.Reservation

	// Refresh перечитывает снимок из хранилища
	Refresh(ctx context.Context) error
}
