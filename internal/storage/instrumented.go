package storage

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/region23/navatar/internal/booking"
	"github.com/region23/navatar/pkg/errors"
	"github.com/region23/navatar/pkg/logger"
	"github.com/region23/navatar/pkg/metrics"
)

// Instrumented добавляет метрики и логирование к любому хранилищу
type Instrumented struct {
	backend string
	next    ReservationStore
	log     *logger.Logger
}

// WithInstrumentation оборачивает store
func WithInstrumentation(backend string, next ReservationStore, log *logger.Logger) *Instrumented {
	return &Instrumented{backend: backend, next: next, log: log}
}

func (s *Instrumented) List(ctx context.Context, f Filter) ([]booking.Reservation, error) {
	start := time.Now()
	items, err := s.next.List(ctx, f)
	s.record("list", start, err)
	return items, err
}

func (s *Instrumented) Create(ctx context.Context, r booking.Reservation) (booking.Reservation, error) {
	start := time.Now()
	created, err := s.next.Create(ctx, r)
	s.record("create", start, err)
	if err == nil {
		s.log.Info("Reservation created",
			logger.String("backend", s.backend),
			logger.String("id", created.ID),
			logger.String("owner", created.OwnerID),
			logger.String("slot", created.String()))
	}
	return created, err
}

func (s *Instrumented) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := s.next.Delete(ctx, id)
	s.record("delete", start, err)
	if err == nil {
		s.log.Info("Reservation deleted", logger.String("backend", s.backend), logger.String("id", id))
	}
	return err
}

func (s *Instrumented) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *Instrumented) Close() error {
	return s.next.Close()
}

// Unwrap возвращает исходное хранилище
func (s *Instrumented) Unwrap() ReservationStore {
	return s.next
}

func (s *Instrumented) record(op string, start time.Time, err error) {
	status := statusOf(err)
	metrics.RecordStoreOperation(s.backend, op, status, time.Since(start).Seconds())
	if status == "error" {
		metrics.RecordError("storage", op)
		s.log.Error("Store operation failed",
			logger.String("backend", s.backend),
			logger.String("operation", op),
			logger.Error(err))
	}
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case stderrors.Is(err, errors.ErrSlotOverlap):
		return "conflict"
	case stderrors.Is(err, errors.ErrBookingNotFound):
		return "not_found"
	}
	return "error"
}
