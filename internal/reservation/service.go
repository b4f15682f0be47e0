// Package reservation проверяет, подтверждает и отменяет бронирования
// относительно авторитетного хранилища.
package reservation

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/region23/navatar/internal/booking"
	"github.com/region23/navatar/internal/notify"
	"github.com/region23/navatar/internal/storage"
	"github.com/region23/navatar/internal/validation"
	"github.com/region23/navatar/pkg/errors"
	"github.com/region23/navatar/pkg/logger"
	"github.com/region23/navatar/pkg/metrics"
)

// Тексты итоговых сообщений
const (
	msgSaveFailed   = "Failed to save booking. Please try again."
	msgUpdateFailed = "Failed to update bookings. Please try again."
	msgAvailable    = "This slot is available."
)

// ReminderInvalidator сбрасывает состояние напоминаний отмененной брони
type ReminderInvalidator interface {
	Forget(identities ...string)
}

// SnapshotCache сохраняет снимок для офлайн-показа
type SnapshotCache interface {
	Save(items []booking.Reservation) error
}

// Service сервис бронирования. Между вызовами хранит только последний снимок.
type Service struct {
	store     storage.ReservationStore
	sink      notify.NotificationSink
	log       *logger.Logger
	reminders ReminderInvalidator
	cache     SnapshotCache
	now       func() time.Time
	loc       *time.Location
	step      int

	group     singleflight.Group
	reads     atomic.Uint64
	mu        sync.RWMutex
	installed uint64
	snapshot  []booking.Reservation
}

const refreshKey = "refresh"

// Option настраивает сервис
type Option func(*Service)

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation часовой пояс дат броней
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithReminders связывает отмену со сбросом напоминаний
func WithReminders(r ReminderInvalidator) Option {
	return func(s *Service) { s.reminders = r }
}

// WithCache включает сохранение снимка после обновления
func WithCache(c SnapshotCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithGranularity шаг сетки времени в минутах
func WithGranularity(step int) Option {
	return func(s *Service) { s.step = step }
}

// NewService создает сервис
func NewService(store storage.ReservationStore, sink notify.NotificationSink, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.Discard()
	}
	s := &Service{
		store: store,
		sink:  sink,
		log:   log,
		now:   time.Now,
		loc:   time.Local,
		step:  validation.DefaultGranularity,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().In(s.loc)
}

// CheckAvailability проверяет кандидата по свежему списку дня без изменений в хранилище
func (s *Service) CheckAvailability(ctx context.Context, candidate booking.Reservation) (booking.ValidationResult, error) {
	if err := validation.ValidateCandidate(candidate, s.step); err != nil {
		metrics.RecordAvailability("invalid")
		s.show(ctx, errors.UserMessage(err, errors.ErrInvalidRange.Message), notify.CategoryError)
		return booking.ValidationResult{}, err
	}

	existing, err := s.store.List(ctx, storage.Day(candidate.Date))
	if err != nil {
		metrics.RecordAvailability("error")
		s.log.Error("Failed to list reservations", logger.String("date", candidate.Date), logger.Error(err))
		s.show(ctx, errors.ErrPersistence.Message, notify.CategoryError)
		return booking.ValidationResult{}, asPersistence("list", err)
	}

	result := booking.CheckCandidate(candidate, existing, s.clock())
	metrics.RecordAvailability(result.Kind.String())

	if result.OK() {
		s.show(ctx, msgAvailable, notify.CategoryInfo)
	} else {
		s.show(ctx, errors.UserMessage(result.Err(candidate.OwnerID), ""), notify.CategoryError)
	}
	return result, nil
}

// Confirm повторно проверяет кандидата и создает бронь. Ошибки не повторяются автоматически.
func (s *Service) Confirm(ctx context.Context, candidate booking.Reservation, ownerID string) (booking.Reservation, error) {
	candidate.ID = ""
	candidate.OwnerID = ownerID

	fields := []logger.Field{
		logger.String("owner", ownerID),
		logger.String("slot", candidate.String()),
	}

	if err := validation.ValidateOwnerID(ownerID); err != nil {
		return booking.Reservation{}, s.rejectBooking(ctx, "invalid", err, fields)
	}
	if err := validation.ValidateCandidate(candidate, s.step); err != nil {
		return booking.Reservation{}, s.rejectBooking(ctx, "invalid", err, fields)
	}

	existing, err := s.store.List(ctx, storage.Day(candidate.Date))
	if err != nil {
		return booking.Reservation{}, s.failBooking(ctx, err, fields)
	}

	if result := booking.CheckCandidate(candidate, existing, s.clock()); !result.OK() {
		return booking.Reservation{}, s.rejectBooking(ctx, result.Kind.String(), result.Err(ownerID), fields)
	}

	created, err := s.store.Create(ctx, candidate)
	if err != nil {
		// конфликт, обнаруженный только хранилищем: проиграли гонку другой сессии
		if stderrors.Is(err, errors.ErrSlotOverlap) || stderrors.Is(err, errors.ErrPastSlot) ||
			stderrors.Is(err, errors.ErrInvalidRange) || stderrors.Is(err, errors.ErrInvalidTime) {
			s.refreshQuietly(ctx)
			return booking.Reservation{}, s.rejectBooking(ctx, outcomeOf(err), err, fields)
		}
		return booking.Reservation{}, s.failBooking(ctx, err, fields)
	}

	s.refreshQuietly(ctx)
	metrics.RecordBooking("confirmed")
	s.log.Info("Booking confirmed", append(fields, logger.String("id", created.ID))...)
	s.show(ctx, fmt.Sprintf("Booking confirmed for %s from %s to %s",
		booking.FormatDate(created.Date), created.StartTime, created.EndTime), notify.CategorySuccess)
	return created, nil
}

// Cancel удаляет бронь владельца, найденную по ID или по (date, start, end)
func (s *Service) Cancel(ctx context.Context, ownerID string, target booking.Reservation) error {
	fields := []logger.Field{
		logger.String("owner", ownerID),
		logger.String("target", target.String()),
	}

	f := storage.Filter{OwnerID: ownerID}
	if target.Date != "" {
		f.From, f.To = target.Date, target.Date
	}
	mine, err := s.store.List(ctx, f)
	if err != nil {
		return s.failCancel(ctx, err, fields)
	}

	match, ok := findTarget(mine, target)
	if !ok {
		return s.cancelNotFound(ctx, fields)
	}

	if err := s.store.Delete(ctx, match.ID); err != nil {
		if stderrors.Is(err, errors.ErrBookingNotFound) {
			s.forget(match)
			return s.cancelNotFound(ctx, fields)
		}
		return s.failCancel(ctx, err, fields)
	}

	s.forget(match)
	s.refreshQuietly(ctx)
	metrics.RecordCancellation("cancelled")
	s.log.Info("Booking cancelled", append(fields, logger.String("id", match.ID))...)
	s.show(ctx, fmt.Sprintf("Booking cancelled for %s at %s", booking.FormatDate(match.Date), match.StartTime), notify.CategorySuccess)
	return nil
}

// Refresh перечитывает все бронирования; параллельные вызовы объединяются
func (s *Service) Refresh(ctx context.Context) error {
	_, err, _ := s.group.Do(refreshKey, func() (interface{}, error) {
		return nil, s.reload(ctx)
	})
	return err
}

// reload ставит снимок, только если чтение началось позже уже установленного
func (s *Service) reload(ctx context.Context) error {
	seq := s.reads.Add(1)
	items, err := s.store.List(ctx, storage.Filter{})
	if err != nil {
		metrics.RecordRefresh("error", 0)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.installed {
		s.log.Debug("Discarded stale snapshot", logger.Int("items", len(items)))
		metrics.RecordRefresh("stale", len(items))
		return nil
	}
	s.installed = seq
	s.snapshot = items
	metrics.RecordRefresh("ok", len(items))

	if s.cache != nil {
		if err := s.cache.Save(items); err != nil {
			s.log.Warn("Failed to write snapshot cache", logger.Error(err))
		}
	}
	return nil
}

// Latest последний снимок. Срез принадлежит вызывающему.
func (s *Service) Latest() []booking.Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]booking.Reservation(nil), s.snapshot...)
}

// Booking бронь владельца с признаком идущего сеанса
type Booking struct {
	booking.Reservation
	Ongoing bool `json:"ongoing"`
}

// MyBookings незавершенные брони владельца по свежему списку
func (s *Service) MyBookings(ctx context.Context, ownerID string) ([]Booking, error) {
	now := s.clock()
	items, err := s.store.List(ctx, storage.Filter{From: now.Format(booking.DateLayout), OwnerID: ownerID})
	if err != nil {
		s.log.Error("Failed to list own bookings", logger.String("owner", ownerID), logger.Error(err))
		return nil, err
	}
	upcoming := booking.Upcoming(items, ownerID, now)
	out := make([]Booking, 0, len(upcoming))
	for _, r := range upcoming {
		out = append(out, Booking{Reservation: r, Ongoing: r.Ongoing(now)})
	}
	return out, nil
}

func findTarget(mine []booking.Reservation, target booking.Reservation) (booking.Reservation, bool) {
	for _, r := range mine {
		if target.ID != "" {
			if r.ID == target.ID {
				return r, true
			}
			continue
		}
		if r.SameRange(target) {
			return r, true
		}
	}
	return booking.Reservation{}, false
}

func (s *Service) forget(r booking.Reservation) {
	if s.reminders == nil {
		return
	}
	s.reminders.Forget(r.Identity(), r.RangeKey())
}

// refreshQuietly обновляет снимок после изменения; ошибка только логируется.
// Чтение, начатое до изменения, не переиспользуется.
func (s *Service) refreshQuietly(ctx context.Context) {
	s.group.Forget(refreshKey)
	if err := s.Refresh(ctx); err != nil {
		s.log.Warn("Failed to refresh snapshot", logger.Error(err))
	}
}

func (s *Service) rejectBooking(ctx context.Context, outcome string, err error, fields []logger.Field) error {
	metrics.RecordBooking(outcome)
	s.log.Info("Booking rejected", append(fields, logger.String("outcome", outcome), logger.Error(err))...)
	s.show(ctx, errors.UserMessage(err, msgSaveFailed), notify.CategoryError)
	return err
}

func (s *Service) failBooking(ctx context.Context, err error, fields []logger.Field) error {
	metrics.RecordBooking("persistence")
	metrics.RecordError("reservation", "confirm")
	s.log.Error("Failed to save booking", append(fields, logger.Error(err))...)
	s.show(ctx, msgSaveFailed, notify.CategoryError)
	return asPersistence("create", err)
}

func (s *Service) cancelNotFound(ctx context.Context, fields []logger.Field) error {
	metrics.RecordCancellation("not_found")
	s.log.Info("Booking to cancel not found", fields...)
	s.show(ctx, errors.ErrBookingNotFound.Message, notify.CategoryError)
	return errors.ErrBookingNotFound
}

func (s *Service) failCancel(ctx context.Context, err error, fields []logger.Field) error {
	metrics.RecordCancellation("persistence")
	metrics.RecordError("reservation", "cancel")
	s.log.Error("Failed to cancel booking", append(fields, logger.Error(err))...)
	s.show(ctx, msgUpdateFailed, notify.CategoryError)
	return asPersistence("delete", err)
}

// show отправляет итоговое сообщение операции
func (s *Service) show(ctx context.Context, text string, category notify.Category) {
	if s.sink == nil {
		return
	}
	if err := s.sink.ShowMessage(ctx, text, category); err != nil {
		s.log.Warn("Failed to deliver message", logger.Error(err))
	}
}

func asPersistence(op string, err error) error {
	if stderrors.Is(err, errors.ErrPersistence) {
		return err
	}
	return booking.Persistence(op, err)
}

func outcomeOf(err error) string {
	switch {
	case stderrors.Is(err, errors.ErrSlotOverlap):
		return booking.Overlap.String()
	case stderrors.Is(err, errors.ErrPastSlot):
		return booking.PastSlot.String()
	}
	return "invalid"
}
