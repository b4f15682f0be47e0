package booking

import (
	"fmt"

	"github.com/region23/navatar/pkg/errors"
)

// OverlapError кандидат пересекается с подтвержденной бронью With
type OverlapError struct {
	With  Reservation
	Owner string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%s: overlaps %s", errors.ErrSlotOverlap.Code, e.With)
}

func (e *OverlapError) Unwrap() error { return errors.ErrSlotOverlap }

// UserMessage различает чужую бронь, свою пересекающуюся и точный дубликат
func (e *OverlapError) UserMessage() string {
	if e.Owner == "" || e.With.OwnerID != e.Owner {
		return errors.ErrSlotOverlap.Message
	}
	return "You have already booked a slot that overlaps with this time."
}

// PersistenceError хранилище недоступно или ответило неожиданно
type PersistenceError struct {
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", errors.ErrPersistence.Code, e.Op, e.Cause)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{errors.ErrPersistence, e.Cause}
}

// Persistence оборачивает ошибку хранилища; nil остается nil
func Persistence(op string, cause error) error {
	if cause == nil {
		return nil
	}
	return &PersistenceError{Op: op, Cause: cause}
}
