package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError представляет ошибку приложения с кодом и контекстом
type AppError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
	Context interface{} `json:"context,omitempty"`
}

// Error реализует интерфейс error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap позволяет использовать errors.Is и errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is сравнивает ошибки по коду, поэтому копии из WithContext/WithError
// продолжают совпадать с предопределенными значениями
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithContext добавляет контекст к ошибке
func (e *AppError) WithContext(ctx interface{}) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Context: ctx,
	}
}

// WithError добавляет underlying ошибку
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
		Context: e.Context,
	}
}

// WithMessage заменяет пользовательское сообщение, сохраняя код
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: message,
		Err:     e.Err,
		Context: e.Context,
	}
}

// Предопределенные ошибки
var (
	// Ошибки бронирования
	ErrPastSlot = &AppError{
		Code:    "PAST_SLOT",
		Message: "You cannot book a slot in the past.",
	}

	ErrSlotOverlap = &AppError{
		Code:    "SLOT_OVERLAP",
		Message: "This slot is already booked by someone else.",
	}

	ErrBookingNotFound = &AppError{
		Code:    "BOOKING_NOT_FOUND",
		Message: "Booking not found or already removed.",
	}

	ErrPersistence = &AppError{
		Code:    "PERSISTENCE",
		Message: "Failed to reach the booking store. Please try again.",
	}

	// Ошибки валидации
	ErrInvalidDate = &AppError{
		Code:    "INVALID_DATE",
		Message: "invalid date",
	}

	ErrInvalidTime = &AppError{
		Code:    "INVALID_TIME",
		Message: "invalid time",
	}

	ErrInvalidRange = &AppError{
		Code:    "INVALID_RANGE",
		Message: "Please select a date and both start and end times.",
	}

	ErrInvalidOwner = &AppError{
		Code:    "INVALID_OWNER",
		Message: "owner id is required",
	}

	// Системные ошибки
	ErrConfigurationInvalid = &AppError{
		Code:    "CONFIGURATION_INVALID",
		Message: "invalid configuration",
	}

	ErrSchedulerStopped = &AppError{
		Code:    "SCHEDULER_STOPPED",
		Message: "scheduler is stopped",
	}

	ErrSchedulerRunning = &AppError{
		Code:    "SCHEDULER_RUNNING",
		Message: "scheduler is already running",
	}

	ErrAlertsUnavailable = &AppError{
		Code:    "ALERTS_UNAVAILABLE",
		Message: "alerts are not available",
	}

	ErrUnauthorized = &AppError{
		Code:    "UNAUTHORIZED",
		Message: "unauthorized",
	}
)

// New создает новую ошибку приложения
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap оборачивает обычную ошибку в AppError
func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsAppError проверяет, содержит ли цепочка ошибку AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError извлекает первую AppError из цепочки
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}

type userMessager interface {
	UserMessage() string
}

// UserMessage возвращает текст, пригодный для показа пользователю
func UserMessage(err error, fallback string) string {
	var um userMessager
	if stderrors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	if appErr, ok := GetAppError(err); ok && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}
