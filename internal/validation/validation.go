package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/region23/navatar/internal/booking"
	"github.com/region23/navatar/pkg/errors"
)

// DefaultGranularity шаг сетки времени в минутах
const DefaultGranularity = 5

// Регулярные выражения для валидации
var (
	dateRegex  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRegex  = regexp.MustCompile(`^\d{2}:\d{2}$`)
	ownerRegex = regexp.MustCompile(`^[A-Za-z0-9._@:+-]{1,128}$`)
)

// ValidateDate валидирует дату в формате YYYY-MM-DD.
// Прошедшие даты здесь не отсекаются, это решает проверка доступности.
func ValidateDate(dateStr string) (time.Time, error) {
	if dateStr == "" {
		return time.Time{}, errors.ErrInvalidRange.WithContext("дата не может быть пустой")
	}

	if !dateRegex.MatchString(dateStr) {
		return time.Time{}, errors.ErrInvalidDate.WithContext(map[string]interface{}{
			"date":   dateStr,
			"reason": "дата должна быть в формате YYYY-MM-DD",
		})
	}

	date, err := time.Parse(booking.DateLayout, dateStr)
	if err != nil {
		return time.Time{}, errors.ErrInvalidDate.WithError(err).WithContext(map[string]interface{}{
			"date": dateStr,
		})
	}

	return date, nil
}

// ValidateTime валидирует время в формате HH:MM и возвращает минуты от полуночи.
// "24:00" допускается только при allowEndOfDay.
func ValidateTime(timeStr string, allowEndOfDay bool) (int, error) {
	if timeStr == "" {
		return 0, errors.ErrInvalidRange.WithContext("время не может быть пустым")
	}

	if !timeRegex.MatchString(timeStr) {
		return 0, errors.ErrInvalidTime.WithContext(map[string]interface{}{
			"time":   timeStr,
			"reason": "время должно быть в формате HH:MM",
		})
	}

	minutes, err := booking.ParseClock(timeStr)
	if err != nil {
		return 0, errors.ErrInvalidTime.WithError(err).WithContext(map[string]interface{}{
			"time": timeStr,
		})
	}

	if timeStr == booking.EndOfDay && !allowEndOfDay {
		return 0, errors.ErrInvalidTime.WithContext(map[string]interface{}{
			"time":   timeStr,
			"reason": "24:00 допустимо только как время окончания",
		})
	}

	return minutes, nil
}

// ValidateGranularity проверяет, что время лежит на сетке шага step
func ValidateGranularity(timeStr string, minutes, step int) error {
	if step <= 1 {
		return nil
	}
	if minutes%step != 0 {
		return errors.ErrInvalidTime.WithContext(map[string]interface{}{
			"time":   timeStr,
			"reason": fmt.Sprintf("время должно быть кратно %d минутам", step),
		})
	}
	return nil
}

// ValidateSlotDuration проверяет корректность продолжительности слота
func ValidateSlotDuration(startTime, endTime string) error {
	start, err := ValidateTime(startTime, false)
	if err != nil {
		return fmt.Errorf("некорректное время начала: %w", err)
	}

	end, err := ValidateTime(endTime, true)
	if err != nil {
		return fmt.Errorf("некорректное время окончания: %w", err)
	}

	if end <= start {
		return errors.ErrInvalidRange.WithContext(map[string]interface{}{
			"start_time": startTime,
			"end_time":   endTime,
			"reason":     "время окончания должно быть позже времени начала",
		})
	}

	return nil
}

// ValidateOwnerID валидирует идентификатор владельца
func ValidateOwnerID(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return errors.ErrInvalidOwner
	}
	if !ownerRegex.MatchString(owner) {
		return errors.ErrInvalidOwner.WithContext(map[string]interface{}{
			"owner":  owner,
			"reason": "недопустимые символы или слишком длинный идентификатор",
		})
	}
	return nil
}

// ValidateCandidate проверяет формат кандидата до обращения к хранилищу
func ValidateCandidate(c booking.Reservation, step int) error {
	if _, err := ValidateDate(c.Date); err != nil {
		return err
	}
	if err := ValidateSlotDuration(c.StartTime, c.EndTime); err != nil {
		return err
	}
	if err := ValidateGranularity(c.StartTime, c.StartMinutes(), step); err != nil {
		return err
	}
	return ValidateGranularity(c.EndTime, c.EndMinutes(), step)
}

// ValidateGranularityMinutes валидирует шаг сетки из конфигурации
func ValidateGranularityMinutes(step int) error {
	if step <= 0 || step > 60 || 60%step != 0 {
		return errors.ErrConfigurationInvalid.WithContext(map[string]interface{}{
			"slot_granularity": step,
			"reason":           "шаг должен делить час без остатка",
		})
	}
	return nil
}
