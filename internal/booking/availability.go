package booking

import (
	"time"

	"github.com/region23/navatar/pkg/errors"
)

// ResultKind исход проверки кандидата
type ResultKind int

const (
	Ok ResultKind = iota
	PastSlot
	Overlap
)

func (k ResultKind) String() string {
	switch k {
	case Ok:
		return "ok"
	case PastSlot:
		return "past_slot"
	case Overlap:
		return "overlap"
	}
	return "unknown"
}

// ValidationResult результат CheckCandidate. Conflict заполнен только для Overlap.
type ValidationResult struct {
	Kind     ResultKind
	Conflict *Reservation
}

// OK сообщает, можно ли бронировать кандидата
func (v ValidationResult) OK() bool { return v.Kind == Ok }

// Err переводит результат в доменную ошибку; для Ok возвращает nil.
// owner нужен, чтобы отличить пересечение со своей бронью.
func (v ValidationResult) Err(owner string) error {
	switch v.Kind {
	case PastSlot:
		return errors.ErrPastSlot
	case Overlap:
		oe := &OverlapError{Owner: owner}
		if v.Conflict != nil {
			oe.With = *v.Conflict
		}
		return oe
	}
	return nil
}

// Overlaps проверяет пересечение полуинтервалов [start, end) в один день.
// Касающиеся окна не пересекаются.
func Overlaps(a, b Reservation) bool {
	if a.Date != b.Date {
		return false
	}
	return a.StartMinutes() < b.EndMinutes() && b.StartMinutes() < a.EndMinutes()
}

// IsInPast истинно, только если день кандидата сегодня (по now), а его начало
// раньше текущего момента. Будущие дни никогда не считаются прошедшими.
func IsInPast(c Reservation, now time.Time) bool {
	if c.Date != now.Format(DateLayout) {
		return false
	}
	start, err := c.StartAt(now.Location())
	if err != nil {
		return false
	}
	return start.Before(now)
}

// isPastDay истинно для дней строго раньше сегодняшнего
func isPastDay(c Reservation, now time.Time) bool {
	return c.Date < now.Format(DateLayout)
}

// CheckCandidate сначала проверяет прошлое, затем ищет первое пересечение
// в existing. Бронь с тем же ID, что у кандидата, пропускается.
func CheckCandidate(c Reservation, existing []Reservation, now time.Time) ValidationResult {
	if isPastDay(c, now) || IsInPast(c, now) {
		return ValidationResult{Kind: PastSlot}
	}
	for i := range existing {
		if c.ID != "" && existing[i].ID == c.ID {
			continue
		}
		if Overlaps(c, existing[i]) {
			conflict := existing[i]
			return ValidationResult{Kind: Overlap, Conflict: &conflict}
		}
	}
	return ValidationResult{Kind: Ok}
}
