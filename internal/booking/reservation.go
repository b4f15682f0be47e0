// Package booking содержит модель бронирования общего ресурса и чистые
// функции проверки доступности окна.
package booking

import (
	"fmt"
	"sort"
	"time"
)

const (
	// DateLayout формат дня бронирования
	DateLayout = "2006-01-02"
	// ClockLayout формат времени суток
	ClockLayout = "15:04"
	// EndOfDay допустим только как время окончания
	EndOfDay = "24:00"

	minutesPerDay = 24 * 60
)

// Reservation представляет бронирование (или кандидата, если ID пустой)
type Reservation struct {
	ID        string    `json:"id,omitempty"`
	OwnerID   string    `json:"ownerId"`
	Date      string    `json:"date"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	CreatedAt time.Time `json:"-"`
}

// ParseClock переводит "HH:MM" в минуты от полуночи. "24:00" дает 1440.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("clock %q: want HH:MM", s)
	}
	h, ok1 := twoDigits(s[0:2])
	m, ok2 := twoDigits(s[3:5])
	if !ok1 || !ok2 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("clock %q: out of range", s)
	}
	return h*60 + m, nil
}

// FormatClock обратна ParseClock
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func twoDigits(s string) (int, bool) {
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

// clock возвращает минуты или -1 для некорректного значения
func clock(s string) int {
	m, err := ParseClock(s)
	if err != nil {
		return -1
	}
	return m
}

// StartMinutes возвращает начало окна в минутах от полуночи
func (r Reservation) StartMinutes() int { return clock(r.StartTime) }

// EndMinutes возвращает конец окна в минутах от полуночи
func (r Reservation) EndMinutes() int { return clock(r.EndTime) }

// Day разбирает дату бронирования в указанной зоне
func (r Reservation) Day(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout, r.Date, loc)
}

// StartAt возвращает момент начала бронирования
func (r Reservation) StartAt(loc *time.Location) (time.Time, error) {
	return r.at(loc, r.StartTime)
}

// EndAt возвращает момент окончания; "24:00" дает полночь следующего дня
func (r Reservation) EndAt(loc *time.Location) (time.Time, error) {
	return r.at(loc, r.EndTime)
}

func (r Reservation) at(loc *time.Location, hhmm string) (time.Time, error) {
	day, err := r.Day(loc)
	if err != nil {
		return time.Time{}, err
	}
	m, err := ParseClock(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, m, 0, 0, day.Location()), nil
}

// RangeKey идентифицирует окно до присвоения ID
func (r Reservation) RangeKey() string {
	return fmt.Sprintf("slot:%s %s-%s", r.Date, r.StartTime, r.EndTime)
}

// Identity стабильный ключ бронирования для состояния напоминаний
func (r Reservation) Identity() string {
	if r.ID != "" {
		return "id:" + r.ID
	}
	return r.RangeKey()
}

// SameRange сравнивает окна без учета ID и владельца
func (r Reservation) SameRange(o Reservation) bool {
	return r.Date == o.Date && r.StartTime == o.StartTime && r.EndTime == o.EndTime
}

// Ongoing сообщает, идет ли сеанс прямо сейчас
func (r Reservation) Ongoing(now time.Time) bool {
	start, err := r.StartAt(now.Location())
	if err != nil {
		return false
	}
	end, err := r.EndAt(now.Location())
	if err != nil {
		return false
	}
	return !now.Before(start) && now.Before(end)
}

// String для логов
func (r Reservation) String() string {
	if r.ID != "" {
		return fmt.Sprintf("%s %s-%s (%s)", r.Date, r.StartTime, r.EndTime, r.ID)
	}
	return fmt.Sprintf("%s %s-%s", r.Date, r.StartTime, r.EndTime)
}

// Upcoming выбирает бронирования владельца, которые еще не закончились,
// в порядке (date, startTime). Пустой owner означает всех владельцев.
func Upcoming(items []Reservation, owner string, now time.Time) []Reservation {
	out := make([]Reservation, 0, len(items))
	for _, r := range items {
		if owner != "" && r.OwnerID != owner {
			continue
		}
		end, err := r.EndAt(now.Location())
		if err != nil || !end.After(now) {
			continue
		}
		out = append(out, r)
	}
	SortByStart(out)
	return out
}

// SortByStart упорядочивает по (date, startTime), затем по endTime
func SortByStart(items []Reservation) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StartMinutes() != b.StartMinutes() {
			return a.StartMinutes() < b.StartMinutes()
		}
		return a.EndMinutes() < b.EndMinutes()
	})
}

// FormatDate возвращает дату в виде "January 2, 2006" для сообщений
func FormatDate(date string) string {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return d.Format("January 2, 2006")
}
