package scheduler

import (
	"fmt"
	"math"
)

// DefaultResourceName имя ресурса в текстах напоминаний
const DefaultResourceName = "Navatar"

// ReminderMessage текст напоминания по оставшимся минутам
func ReminderMessage(resource string, minutesUntilStart float64) string {
	if resource == "" {
		resource = DefaultResourceName
	}
	n := int(math.Round(minutesUntilStart))
	switch {
	case n <= 0:
		return fmt.Sprintf("Your session with %s started!", resource)
	case n == 1:
		return fmt.Sprintf("Your session with %s starts in 1 minute! Almost time!", resource)
	}
	return fmt.Sprintf("Your session with %s starts in %d minutes! Be Ready!", resource, n)
}
