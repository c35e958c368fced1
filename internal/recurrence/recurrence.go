// Package recurrence computes the next date of a recurring todo and writes
// the next instance into the daily note.
package recurrence

import (
	"strings"
	"time"

	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/parser"
)

// DateLayout is the ISO date format used for due dates and daily note names.
const DateLayout = "2006-01-02"

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// NextOccurrence returns the date after today on which pattern fires.
// Patterns are daily, weekly, monthly or a weekday name, case-insensitive.
// ok is false for anything else.
func NextOccurrence(pattern string, today time.Time) (next time.Time, ok bool) {
	y, m, d := today.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, today.Location())

	switch p := strings.ToLower(strings.TrimSpace(pattern)); p {
	case "daily":
		return day.AddDate(0, 0, 1), true
	case "weekly":
		return day.AddDate(0, 0, 7), true
	case "monthly":
		// Days past the 28th may not exist next month.
		if d <= 28 {
			return time.Date(y, m+1, d, 0, 0, 0, 0, today.Location()), true
		}
		return day.AddDate(0, 0, 30), true
	default:
		wd, known := weekdays[p]
		if !known {
			return time.Time{}, false
		}
		delta := (int(wd) - int(day.Weekday()) + 7) % 7
		if delta == 0 {
			delta = 7
		}
		return day.AddDate(0, 0, delta), true
	}
}

// RenderInstance builds the checkbox line for the next instance of todo.
// The priority is kept, old due tokens are dropped and next, when set,
// becomes the new due date.
func RenderInstance(todo models.Todo, next *time.Time) string {
	line := "- [ ] " + todo.Content
	if todo.Priority != "" && !parser.HasPriorityToken(todo.Content) {
		line += " !" + string(todo.Priority)
	}
	if next != nil {
		line = parser.StripDueTokens(line) + " @due(" + next.Format(DateLayout) + ")"
	}
	return line
}
