// Package status derives the effective status of a task at read time.
//
// A task's stored status goes stale as soon as its deadline passes, so the displayed status is always
// computed from the stored status, the deadline's calendar date and the current time. The calendar
// used is the location of the "now" value passed in.
package status

import (
	"log"
	"strings"
	"time"

	"stationdesk/models"
)

// Day is the length of one calendar day used for deadline distances.
const Day = 24 * time.Hour

// Formats accepted for task deadlines. Layouts without a zone are read in the caller's location.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
}

var localLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006/1/2",
	"2006-1-2",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
}

// CalendarDate returns the calendar date of deadline in loc.
// Timestamps carrying a zone are converted to loc first.
func CalendarDate(deadline string, loc *time.Location) (year int, month time.Month, day int, ok bool) {
	deadline = strings.TrimSpace(deadline)
	if deadline == "" {
		return 0, 0, 0, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, deadline); err == nil {
			y, m, d := t.In(loc).Date()
			return y, m, d, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, deadline, loc); err == nil {
			y, m, d := t.Date()
			return y, m, d, true
		}
	}
	return 0, 0, 0, false
}

// EndOfDay returns 23:59:59.999 of the deadline's calendar date in loc.
func EndOfDay(deadline string, loc *time.Location) (time.Time, bool) {
	y, m, d, ok := CalendarDate(deadline, loc)
	if !ok {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), loc), true
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Effective returns the status a task should be displayed, filtered and counted with at now.
// COMPLETED is terminal. Otherwise a task is OVERDUE once now is past the end of its deadline day.
// An unparseable deadline never makes a task overdue, and an unknown stored status reads as PENDING.
func Effective(task models.Task, now time.Time) models.TaskStatus {
	if task.Status == models.TaskCompleted {
		return models.TaskCompleted
	}
	stored := task.Status
	if !stored.Valid() {
		log.Printf("Warning: task %s has unknown status %q, treating as %s", task.UID, task.Status, models.TaskPending)
		stored = models.TaskPending
	}
	end, ok := EndOfDay(task.Deadline, now.Location())
	if !ok {
		log.Printf("Warning: task %s has invalid deadline %q", task.UID, task.Deadline)
		return stored
	}
	if now.After(end) {
		return models.TaskOverdue
	}
	return stored
}

// IsOverdue reports whether the effective status of task at now is OVERDUE.
func IsOverdue(task models.Task, now time.Time) bool {
	return Effective(task, now) == models.TaskOverdue
}

// DaysUntil returns the distance in days from the start of now's day to the end of the deadline day.
// It is negative once the deadline day is over.
func DaysUntil(deadline string, now time.Time) (float64, bool) {
	end, ok := EndOfDay(deadline, now.Location())
	if !ok {
		return 0, false
	}
	return float64(end.Sub(StartOfDay(now))) / float64(Day), true
}

// FormatDeadline renders the deadline's calendar date as YYYY-MM-DD in loc.
// The raw string comes back unchanged when it cannot be parsed.
func FormatDeadline(deadline string, loc *time.Location) string {
	y, m, d, ok := CalendarDate(deadline, loc)
	if !ok {
		return deadline
	}
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}
