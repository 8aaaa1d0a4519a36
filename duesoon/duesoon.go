// Package duesoon flags tasks whose deadline is close or already past.
package duesoon

import (
	"sort"
	"time"

	"stationdesk/access"
	"stationdesk/models"
	"stationdesk/status"
)

// Evaluate returns the accessible, not completed tasks due within thresholdDays of now.
// Overdue tasks are included since their distance is negative, so a threshold of 0 yields
// only overdue tasks. Tasks with an unreadable deadline are skipped. The result is ordered by deadline.
func Evaluate(tasks []models.Task, scope access.Scope, now time.Time, thresholdDays int) []models.Task {
	type due struct {
		task models.Task
		days float64
	}
	var hits []due
	for _, t := range access.FilterTasks(scope, tasks) {
		if t.Status == models.TaskCompleted {
			continue
		}
		days, ok := status.DaysUntil(t.Deadline, now)
		if !ok || days > float64(thresholdDays) {
			continue
		}
		hits = append(hits, due{t, days})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].days < hits[j].days })

	out := make([]models.Task, len(hits))
	for i, h := range hits {
		out[i] = h.task
	}
	return out
}

// State is the progress of a session's due-soon notice.
type State int

const (
	Pending State = iota
	Fired
)

func (s State) String() string {
	if s == Fired {
		return "fired"
	}
	return "pending"
}

// Gate lets the due-soon notice fire at most once. The zero value is Pending.
// A fresh Gate belongs to every new login; it is never reset.
type Gate struct {
	State State
}

// Check evaluates tasks the first time the viewer can see any of them and moves the gate to Fired,
// whether or not anything matched. Later calls return nothing. The bool reports whether the
// caller should raise the notice.
func (g *Gate) Check(tasks []models.Task, scope access.Scope, now time.Time, thresholdDays int) ([]models.Task, bool) {
	if g.State == Fired {
		return nil, false
	}
	visible := access.FilterTasks(scope, tasks)
	if len(visible) == 0 {
		return nil, false
	}
	g.State = Fired
	due := Evaluate(visible, scope, now, thresholdDays)
	return due, len(due) > 0
}
