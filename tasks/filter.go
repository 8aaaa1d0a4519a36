package tasks

import (
	"sort"
	"strings"
	"time"

	"stationdesk/access"
	"stationdesk/models"
	"stationdesk/status"
)

// Query narrows a task list. Empty fields and "ALL" match everything.
type Query struct {
	Station models.StationCode
	Status  models.TaskStatus
	Month   string // YYYY-MM, matched against the deadline's calendar date
	Search  string // case-insensitive over item name and UID
}

// View is a task as shown to a viewer: derived status and a normalized deadline date.
type View struct {
	models.Task
	EffectiveStatus models.TaskStatus `json:"effectiveStatus"`
	DeadlineDate    string            `json:"deadlineDate"`
}

// NewView derives the display fields of t at now.
func NewView(t models.Task, now time.Time) View {
	return View{
		Task:            t,
		EffectiveStatus: status.Effective(t, now),
		DeadlineDate:    status.FormatDeadline(t.Deadline, now.Location()),
	}
}

// Views derives display fields for every task.
func Views(tasks []models.Task, now time.Time) []View {
	out := make([]View, len(tasks))
	for i, t := range tasks {
		out[i] = NewView(t, now)
	}
	return out
}

func matchAll(v string) bool {
	return v == "" || v == models.AllStations
}

// Filter returns the accessible tasks matching q, evaluated at now.
// The status filter compares effective status, so OVERDUE matches tasks that became overdue by time.
func Filter(tasks []models.Task, scope access.Scope, now time.Time, q Query) []View {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := []View{}
	for _, t := range tasks {
		if !scope.CanAccess(t.StationCode) {
			continue
		}
		if !matchAll(string(q.Station)) && t.StationCode != q.Station {
			continue
		}
		v := NewView(t, now)
		if !matchAll(string(q.Status)) && v.EffectiveStatus != q.Status {
			continue
		}
		if q.Month != "" && !strings.HasPrefix(v.DeadlineDate, q.Month) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.ItemName), search) &&
			!strings.Contains(strings.ToLower(t.UID), search) {
			continue
		}
		out = append(out, v)
	}
	return out
}

var urgency = map[models.TaskStatus]int{
	models.TaskOverdue:    1,
	models.TaskInProgress: 2,
	models.TaskPending:    3,
	models.TaskCompleted:  4,
}

// SortByUrgency orders views overdue first, then in progress, pending and completed,
// each group by deadline ascending. Unparseable deadlines sink to the end of their group.
func SortByUrgency(views []View, now time.Time) {
	loc := now.Location()
	sort.SliceStable(views, func(i, j int) bool {
		pi, pj := rank(views[i].EffectiveStatus), rank(views[j].EffectiveStatus)
		if pi != pj {
			return pi < pj
		}
		ei, oki := status.EndOfDay(views[i].Deadline, loc)
		ej, okj := status.EndOfDay(views[j].Deadline, loc)
		switch {
		case oki && okj:
			return ei.Before(ej)
		case oki:
			return true
		default:
			return false
		}
	})
}

func rank(s models.TaskStatus) int {
	if r, ok := urgency[s]; ok {
		return r
	}
	return 99
}
