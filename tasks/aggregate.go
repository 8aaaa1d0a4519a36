// Package tasks computes the dashboard views over a task collection.
package tasks

import (
	"math"
	"time"

	"stationdesk/access"
	"stationdesk/models"
	"stationdesk/stations"
	"stationdesk/status"
)

// Counts holds the four effective-status buckets.
type Counts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
	Overdue    int `json:"overdue"`
	Rate       int `json:"rate"`
}

func (c *Counts) add(s models.TaskStatus) {
	switch s {
	case models.TaskPending:
		c.Pending++
	case models.TaskInProgress:
		c.InProgress++
	case models.TaskCompleted:
		c.Completed++
	case models.TaskOverdue:
		c.Overdue++
	default:
		return
	}
	c.Total++
}

func (c *Counts) finish() {
	c.Rate = CompletionRate(c.Completed, c.Total)
}

// StationStat is the per-station card of the dashboard.
type StationStat struct {
	StationCode models.StationCode `json:"stationCode"`
	StationName string             `json:"stationName"`
	Counts
}

// Summary is the dashboard for one viewer.
type Summary struct {
	PerStation []StationStat `json:"perStation"`
	Global     Counts        `json:"global"`
}

// CompletionRate is round(completed/total*100), or 0 for an empty set.
func CompletionRate(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// Aggregate builds the dashboard over the tasks the scope covers.
// Every known station gets a card; stations outside the scope stay at zero.
// Global figures are recomputed from the accessible tasks, never summed from station rates.
func Aggregate(tasks []models.Task, scope access.Scope, now time.Time) Summary {
	visible := access.FilterTasks(scope, tasks)

	all := stations.All()
	perStation := make([]StationStat, len(all))
	byStation := make(map[models.StationCode]*StationStat, len(all))
	for i, st := range all {
		perStation[i] = StationStat{StationCode: st.Code, StationName: st.Name}
	}
	for i := range perStation {
		byStation[perStation[i].StationCode] = &perStation[i]
	}

	var global Counts
	for _, t := range visible {
		eff := status.Effective(t, now)
		global.add(eff)
		if stat, ok := byStation[t.StationCode]; ok {
			stat.add(eff)
		}
	}

	for i := range perStation {
		perStation[i].finish()
	}
	global.finish()

	return Summary{PerStation: perStation, Global: global}
}
