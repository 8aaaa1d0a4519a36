// Package checklist scores monthly inspection submissions and builds their trend series.
package checklist

import (
	"sort"

	"stationdesk/access"
	"stationdesk/models"
	"stationdesk/stations"
)

// Score is +1 per OK, -1 per ISSUE and 0 per NA. It has no fixed bound.
func Score(sub models.ChecklistSubmission) int {
	score := 0
	for _, r := range sub.Results {
		switch r.Status {
		case models.CheckOK:
			score++
		case models.CheckIssue:
			score--
		}
	}
	return score
}

// Issues returns the results answered ISSUE, in submission order.
func Issues(sub models.ChecklistSubmission) []models.CheckResult {
	var out []models.CheckResult
	for _, r := range sub.Results {
		if r.Status == models.CheckIssue {
			out = append(out, r)
		}
	}
	return out
}

// SeriesPoint is one month of the trend chart, keyed by station name.
// Stations without a submission that month are absent, not zero.
type SeriesPoint struct {
	Month  string         `json:"month"`
	Scores map[string]int `json:"scores"`
}

// Series is the month-over-month score chart.
type Series struct {
	Months   []string      `json:"months"`
	Stations []string      `json:"stations"`
	Points   []SeriesPoint `json:"points"`
}

// BuildSeries scores the accessible submissions, optionally narrowed to one station.
// It ignores any month filter: the trend always spans every month present.
func BuildSeries(subs []models.ChecklistSubmission, scope access.Scope, stationFilter models.StationCode) Series {
	var picked []models.ChecklistSubmission
	for _, sub := range access.FilterSubmissions(scope, subs) {
		if !matchStation(stationFilter, sub.StationCode) {
			continue
		}
		picked = append(picked, sub)
	}

	monthSet := map[string]struct{}{}
	var codes []models.StationCode
	seenCode := map[models.StationCode]bool{}
	for _, sub := range picked {
		monthSet[sub.YearMonth] = struct{}{}
		if !seenCode[sub.StationCode] {
			seenCode[sub.StationCode] = true
			codes = append(codes, sub.StationCode)
		}
	}
	months := make([]string, 0, len(monthSet))
	for m := range monthSet {
		months = append(months, m)
	}
	sort.Strings(months)

	names := make([]string, len(codes))
	for i, c := range codes {
		names[i] = stations.NameOf(c)
	}

	points := make([]SeriesPoint, len(months))
	index := make(map[string]int, len(months))
	for i, m := range months {
		points[i] = SeriesPoint{Month: m, Scores: map[string]int{}}
		index[m] = i
	}
	for _, sub := range picked {
		p := &points[index[sub.YearMonth]]
		name := stations.NameOf(sub.StationCode)
		// first submission for a (month, station) pair wins, as the chart shows one bar per pair
		if _, dup := p.Scores[name]; dup {
			continue
		}
		p.Scores[name] = Score(sub)
	}

	return Series{Months: months, Stations: names, Points: points}
}

// Filter returns the accessible submissions matching an optional station and month.
func Filter(subs []models.ChecklistSubmission, scope access.Scope, stationFilter models.StationCode, month string) []models.ChecklistSubmission {
	out := []models.ChecklistSubmission{}
	for _, sub := range access.FilterSubmissions(scope, subs) {
		if !matchStation(stationFilter, sub.StationCode) {
			continue
		}
		if month != "" && sub.YearMonth != month {
			continue
		}
		out = append(out, sub)
	}
	return out
}

func matchStation(filter, code models.StationCode) bool {
	return filter == "" || filter == models.AllStations || filter == code
}
