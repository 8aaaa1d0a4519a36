// Package alerts derives abnormality alerts from checklist submissions and tracks their resolution.
//
// An alert exists for every submission with at least one ISSUE answer. Its identity is
// stationCode-yearMonth, so re-deriving from the same submissions always yields the same ids, and
// the resolution flag, stored on the owning submission, survives reloads.
package alerts

import (
	"sort"

	"stationdesk/access"
	"stationdesk/checklist"
	"stationdesk/models"
)

// Alert is a derived, unpersisted view of one submission's issues.
type Alert struct {
	ID           string             `json:"id"`
	SubmissionID string             `json:"submissionId"`
	StationCode  models.StationCode `json:"stationCode"`
	StationName  string             `json:"stationName"`
	Month        string             `json:"month"`
	Items        []string           `json:"items"`
	IsResolved   bool               `json:"isResolved"`
}

// ID returns the alert identity of a submission.
func ID(sub models.ChecklistSubmission) string {
	return string(sub.StationCode) + "-" + sub.YearMonth
}

// Derive builds the alerts visible in scope, newest month first, then by station name.
// UI station and month filters deliberately do not apply here.
func Derive(subs []models.ChecklistSubmission, scope access.Scope, template []models.ChecklistItem) []Alert {
	out := []Alert{}
	for _, sub := range access.FilterSubmissions(scope, subs) {
		issues := checklist.Issues(sub)
		if len(issues) == 0 {
			continue
		}
		items := make([]string, len(issues))
		for i, r := range issues {
			items[i] = checklist.ItemLabel(r, template)
		}
		id := ID(sub)
		out = append(out, Alert{
			ID:           id,
			SubmissionID: sub.ID,
			StationCode:  sub.StationCode,
			StationName:  sub.StationName,
			Month:        sub.YearMonth,
			Items:        items,
			IsResolved:   sub.HasResolved(id),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month > out[j].Month
		}
		return out[i].StationName < out[j].StationName
	})
	return out
}

// Unresolved counts the alerts not yet marked resolved.
func Unresolved(alerts []Alert) int {
	n := 0
	for _, a := range alerts {
		if !a.IsResolved {
			n++
		}
	}
	return n
}

// CanResolve reports whether role may mark alerts resolved.
func CanResolve(role models.UserRole) bool {
	return role == models.RoleAdmin || role == models.RoleManager3D
}
