package checklist

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"stationdesk/access"
	"stationdesk/models"
	"stationdesk/stations"
)

var yearMonthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidYearMonth reports whether s is a YYYY-MM month.
func ValidYearMonth(s string) bool {
	return yearMonthPattern.MatchString(s)
}

// Answer is the inspector's response for one template item.
type Answer struct {
	ItemID   string             `json:"itemId" validate:"required"`
	Status   models.CheckStatus `json:"status" validate:"required,oneof=OK ISSUE NA"`
	Note     string             `json:"note,omitempty"`
	PhotoURL string             `json:"photoUrl,omitempty"`
	File     *models.FileUpload `json:"file,omitempty"`
}

// Draft is a checklist as filled in, before it becomes a submission.
type Draft struct {
	StationCode models.StationCode `json:"stationCode" validate:"required"`
	YearMonth   string             `json:"yearMonth" validate:"required"`
	Answers     []Answer           `json:"results" validate:"dive"`
}

// ValidationError lists every problem found in a draft.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid checklist: " + strings.Join(e.Problems, "; ")
}

// Build turns a draft into a submission against the live template.
// Every template item must be answered, ISSUE answers need a note, and the station must be
// known and inside the submitter's scope. Results copy category and content from the template
// so later template edits never rewrite this submission.
func Build(d Draft, template []models.ChecklistItem, submitter string, scope access.Scope, now time.Time) (models.ChecklistSubmission, error) {
	var problems []string

	station, known := stations.Lookup(d.StationCode)
	switch {
	case !known:
		problems = append(problems, fmt.Sprintf("unknown station %q", d.StationCode))
	case !scope.CanAccess(d.StationCode):
		problems = append(problems, fmt.Sprintf("station %s is not assigned to %s", d.StationCode, submitter))
	}
	if !ValidYearMonth(d.YearMonth) {
		problems = append(problems, fmt.Sprintf("month %q is not YYYY-MM", d.YearMonth))
	}

	answers := make(map[string]Answer, len(d.Answers))
	for _, a := range d.Answers {
		answers[a.ItemID] = a
	}

	results := make([]models.CheckResult, 0, len(template))
	for _, item := range template {
		a, ok := answers[item.ID]
		if !ok {
			problems = append(problems, fmt.Sprintf("item %q has no answer", item.Content))
			continue
		}
		if !a.Status.Valid() {
			problems = append(problems, fmt.Sprintf("item %q has invalid status %q", item.Content, a.Status))
			continue
		}
		if a.Status == models.CheckIssue && strings.TrimSpace(a.Note) == "" {
			problems = append(problems, fmt.Sprintf("item %q is marked ISSUE without a note", item.Content))
			continue
		}
		results = append(results, models.CheckResult{
			ItemID:   item.ID,
			Category: item.Category,
			Content:  item.Content,
			Status:   a.Status,
			Note:     strings.TrimSpace(a.Note),
			PhotoURL: a.PhotoURL,
		})
	}

	if len(problems) > 0 {
		return models.ChecklistSubmission{}, &ValidationError{Problems: problems}
	}

	return models.ChecklistSubmission{
		StationCode:    station.Code,
		StationName:    station.Name,
		YearMonth:      d.YearMonth,
		SubmittedBy:    submitter,
		SubmittedAt:    now.Format(time.RFC3339),
		ResolvedAlerts: []string{},
		Results:        results,
	}, nil
}

// Files collects the photo uploads of a draft keyed by item id.
func Files(d Draft) map[string]*models.FileUpload {
	out := map[string]*models.FileUpload{}
	for _, a := range d.Answers {
		if a.File != nil {
			out[a.ItemID] = a.File
		}
	}
	return out
}
