package remote

import (
	"strings"

	"stationdesk/models"
)

// The sheet stores task status as display labels.
var sheetLabels = map[models.TaskStatus]string{
	models.TaskPending:    "待處理",
	models.TaskInProgress: "執行中",
	models.TaskCompleted:  "已完成",
	models.TaskOverdue:    "逾期",
}

var sheetStatuses = func() map[string]models.TaskStatus {
	m := make(map[string]models.TaskStatus, len(sheetLabels))
	for s, label := range sheetLabels {
		m[label] = s
	}
	return m
}()

// statusFromSheet reads a sheet label, or a status name written by older rows.
// Anything else is returned unchanged and later read as PENDING.
func statusFromSheet(raw string) models.TaskStatus {
	if s, ok := sheetStatuses[raw]; ok {
		return s
	}
	if s := models.TaskStatus(strings.ToUpper(raw)); s.Valid() {
		return s
	}
	return models.TaskStatus(raw)
}

// sheetLabel returns the label the sheet stores for s.
func sheetLabel(s models.TaskStatus) string {
	if label, ok := sheetLabels[s]; ok {
		return label
	}
	return string(s)
}
