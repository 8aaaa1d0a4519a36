package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"stationdesk/access"
	"stationdesk/audit"
	"stationdesk/checklist"
	"stationdesk/models"
	"stationdesk/report"
	"stationdesk/session"
	"stationdesk/stations"
	"stationdesk/store"
	"stationdesk/tasks"
)

type TaskHandler struct {
	backend   store.Backend
	sessions  *session.Registry
	audit     *audit.Logger
	now       Clock
	threshold int
}

func NewTaskHandler(backend store.Backend, sessions *session.Registry, auditLog *audit.Logger, now Clock, thresholdDays int) *TaskHandler {
	return &TaskHandler{
		backend:   backend,
		sessions:  sessions,
		audit:     auditLog,
		now:       now,
		threshold: thresholdDays,
	}
}

type DashboardResponse struct {
	tasks.Summary
	Stations []models.Station `json:"stations"`
}

// Dashboard returns per-station and global completion figures for the viewer
func (h *TaskHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	user, ok := viewer(w, r)
	if !ok {
		return
	}

	all, err := h.backend.Tasks(r.Context())
	if err != nil {
		backendError(w, "tasks", err)
		return
	}

	scope := access.ScopeFor(user)
	writeJSON(w, DashboardResponse{
		Summary:  tasks.Aggregate(all, scope, h.now()),
		Stations: scope.Stations(),
	})
}

type TaskListResponse struct {
	Tasks []tasks.View `json:"tasks"`
	Count int          `json:"count"`
}

// parseQuery reads station, status, month and q. It reports false after writing a 400.
func parseQuery(w http.ResponseWriter, r *http.Request) (tasks.Query, bool) {
	q := r.URL.Query()
	query := tasks.Query{
		Station: models.StationCode(strings.ToUpper(q.Get("station"))),
		Status:  models.TaskStatus(strings.ToUpper(q.Get("status"))),
		Month:   q.Get("month"),
		Search:  q.Get("q"),
	}
	if query.Station != "" && query.Station != models.AllStations && !stations.IsKnown(query.Station) {
		writeError(w, "Unknown station", http.StatusBadRequest)
		return query, false
	}
	if query.Status != "" && query.Status != models.AllStations && !query.Status.Valid() {
		writeError(w, "Unknown status", http.StatusBadRequest)
		return query, false
	}
	if query.Month != "" && !checklist.ValidYearMonth(query.Month) {
		writeError(w, "Month must be YYYY-MM", http.StatusBadRequest)
		return query, false
	}
	return query, true
}

// List returns the viewer's tasks matching the query, with effective status
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	user, ok := viewer(w, r)
	if !ok {
		return
	}
	query, ok := parseQuery(w, r)
	if !ok {
		return
	}

	all, err := h.backend.Tasks(r.Context())
	if err != nil {
		backendError(w, "tasks", err)
		return
	}

	views := tasks.Filter(all, access.ScopeFor(user), h.now(), query)
	writeJSON(w, TaskListResponse{Tasks: views, Count: len(views)})
}

// History returns one station's tasks, most urgent first
func (h *TaskHandler) History(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	user, ok := viewer(w, r)
	if !ok {
		return
	}
	code := models.StationCode(strings.ToUpper(r.URL.Query().Get("station")))
	if !stations.IsKnown(code) {
		writeError(w, "Unknown station", http.StatusBadRequest)
		return
	}

	all, err := h.backend.Tasks(r.Context())
	if err != nil {
		backendError(w, "tasks", err)
		return
	}

	now := h.now()
	views := tasks.Filter(all, access.ScopeFor(user), now, tasks.Query{Station: code})
	tasks.SortByUrgency(views, now)
	writeJSON(w, TaskListResponse{Tasks: views, Count: len(views)})
}

type DueSoonResponse struct {
	Fired bool         `json:"fired"`
	Tasks []tasks.View `json:"tasks"`
}

// DueSoon returns the due-soon notice once per login session
func (h *TaskHandler) DueSoon(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	user, ok := viewer(w, r)
	if !ok {
		return
	}

	all, err := h.backend.Tasks(r.Context())
	if err != nil {
		backendError(w, "tasks", err)
		return
	}

	now := h.now()
	due, fired := h.sessions.DueSoon(sessionID(r), all, access.ScopeFor(user), now, h.threshold)
	writeJSON(w, DueSoonResponse{Fired: fired, Tasks: tasks.Views(due, now)})
}

// findTask returns the task with uid if the viewer may see it.
func (h *TaskHandler) findTask(w http.ResponseWriter, r *http.Request, user *models.User, uid string) (models.Task, bool) {
	all, err := h.backend.Tasks(r.Context())
	if err != nil {
		backendError(w, "tasks", err)
		return models.Task{}, false
	}
	scope := access.ScopeFor(user)
	for _, t := range all {
		if t.UID == uid && scope.CanAccess(t.StationCode) {
			return t, true
		}
	}
	writeError(w, "Task not found", http.StatusNotFound)
	return models.Task{}, false
}

// Logs returns the audit trail of one task, newest first
func (h *TaskHandler) Logs(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	user, ok := viewer(w, r)
	if !ok {
		return
	}
	uid := r.URL.Query().Get("uid")
	if uid == "" {
		writeError(w, "Task UID is required", http.StatusBadRequest)
		return
	}
	if _, ok := h.findTask(w, r, user, uid); !ok {
		return
	}

	logs, err := h.backend.TaskLogs(r.Context(), uid)
	if err != nil {
		backendError(w, "task logs", err)
		return
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	writeJSON(w, map[string]interface{}{
		"logs":  logs,
		"count": len(logs),
	})
}

// Update records a progress report on a task the viewer can access
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	user, ok := viewer(w, r)
	if !ok {
		return
	}

	var req models.TaskUpdate
	if !decode(w, r, &req) {
		return
	}
	current, ok := h.findTask(w, r, user, req.UID)
	if !ok {
		return
	}

	updated, err := h.backend.UpdateTask(r.Context(), user.Email, req)
	if err != nil {
		backendError(w, "task", err)
		return
	}

	h.audit.Record(r.Context(), user.Email, models.ActionUpdateStatus, req.UID,
		fmt.Sprintf("%s: %s -> %s", current.ItemName, current.Status, updated.Status))
	if req.File != nil {
		h.audit.Record(r.Context(), user.Email, models.ActionUploadFile, req.UID, req.File.Name)
	}
	log.Printf("✅ Task %s updated by %s (%s)", req.UID, user.Email, updated.Status)

	writeJSON(w, tasks.NewView(updated, h.now()))
}

// Export streams the viewer's filtered tasks as an xlsx workbook
func (h *TaskHandler) Export(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	user, ok := viewer(w, r)
	if !ok {
		return
	}
	query, ok := parseQuery(w, r)
	if !ok {
		return
	}

	all, err := h.backend.Tasks(r.Context())
	if err != nil {
		backendError(w, "tasks", err)
		return
	}

	now := h.now()
	scope := access.ScopeFor(user)
	views := tasks.Filter(all, scope, now, query)
	tasks.SortByUrgency(views, now)

	filename := fmt.Sprintf("tasks_%s.xlsx", now.Format("2006-01-02_15-04-05"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	if err := report.WriteTasks(w, views, tasks.Aggregate(all, scope, now), now); err != nil {
		log.Printf("❌ Failed to write task export: %v", err)
		return
	}

	log.Printf("📊 Task export by %s: %d tasks", user.Email, len(views))
}

// Attachment serves a file kept by the backend itself
func (h *TaskHandler) Attachment(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	user, ok := viewer(w, r)
	if !ok {
		return
	}
	files, ok := h.backend.(store.Attachments)
	if !ok {
		writeError(w, "Attachments are stored externally", http.StatusNotFound)
		return
	}

	a, err := files.Attachment(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		backendError(w, "attachment", err)
		return
	}
	if a.TaskUID != "" {
		if _, ok := h.findTask(w, r, user, a.TaskUID); !ok {
			return
		}
	}
	data, err := store.DecodeFile(&models.FileUpload{Name: a.Name, Type: a.Type, Content: a.Content})
	if err != nil {
		log.Printf("❌ Stored attachment %s is corrupt: %v", a.ID, err)
		writeError(w, "Attachment is unreadable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", a.Type)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", a.Name))
	w.Write(data)
}
