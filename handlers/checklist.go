package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"stationdesk/access"
	"stationdesk/alerts"
	"stationdesk/audit"
	"stationdesk/checklist"
	"stationdesk/models"
	"stationdesk/stations"
	"stationdesk/store"
)

type ChecklistHandler struct {
	backend store.Backend
	audit   *audit.Logger
	now     Clock
}

func NewChecklistHandler(backend store.Backend, auditLog *audit.Logger, now Clock) *ChecklistHandler {
	return &ChecklistHandler{
		backend: backend,
		audit:   auditLog,
		now:     now,
	}
}

// stationParam reads an optional ?station= filter. It reports false after writing a 400.
func stationParam(w http.ResponseWriter, r *http.Request) (models.StationCode, bool) {
	code := models.StationCode(strings.ToUpper(r.URL.Query().Get("station")))
	if code != "" && code != models.AllStations && !stations.IsKnown(code) {
		writeError(w, "Unknown station", http.StatusBadRequest)
		return code, false
	}
	return code, true
}

// Submissions lists the viewer's checklist submissions, optionally by station and month
func (h *ChecklistHandler) Submissions(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	user, ok := viewer(w, r)
	if !ok {
		return
	}
	code, ok := stationParam(w, r)
	if !ok {
		return
	}
	month := r.URL.Query().Get("month")
	if month != "" && !checklist.ValidYearMonth(month) {
		writeError(w, "Month must be YYYY-MM", http.StatusBadRequest)
		return
	}

	subs, err := h.backend.Submissions(r.Context())
	if err != nil {
		backendError(w, "submissions", err)
		return
	}

	picked := checklist.Filter(subs, access.ScopeFor(user), code, month)
	type row struct {
		models.ChecklistSubmission
		Score int `json:"score"`
	}
	rows := make([]row, len(picked))
	for i, sub := range picked {
		rows[i] = row{ChecklistSubmission: sub, Score: checklist.Score(sub)}
	}
	writeJSON(w, map[string]interface{}{
		"submissions": rows,
		"count":       len(rows),
	})
}

// Series returns the monthly score trend. Any month filter is ignored.
func (h *ChecklistHandler) Series(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	user, ok := viewer(w, r)
	if !ok {
		return
	}
	code, ok := stationParam(w, r)
	if !ok {
		return
	}

	subs, err := h.backend.Submissions(r.Context())
	if err != nil {
		backendError(w, "submissions", err)
		return
	}

	writeJSON(w, checklist.BuildSeries(subs, access.ScopeFor(user), code))
}

type TemplateResponse struct {
	Items  []models.ChecklistItem    `json:"items"`
	Groups []checklist.CategoryGroup `json:"groups"`
}

func (h *ChecklistHandler) Template(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	if _, ok := viewer(w, r); !ok {
		return
	}

	items, err := h.backend.Template(r.Context())
	if err != nil {
		backendError(w, "template", err)
		return
	}
	if items == nil {
		items = []models.ChecklistItem{}
	}
	writeJSON(w, TemplateResponse{Items: items, Groups: checklist.GroupByCategory(items)})
}

type SaveTemplateRequest struct {
	Items []models.ChecklistItem `json:"items" validate:"required,min=1,dive"`
}

// SaveTemplate replaces the live checklist template
func (h *ChecklistHandler) SaveTemplate(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	user, ok := viewer(w, r)
	if !ok {
		return
	}

	var req SaveTemplateRequest
	if !decode(w, r, &req) {
		return
	}
	seen := map[string]bool{}
	for i := range req.Items {
		item := &req.Items[i]
		item.Content = strings.TrimSpace(item.Content)
		item.Category = strings.TrimSpace(item.Category)
		if item.ID == "" {
			item.ID = "item-" + uuid.NewString()[:8]
		}
		if item.Content == "" {
			writeError(w, fmt.Sprintf("Item %d has no content", i+1), http.StatusBadRequest)
			return
		}
		if seen[item.ID] {
			writeError(w, fmt.Sprintf("Duplicate item id %s", item.ID), http.StatusBadRequest)
			return
		}
		seen[item.ID] = true
	}

	if err := h.backend.SaveTemplate(r.Context(), req.Items); err != nil {
		backendError(w, "template", err)
		return
	}

	h.audit.Record(r.Context(), user.Email, models.ActionUpdateTemplate, "",
		fmt.Sprintf("%d items", len(req.Items)))
	log.Printf("✅ Checklist template saved by %s (%d items)", user.Email, len(req.Items))

	writeJSON(w, TemplateResponse{Items: req.Items, Groups: checklist.GroupByCategory(req.Items)})
}

// Submit validates a filled checklist against the live template and stores it
func (h *ChecklistHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	user, ok := viewer(w, r)
	if !ok {
		return
	}

	var draft checklist.Draft
	if !decode(w, r, &draft) {
		return
	}
	draft.StationCode = models.StationCode(strings.ToUpper(string(draft.StationCode)))

	template, err := h.backend.Template(r.Context())
	if err != nil {
		backendError(w, "template", err)
		return
	}

	sub, err := checklist.Build(draft, template, user.Email, access.ScopeFor(user), h.now())
	if err != nil {
		var verr *checklist.ValidationError
		if errors.As(err, &verr) {
			writeJSON400(w, verr)
			return
		}
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	sub.ID = "chk-" + uuid.NewString()

	if err := h.backend.SubmitChecklist(r.Context(), sub, checklist.Files(draft)); err != nil {
		backendError(w, "submission", err)
		return
	}

	h.audit.Record(r.Context(), user.Email, models.ActionSubmitChecklist, "",
		fmt.Sprintf("%s %s score %d", sub.StationName, sub.YearMonth, checklist.Score(sub)))
	log.Printf("✅ Checklist %s submitted by %s for %s %s", sub.ID, user.Email, sub.StationCode, sub.YearMonth)

	writeJSONStatus(w, http.StatusCreated, sub)
}

func writeJSON400(w http.ResponseWriter, verr *checklist.ValidationError) {
	writeJSONStatus(w, http.StatusBadRequest, map[string]interface{}{
		"error":    "Invalid checklist",
		"problems": verr.Problems,
	})
}

type AlertsResponse struct {
	Alerts     []alerts.Alert `json:"alerts"`
	Unresolved int            `json:"unresolved"`
	CanResolve bool           `json:"canResolve"`
}

func (h *ChecklistHandler) alertsFor(r *http.Request, user *models.User, subs []models.ChecklistSubmission) (AlertsResponse, error) {
	template, err := h.backend.Template(r.Context())
	if err != nil {
		return AlertsResponse{}, err
	}
	list := alerts.Derive(subs, access.ScopeFor(user), template)
	return AlertsResponse{
		Alerts:     list,
		Unresolved: alerts.Unresolved(list),
		CanResolve: alerts.CanResolve(user.Role),
	}, nil
}

// Alerts derives the viewer's abnormality alerts from every accessible submission
func (h *ChecklistHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	user, ok := viewer(w, r)
	if !ok {
		return
	}

	subs, err := h.backend.Submissions(r.Context())
	if err != nil {
		backendError(w, "submissions", err)
		return
	}
	resp, err := h.alertsFor(r, user, subs)
	if err != nil {
		backendError(w, "template", err)
		return
	}
	writeJSON(w, resp)
}

type ResolveAlertRequest struct {
	SubmissionID string `json:"submissionId" validate:"required"`
	AlertID      string `json:"alertId" validate:"required"`
}

type ResolveAlertResponse struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
	AlertsResponse
}

// ResolveAlert marks an alert handled. On a backend rejection the response carries the
// refetched alerts so the client drops its optimistic mark.
func (h *ChecklistHandler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	user, ok := viewer(w, r)
	if !ok {
		return
	}
	if !alerts.CanResolve(user.Role) {
		writeError(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	var req ResolveAlertRequest
	if !decode(w, r, &req) {
		return
	}

	subs, err := h.backend.Submissions(r.Context())
	if err != nil {
		backendError(w, "submissions", err)
		return
	}
	scope := access.ScopeFor(user)
	tracker := alerts.NewTracker(h.backend, access.FilterSubmissions(scope, subs))

	state, rerr := tracker.Resolve(r.Context(), req.SubmissionID, req.AlertID)
	switch {
	case errors.Is(rerr, alerts.ErrSubmissionNotFound):
		writeError(w, "Submission not found", http.StatusNotFound)
		return
	case errors.Is(rerr, alerts.ErrAlertMismatch):
		writeError(w, "Alert does not belong to submission", http.StatusBadRequest)
		return
	case rerr != nil && state == alerts.StatePending:
		backendError(w, "alert", rerr)
		return
	}

	resp, err := h.alertsFor(r, user, tracker.Submissions())
	if err != nil {
		backendError(w, "template", err)
		return
	}
	out := ResolveAlertResponse{State: state.String(), AlertsResponse: resp}

	if rerr != nil {
		log.Printf("⚠️  Resolve of %s rejected, alerts refetched: %v", req.AlertID, rerr)
		out.Error = "Resolve was rejected; alerts reloaded"
		writeJSONStatus(w, http.StatusBadGateway, out)
		return
	}

	h.audit.Record(r.Context(), user.Email, models.ActionResolveAlert, "", req.AlertID)
	writeJSON(w, out)
}
