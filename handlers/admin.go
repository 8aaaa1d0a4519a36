package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"stationdesk/access"
	"stationdesk/audit"
	"stationdesk/auth"
	"stationdesk/models"
	"stationdesk/stations"
	"stationdesk/store"
	"stationdesk/tasks"
)

type AdminHandler struct {
	accounts store.Accounts
	backend  store.Backend
	audit    *audit.Logger
	now      Clock
}

func NewAdminHandler(accounts store.Accounts, backend store.Backend, auditLog *audit.Logger, now Clock) *AdminHandler {
	return &AdminHandler{
		accounts: accounts,
		backend:  backend,
		audit:    auditLog,
		now:      now,
	}
}

// --- User Management ---

type ApproveUserRequest struct {
	Email           string          `json:"email" validate:"required,email"`
	Role            models.UserRole `json:"role" validate:"required,oneof=ADMIN MANAGER_3D MANAGER_DEPT OPERATOR"`
	AssignedStation []string        `json:"assignedStation" validate:"required,min=1"`
}

type ApproveUserResponse struct {
	User     *models.User `json:"user"`
	Password string       `json:"password"`
}

type UpdateUserRequest struct {
	Email           string          `json:"email" validate:"required,email"`
	Role            models.UserRole `json:"role,omitempty" validate:"omitempty,oneof=ADMIN MANAGER_3D MANAGER_DEPT OPERATOR"`
	AssignedStation []string        `json:"assignedStation,omitempty"`
	IsActive        *bool           `json:"isActive,omitempty"`
}

// joinStations validates a station assignment and renders it the way it is stored.
func joinStations(codes []string) (string, error) {
	var out []string
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == models.AllStations {
			return models.AllStations, nil
		}
		if !stations.IsKnown(models.StationCode(c)) {
			return "", fmt.Errorf("unknown station %q", c)
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return "", errors.New("at least one station is required")
	}
	return strings.Join(out, ","), nil
}

// GetUsers returns all users
func (h *AdminHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	users, err := h.accounts.Users(r.Context())
	if err != nil {
		log.Printf("❌ Failed to get users: %v", err)
		writeError(w, "Failed to retrieve users", http.StatusInternalServerError)
		return
	}
	if users == nil {
		users = []models.User{}
	}

	writeJSON(w, users)
}

// ApproveUser activates a pending registration and issues a one-time password
func (h *AdminHandler) ApproveUser(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	adminUser, ok := viewer(w, r)
	if !ok {
		return
	}

	var req ApproveUserRequest
	if !decode(w, r, &req) {
		return
	}
	assigned, err := joinStations(req.AssignedStation)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.accounts.User(r.Context(), store.NormalizeEmail(req.Email))
	if err != nil {
		writeError(w, "User not found", http.StatusNotFound)
		return
	}
	if user.Role != models.RolePending {
		writeError(w, "User is not pending approval", http.StatusConflict)
		return
	}

	password, err := auth.GeneratePassword()
	if err != nil {
		log.Printf("❌ Failed to generate password: %v", err)
		writeError(w, "Failed to generate password", http.StatusInternalServerError)
		return
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		log.Printf("❌ Failed to hash password: %v", err)
		writeError(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}
	if err := h.accounts.StorePasswordHash(r.Context(), user.Email, passwordHash); err != nil {
		log.Printf("❌ Failed to store password: %v", err)
		writeError(w, "Failed to store password", http.StatusInternalServerError)
		return
	}

	user.Role = req.Role
	user.AssignedStation = assigned
	user.IsActive = true
	user.ForceChangePassword = true
	if err := h.accounts.UpdateUser(r.Context(), user); err != nil {
		log.Printf("❌ Failed to update user: %v", err)
		writeError(w, "Failed to update user", http.StatusInternalServerError)
		return
	}

	h.audit.Record(r.Context(), adminUser.Email, models.ActionApproveUser, "",
		fmt.Sprintf("%s as %s (%s)", user.Email, user.Role, assigned))
	log.Printf("✅ User approved by %s: %s (role: %s)", adminUser.Email, user.Email, user.Role)

	writeJSON(w, ApproveUserResponse{User: user, Password: password})
}

// UpdateUser changes role, stations or active flag of an existing user
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPut) {
		return
	}
	adminUser, ok := viewer(w, r)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.accounts.User(r.Context(), store.NormalizeEmail(req.Email))
	if err != nil {
		writeError(w, "User not found", http.StatusNotFound)
		return
	}

	if user.Email == store.NormalizeEmail(adminUser.Email) && req.IsActive != nil && !*req.IsActive {
		writeError(w, "Cannot deactivate your own account", http.StatusBadRequest)
		return
	}

	var changes []string
	if req.Role != "" {
		user.Role = req.Role
		changes = append(changes, "role="+string(req.Role))
	}
	if req.AssignedStation != nil {
		assigned, err := joinStations(req.AssignedStation)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		user.AssignedStation = assigned
		changes = append(changes, "stations="+assigned)
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
		changes = append(changes, fmt.Sprintf("active=%t", *req.IsActive))
	}

	if err := h.accounts.UpdateUser(r.Context(), user); err != nil {
		log.Printf("❌ Failed to update user: %v", err)
		writeError(w, "Failed to update user", http.StatusInternalServerError)
		return
	}

	h.audit.Record(r.Context(), adminUser.Email, models.ActionUpdateUser, "",
		fmt.Sprintf("%s: %s", user.Email, strings.Join(changes, " ")))
	log.Printf("✅ User updated by %s: %s", adminUser.Email, user.Email)

	writeJSON(w, user)
}

// --- Task Management ---

type CreateTaskRequest struct {
	StationCode models.StationCode `json:"stationCode" validate:"required"`
	ItemCode    string             `json:"itemCode"`
	ItemName    string             `json:"itemName" validate:"required"`
	Deadline    string             `json:"deadline" validate:"required,datetime=2006-01-02"`
}

// CreateTask adds a PENDING task to a station
func (h *AdminHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	adminUser, ok := viewer(w, r)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if !decode(w, r, &req) {
		return
	}
	station, known := stations.Lookup(models.StationCode(strings.ToUpper(string(req.StationCode))))
	if !known {
		writeError(w, "Unknown station", http.StatusBadRequest)
		return
	}

	now := h.now()
	task := models.Task{
		UID:         "task-" + uuid.NewString(),
		StationCode: station.Code,
		StationName: station.Name,
		ItemCode:    strings.TrimSpace(req.ItemCode),
		ItemName:    strings.TrimSpace(req.ItemName),
		Deadline:    req.Deadline,
		Status:      models.TaskPending,
		LastUpdated: now.Format(time.RFC3339),
	}
	if err := h.backend.CreateTask(r.Context(), task); err != nil {
		backendError(w, "task", err)
		return
	}

	h.audit.Record(r.Context(), adminUser.Email, models.ActionCreateTask, task.UID,
		fmt.Sprintf("%s %s due %s", station.Name, task.ItemName, task.Deadline))
	log.Printf("✅ Task created by %s: %s (%s)", adminUser.Email, task.UID, station.Code)

	writeJSONStatus(w, http.StatusCreated, tasks.NewView(task, now))
}

// --- Audit Logs ---

// visibleLogs returns every audit log for admins; managers see logs of their stations' tasks
// plus entries not tied to a task.
func (h *AdminHandler) visibleLogs(r *http.Request, user *models.User) ([]models.AuditLog, error) {
	logs, err := h.backend.Logs(r.Context())
	if err != nil {
		return nil, err
	}
	scope := access.ScopeFor(user)
	if scope.All() {
		store.SortLogsNewestFirst(logs)
		return logs, nil
	}

	all, err := h.backend.Tasks(r.Context())
	if err != nil {
		return nil, err
	}
	visible := map[string]bool{}
	for _, t := range access.FilterTasks(scope, all) {
		visible[t.UID] = true
	}
	out := []models.AuditLog{}
	for _, l := range logs {
		if l.TaskUID == "" || visible[l.TaskUID] {
			out = append(out, l)
		}
	}
	store.SortLogsNewestFirst(out)
	return out, nil
}

// GetLogs returns audit logs, newest first
func (h *AdminHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	user, ok := viewer(w, r)
	if !ok {
		return
	}

	logs, err := h.visibleLogs(r, user)
	if err != nil {
		backendError(w, "logs", err)
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

// ExportLogs exports audit logs as CSV
func (h *AdminHandler) ExportLogs(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	user, ok := viewer(w, r)
	if !ok {
		return
	}

	logs, err := h.visibleLogs(r, user)
	if err != nil {
		backendError(w, "logs", err)
		return
	}

	// Set headers for CSV download
	timestamp := h.now().Format("2006-01-02_15-04-05")
	filename := fmt.Sprintf("stationdesk_logs_%s.csv", timestamp)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{
		"Log ID",
		"Timestamp",
		"User Email",
		"Action",
		"Task UID",
		"Details",
	}
	if err := writer.Write(header); err != nil {
		log.Printf("❌ Failed to write CSV header: %v", err)
		return
	}

	for _, entry := range logs {
		row := []string{
			entry.ID,
			entry.Timestamp,
			entry.UserEmail,
			string(entry.Action),
			entry.TaskUID,
			entry.Details,
		}
		if err := writer.Write(row); err != nil {
			log.Printf("❌ Failed to write CSV row: %v", err)
			return
		}
	}

	log.Printf("📊 Log export by %s: %d entries", user.Email, len(logs))
}
