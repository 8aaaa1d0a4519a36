// models.go
// Defines the core data structures shared by the dashboard API, the derivation engine and both backends.

package models

import (
	"time"
)

// StationCode identifies one of the fixed parking stations.
type StationCode string

const (
	StationBaifu   StationCode = "BAIFU"   // 百福立體停車場
	StationCheng   StationCode = "CHENG"   // 成功立體停車場
	StationXinyi   StationCode = "XINYI"   // 信義國小地下停車場
	StationSheliao StationCode = "SHELIAO" // 社寮橋平面停車場
)

// AllStations is the sentinel assignment value granting every station.
const AllStations = "ALL"

// Station is an entry of the fixed station catalogue.
type Station struct {
	Code StationCode `firestore:"code" json:"code"`
	Name string      `firestore:"name" json:"name"`
}

// UserRole defines the access level of a user.
type UserRole string

const (
	RoleAdmin       UserRole = "ADMIN"
	RoleManager3D   UserRole = "MANAGER_3D"
	RoleManagerDept UserRole = "MANAGER_DEPT"
	RoleOperator    UserRole = "OPERATOR"
	RolePending     UserRole = "PENDING"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager3D, RoleManagerDept, RoleOperator, RolePending:
		return true
	}
	return false
}

// User represents an account of the dashboard.
// AssignedStation is the comma-joined station list as stored upstream ("ALL" or "BAIFU,CHENG").
type User struct {
	Email               string    `firestore:"email" json:"email"`
	Name                string    `firestore:"name" json:"name"`
	Organization        string    `firestore:"organization,omitempty" json:"organization,omitempty"`
	Role                UserRole  `firestore:"role" json:"role"`
	AssignedStation     string    `firestore:"assigned_station" json:"assignedStation"`
	IsActive            bool      `firestore:"is_active" json:"isActive"`
	ForceChangePassword bool      `firestore:"force_change_password" json:"forceChangePassword"`
	LastLogin           time.Time `firestore:"last_login" json:"lastLogin"`
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskOverdue    TaskStatus = "OVERDUE"
)

// Valid reports whether s is one of the known task statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskOverdue:
		return true
	}
	return false
}

// Task is a compliance work item owned by one station.
// Deadline is kept as received; only its calendar date is meaningful.
type Task struct {
	UID           string      `firestore:"uid" json:"uid"`
	StationCode   StationCode `firestore:"station_code" json:"stationCode"`
	StationName   string      `firestore:"station_name" json:"stationName"`
	ItemCode      string      `firestore:"item_code" json:"itemCode"`
	ItemName      string      `firestore:"item_name" json:"itemName"`
	Deadline      string      `firestore:"deadline" json:"deadline"`
	Status        TaskStatus  `firestore:"status" json:"status"`
	ExecutorEmail string      `firestore:"executor_email" json:"executorEmail"`
	LastUpdated   string      `firestore:"last_updated" json:"lastUpdated"`
	AttachmentURL string      `firestore:"attachment_url,omitempty" json:"attachmentUrl,omitempty"`
}

// ChecklistItem is one row of the live inspection template.
type ChecklistItem struct {
	ID       string `firestore:"id" json:"id"`
	Category string `firestore:"category" json:"category"`
	Content  string `firestore:"content" json:"content"`
}

// CheckStatus is the answer given for a checklist item.
type CheckStatus string

const (
	CheckOK    CheckStatus = "OK"
	CheckIssue CheckStatus = "ISSUE"
	CheckNA    CheckStatus = "NA"
)

// Valid reports whether s is one of the known answers.
func (s CheckStatus) Valid() bool {
	return s == CheckOK || s == CheckIssue || s == CheckNA
}

// CheckResult is the answer for one template item at submission time.
// Category and Content are copies taken when the submission was made.
type CheckResult struct {
	ItemID   string      `firestore:"item_id" json:"itemId"`
	Category string      `firestore:"category,omitempty" json:"category,omitempty"`
	Content  string      `firestore:"content,omitempty" json:"content,omitempty"`
	Status   CheckStatus `firestore:"status" json:"status"`
	Note     string      `firestore:"note,omitempty" json:"note,omitempty"`
	PhotoURL string      `firestore:"photo_url,omitempty" json:"photoUrl,omitempty"`
}

// ChecklistSubmission is one station's inspection for one month.
type ChecklistSubmission struct {
	ID             string        `firestore:"id" json:"id"`
	StationCode    StationCode   `firestore:"station_code" json:"stationCode"`
	StationName    string        `firestore:"station_name" json:"stationName"`
	YearMonth      string        `firestore:"year_month" json:"yearMonth"`
	SubmittedBy    string        `firestore:"submitted_by" json:"submittedBy"`
	SubmittedAt    string        `firestore:"submitted_at" json:"submittedAt"`
	ResolvedAlerts []string      `firestore:"resolved_alerts" json:"resolvedAlerts"`
	Results        []CheckResult `firestore:"results" json:"results"`
}

// HasResolved reports whether alertID is recorded as resolved on the submission.
func (s *ChecklistSubmission) HasResolved(alertID string) bool {
	for _, id := range s.ResolvedAlerts {
		if id == alertID {
			return true
		}
	}
	return false
}

// LogAction names an audited operation.
type LogAction string

const (
	ActionLogin           LogAction = "LOGIN"
	ActionRegister        LogAction = "REGISTER"
	ActionApproveUser     LogAction = "APPROVE_USER"
	ActionUpdateUser      LogAction = "UPDATE_USER"
	ActionCreateTask      LogAction = "CREATE_TASK"
	ActionUpdateStatus    LogAction = "UPDATE_STATUS"
	ActionDeleteTask      LogAction = "DELETE_TASK"
	ActionUploadFile      LogAction = "UPLOAD_FILE"
	ActionResetPassword   LogAction = "RESET_PASSWORD"
	ActionChangePassword  LogAction = "CHANGE_PASSWORD"
	ActionUpdateTemplate  LogAction = "UPDATE_TEMPLATE"
	ActionSubmitChecklist LogAction = "SUBMIT_CHECKLIST"
	ActionResolveAlert    LogAction = "RESOLVE_ALERT"
)

// AuditLog represents an audit log entry.
type AuditLog struct {
	ID        string    `firestore:"id" json:"id"`
	Timestamp string    `firestore:"timestamp" json:"timestamp"`
	UserEmail string    `firestore:"user_email" json:"userEmail"`
	Action    LogAction `firestore:"action" json:"action"`
	TaskUID   string    `firestore:"task_uid,omitempty" json:"taskUid,omitempty"`
	Details   string    `firestore:"details" json:"details"`
}

// FileUpload carries an attachment as base64 content, optionally as a data URL.
type FileUpload struct {
	Name    string `json:"name" validate:"required"`
	Type    string `json:"type" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// TaskUpdate is a progress report by an executor.
type TaskUpdate struct {
	UID                  string      `json:"uid" validate:"required"`
	Status               TaskStatus  `json:"status" validate:"required,oneof=PENDING IN_PROGRESS COMPLETED"`
	CurrentAttachmentURL string      `json:"currentAttachmentUrl,omitempty"`
	File                 *FileUpload `json:"file,omitempty"`
}

// Attachment is an uploaded file kept by backends that have no file store of their own.
type Attachment struct {
	ID         string `firestore:"id" json:"id"`
	TaskUID    string `firestore:"task_uid" json:"taskUid"`
	Name       string `firestore:"name" json:"name"`
	Type       string `firestore:"type" json:"type"`
	Content    string `firestore:"content" json:"-"`
	UploadedBy string `firestore:"uploaded_by" json:"uploadedBy"`
	UploadedAt string `firestore:"uploaded_at" json:"uploadedAt"`
}
