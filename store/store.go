// Package store defines the persistence boundary of the dashboard and an in-memory implementation.
package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"stationdesk/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
)

// Backend serves the task, checklist and audit collections.
type Backend interface {
	Tasks(ctx context.Context) ([]models.Task, error)
	CreateTask(ctx context.Context, task models.Task) error
	// UpdateTask applies a progress report by actor and returns the stored task.
	UpdateTask(ctx context.Context, actor string, upd models.TaskUpdate) (models.Task, error)

	Submissions(ctx context.Context) ([]models.ChecklistSubmission, error)
	SubmitChecklist(ctx context.Context, sub models.ChecklistSubmission, files map[string]*models.FileUpload) error
	ResolveAlert(ctx context.Context, submissionID, alertID string) error
	Template(ctx context.Context) ([]models.ChecklistItem, error)
	SaveTemplate(ctx context.Context, items []models.ChecklistItem) error

	Logs(ctx context.Context) ([]models.AuditLog, error)
	TaskLogs(ctx context.Context, uid string) ([]models.AuditLog, error)
	AppendLog(ctx context.Context, entry models.AuditLog) error
}

// Accounts serves users and their password hashes, keyed by lower-cased email.
type Accounts interface {
	User(ctx context.Context, email string) (*models.User, error)
	Users(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	PasswordHash(ctx context.Context, email string) (string, error)
	StorePasswordHash(ctx context.Context, email, hash string) error
}

// Attachments is implemented by backends that keep uploaded files themselves.
type Attachments interface {
	Attachment(ctx context.Context, id string) (*models.Attachment, error)
}

// NormalizeEmail is the account key for an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SortLogsNewestFirst orders logs by timestamp, newest first. Unparseable timestamps sort last.
func SortLogsNewestFirst(logs []models.AuditLog) {
	sort.SliceStable(logs, func(i, j int) bool {
		ti, erri := time.Parse(time.RFC3339Nano, logs[i].Timestamp)
		tj, errj := time.Parse(time.RFC3339Nano, logs[j].Timestamp)
		if erri != nil || errj != nil {
			return erri == nil && errj != nil
		}
		return ti.After(tj)
	})
}

// DecodeFile returns the raw bytes of an upload whose content may be a data URL.
func DecodeFile(f *models.FileUpload) ([]byte, error) {
	content := f.Content
	if i := strings.Index(content, ";base64,"); strings.HasPrefix(content, "data:") && i >= 0 {
		content = content[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Name, err)
	}
	return data, nil
}

// AttachmentURL is the API path under which a stored attachment is served.
func AttachmentURL(id string) string {
	return "/api/attachments?id=" + id
}

func sortUsers(users []models.User) {
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
}
