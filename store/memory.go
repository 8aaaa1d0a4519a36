package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"stationdesk/models"
)

// Memory keeps every collection in process. It backs local development and tests.
type Memory struct {
	mu          sync.RWMutex
	tasks       []models.Task
	subs        []models.ChecklistSubmission
	template    []models.ChecklistItem
	logs        []models.AuditLog
	users       map[string]models.User
	passwords   map[string]string
	attachments map[string]models.Attachment
	now         func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:       make(map[string]models.User),
		passwords:   make(map[string]string),
		attachments: make(map[string]models.Attachment),
		now:         time.Now,
	}
}

// Seed replaces the task, submission and template collections.
func (m *Memory) Seed(tasks []models.Task, subs []models.ChecklistSubmission, template []models.ChecklistItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append([]models.Task(nil), tasks...)
	m.subs = append([]models.ChecklistSubmission(nil), subs...)
	m.template = append([]models.ChecklistItem(nil), template...)
}

// --- Tasks ---

func (m *Memory) Tasks(ctx context.Context) ([]models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Task(nil), m.tasks...), nil
}

func (m *Memory) CreateTask(ctx context.Context, task models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.UID == task.UID {
			return fmt.Errorf("task %s: %w", task.UID, ErrExists)
		}
	}
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *Memory) UpdateTask(ctx context.Context, actor string, upd models.TaskUpdate) (models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tasks {
		if m.tasks[i].UID != upd.UID {
			continue
		}
		url := upd.CurrentAttachmentURL
		if upd.File != nil {
			if _, err := DecodeFile(upd.File); err != nil {
				return models.Task{}, err
			}
			a := models.Attachment{
				ID:         uuid.NewString(),
				TaskUID:    upd.UID,
				Name:       upd.File.Name,
				Type:       upd.File.Type,
				Content:    upd.File.Content,
				UploadedBy: actor,
				UploadedAt: m.now().Format(time.RFC3339),
			}
			m.attachments[a.ID] = a
			url = AttachmentURL(a.ID)
		}
		m.tasks[i] = ApplyUpdate(m.tasks[i], upd, actor, url, m.now())
		return m.tasks[i], nil
	}
	return models.Task{}, fmt.Errorf("task %s: %w", upd.UID, ErrNotFound)
}

// ApplyUpdate returns task with a progress report applied. An empty attachmentURL keeps the current one.
func ApplyUpdate(task models.Task, upd models.TaskUpdate, actor, attachmentURL string, now time.Time) models.Task {
	task.Status = upd.Status
	task.ExecutorEmail = actor
	task.LastUpdated = now.Format(time.RFC3339)
	if attachmentURL != "" {
		task.AttachmentURL = attachmentURL
	}
	return task
}

func (m *Memory) Attachment(ctx context.Context, id string) (*models.Attachment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attachments[id]
	if !ok {
		return nil, fmt.Errorf("attachment %s: %w", id, ErrNotFound)
	}
	return &a, nil
}

// --- Checklist ---

func (m *Memory) Submissions(ctx context.Context) ([]models.ChecklistSubmission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ChecklistSubmission, len(m.subs))
	for i, s := range m.subs {
		s.ResolvedAlerts = append([]string(nil), s.ResolvedAlerts...)
		out[i] = s
	}
	return out, nil
}

func (m *Memory) SubmitChecklist(ctx context.Context, sub models.ChecklistSubmission, files map[string]*models.FileUpload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.ID == sub.ID {
			return fmt.Errorf("submission %s: %w", sub.ID, ErrExists)
		}
	}
	sub.Results = append([]models.CheckResult(nil), sub.Results...)
	sub.ResolvedAlerts = append([]string{}, sub.ResolvedAlerts...)
	for i, r := range sub.Results {
		f, ok := files[r.ItemID]
		if !ok {
			continue
		}
		if _, err := DecodeFile(f); err != nil {
			return err
		}
		a := models.Attachment{
			ID:         uuid.NewString(),
			Name:       f.Name,
			Type:       f.Type,
			Content:    f.Content,
			UploadedBy: sub.SubmittedBy,
			UploadedAt: sub.SubmittedAt,
		}
		m.attachments[a.ID] = a
		sub.Results[i].PhotoURL = AttachmentURL(a.ID)
	}
	m.subs = append(m.subs, sub)
	return nil
}

func (m *Memory) ResolveAlert(ctx context.Context, submissionID, alertID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.subs {
		if m.subs[i].ID != submissionID {
			continue
		}
		if !m.subs[i].HasResolved(alertID) {
			m.subs[i].ResolvedAlerts = append(m.subs[i].ResolvedAlerts, alertID)
		}
		return nil
	}
	return fmt.Errorf("submission %s: %w", submissionID, ErrNotFound)
}

func (m *Memory) Template(ctx context.Context) ([]models.ChecklistItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.ChecklistItem(nil), m.template...), nil
}

func (m *Memory) SaveTemplate(ctx context.Context, items []models.ChecklistItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.template = append([]models.ChecklistItem(nil), items...)
	return nil
}

// --- Audit logs ---

func (m *Memory) Logs(ctx context.Context) ([]models.AuditLog, error) {
	m.mu.RLock()
	out := append([]models.AuditLog(nil), m.logs...)
	m.mu.RUnlock()
	SortLogsNewestFirst(out)
	return out, nil
}

func (m *Memory) TaskLogs(ctx context.Context, uid string) ([]models.AuditLog, error) {
	m.mu.RLock()
	var out []models.AuditLog
	for _, l := range m.logs {
		if l.TaskUID == uid {
			out = append(out, l)
		}
	}
	m.mu.RUnlock()
	SortLogsNewestFirst(out)
	return out, nil
}

func (m *Memory) AppendLog(ctx context.Context, entry models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, entry)
	return nil
}

// --- Accounts ---

func (m *Memory) User(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[NormalizeEmail(email)]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	return &u, nil
}

func (m *Memory) Users(ctx context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sortUsers(out)
	return out, nil
}

func (m *Memory) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := NormalizeEmail(user.Email)
	if _, ok := m.users[key]; ok {
		return fmt.Errorf("user %s: %w", user.Email, ErrExists)
	}
	u := *user
	u.Email = key
	m.users[key] = u
	return nil
}

func (m *Memory) UpdateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := NormalizeEmail(user.Email)
	if _, ok := m.users[key]; !ok {
		return fmt.Errorf("user %s: %w", user.Email, ErrNotFound)
	}
	u := *user
	u.Email = key
	m.users[key] = u
	return nil
}

func (m *Memory) PasswordHash(ctx context.Context, email string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.passwords[NormalizeEmail(email)]
	if !ok {
		return "", fmt.Errorf("password hash for %s: %w", email, ErrNotFound)
	}
	return h, nil
}

func (m *Memory) StorePasswordHash(ctx context.Context, email, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passwords[NormalizeEmail(email)] = hash
	return nil
}
