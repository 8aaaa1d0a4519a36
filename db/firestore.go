package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"stationdesk/models"
	"stationdesk/store"
)

const (
	colUsers       = "users"
	colPasswords   = "passwords"
	colTasks       = "tasks"
	colSubmissions = "checklist_submissions"
	colTemplate    = "checklist_template"
	colLogs        = "audit_logs"
	colAttachments = "attachments"

	// the template is one document holding the ordered item list
	templateDoc = "current"
)

// FirestoreDB wraps the Firestore client
type FirestoreDB struct {
	client *firestore.Client
	now    func() time.Time
}

var (
	_ store.Backend     = (*FirestoreDB)(nil)
	_ store.Accounts    = (*FirestoreDB)(nil)
	_ store.Attachments = (*FirestoreDB)(nil)
)

// NewFirestoreDB initializes a new Firestore client
func NewFirestoreDB(ctx context.Context, projectID, credentialsPath string) (*FirestoreDB, error) {
	opt := option.WithCredentialsFile(credentialsPath)

	config := &firebase.Config{ProjectID: projectID}
	app, err := firebase.NewApp(ctx, config, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firestore client: %w", err)
	}

	log.Printf("✅ Connected to Firestore project: %s", projectID)

	return &FirestoreDB{client: client, now: time.Now}, nil
}

// Close closes the Firestore client
func (db *FirestoreDB) Close() error {
	return db.client.Close()
}

func notFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// readAll drains iter into a slice. Documents that fail to decode are skipped with a warning.
func readAll[T any](iter *firestore.DocumentIterator, what string) ([]T, error) {
	defer iter.Stop()

	var out []T
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate %s: %w", what, err)
		}

		var v T
		if err := doc.DataTo(&v); err != nil {
			log.Printf("Warning: failed to parse %s %s: %v", what, doc.Ref.ID, err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (db *FirestoreDB) storeAttachment(ctx context.Context, taskUID, actor string, f *models.FileUpload) (string, error) {
	if _, err := store.DecodeFile(f); err != nil {
		return "", err
	}
	a := models.Attachment{
		ID:         uuid.NewString(),
		TaskUID:    taskUID,
		Name:       f.Name,
		Type:       f.Type,
		Content:    f.Content,
		UploadedBy: actor,
		UploadedAt: db.now().Format(time.RFC3339),
	}
	if _, err := db.client.Collection(colAttachments).Doc(a.ID).Set(ctx, a); err != nil {
		return "", fmt.Errorf("failed to store attachment: %w", err)
	}
	return store.AttachmentURL(a.ID), nil
}

// Attachment retrieves an uploaded file by ID
func (db *FirestoreDB) Attachment(ctx context.Context, id string) (*models.Attachment, error) {
	doc, err := db.client.Collection(colAttachments).Doc(id).Get(ctx)
	if notFound(err) {
		return nil, fmt.Errorf("attachment %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}

	var a models.Attachment
	if err := doc.DataTo(&a); err != nil {
		return nil, fmt.Errorf("failed to parse attachment: %w", err)
	}
	return &a, nil
}

// --- Task Operations ---

// Tasks retrieves all tasks
func (db *FirestoreDB) Tasks(ctx context.Context) ([]models.Task, error) {
	return readAll[models.Task](db.client.Collection(colTasks).Documents(ctx), "task")
}

// CreateTask creates a new task, failing if the UID is taken
func (db *FirestoreDB) CreateTask(ctx context.Context, task models.Task) error {
	_, err := db.client.Collection(colTasks).Doc(task.UID).Create(ctx, task)
	if status.Code(err) == codes.AlreadyExists {
		return fmt.Errorf("task %s: %w", task.UID, store.ErrExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// UpdateTask applies a progress report inside a transaction
func (db *FirestoreDB) UpdateTask(ctx context.Context, actor string, upd models.TaskUpdate) (models.Task, error) {
	url := upd.CurrentAttachmentURL
	if upd.File != nil {
		var err error
		if url, err = db.storeAttachment(ctx, upd.UID, actor, upd.File); err != nil {
			return models.Task{}, err
		}
	}

	ref := db.client.Collection(colTasks).Doc(upd.UID)
	var updated models.Task
	err := db.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var task models.Task
		if err := doc.DataTo(&task); err != nil {
			return fmt.Errorf("failed to parse task: %w", err)
		}
		updated = store.ApplyUpdate(task, upd, actor, url, db.now())
		return tx.Set(ref, updated)
	})
	if notFound(err) {
		return models.Task{}, fmt.Errorf("task %s: %w", upd.UID, store.ErrNotFound)
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to update task: %w", err)
	}
	return updated, nil
}

// --- Checklist Operations ---

// Submissions retrieves all checklist submissions
func (db *FirestoreDB) Submissions(ctx context.Context) ([]models.ChecklistSubmission, error) {
	return readAll[models.ChecklistSubmission](db.client.Collection(colSubmissions).Documents(ctx), "submission")
}

// SubmitChecklist stores a submission; uploaded photos are kept as attachments
func (db *FirestoreDB) SubmitChecklist(ctx context.Context, sub models.ChecklistSubmission, files map[string]*models.FileUpload) error {
	sub.Results = append([]models.CheckResult(nil), sub.Results...)
	if sub.ResolvedAlerts == nil {
		sub.ResolvedAlerts = []string{}
	}
	for i, r := range sub.Results {
		f, ok := files[r.ItemID]
		if !ok {
			continue
		}
		url, err := db.storeAttachment(ctx, "", sub.SubmittedBy, f)
		if err != nil {
			return err
		}
		sub.Results[i].PhotoURL = url
	}

	_, err := db.client.Collection(colSubmissions).Doc(sub.ID).Create(ctx, sub)
	if status.Code(err) == codes.AlreadyExists {
		return fmt.Errorf("submission %s: %w", sub.ID, store.ErrExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

// ResolveAlert adds alertID to the submission's resolved set
func (db *FirestoreDB) ResolveAlert(ctx context.Context, submissionID, alertID string) error {
	_, err := db.client.Collection(colSubmissions).Doc(submissionID).Update(ctx, []firestore.Update{
		{Path: "resolved_alerts", Value: firestore.ArrayUnion(alertID)},
	})
	if notFound(err) {
		return fmt.Errorf("submission %s: %w", submissionID, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}
	return nil
}

type templateRecord struct {
	Items     []models.ChecklistItem `firestore:"items"`
	UpdatedAt time.Time              `firestore:"updated_at"`
}

// Template retrieves the live checklist template
func (db *FirestoreDB) Template(ctx context.Context) ([]models.ChecklistItem, error) {
	doc, err := db.client.Collection(colTemplate).Doc(templateDoc).Get(ctx)
	if notFound(err) {
		return []models.ChecklistItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	var rec templateRecord
	if err := doc.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return rec.Items, nil
}

// SaveTemplate replaces the checklist template
func (db *FirestoreDB) SaveTemplate(ctx context.Context, items []models.ChecklistItem) error {
	_, err := db.client.Collection(colTemplate).Doc(templateDoc).Set(ctx, templateRecord{
		Items:     items,
		UpdatedAt: db.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	return nil
}

// --- Audit Log Operations ---

// Logs retrieves all audit logs, newest first
func (db *FirestoreDB) Logs(ctx context.Context) ([]models.AuditLog, error) {
	logs, err := readAll[models.AuditLog](db.client.Collection(colLogs).Documents(ctx), "audit log")
	if err != nil {
		return nil, err
	}
	store.SortLogsNewestFirst(logs)
	return logs, nil
}

// TaskLogs retrieves the audit trail of one task, newest first
func (db *FirestoreDB) TaskLogs(ctx context.Context, uid string) ([]models.AuditLog, error) {
	iter := db.client.Collection(colLogs).Where("task_uid", "==", uid).Documents(ctx)
	logs, err := readAll[models.AuditLog](iter, "audit log")
	if err != nil {
		return nil, err
	}
	store.SortLogsNewestFirst(logs)
	return logs, nil
}

// AppendLog stores an audit log entry
func (db *FirestoreDB) AppendLog(ctx context.Context, entry models.AuditLog) error {
	if _, err := db.client.Collection(colLogs).Doc(entry.ID).Set(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit log: %w", err)
	}
	return nil
}

// --- User Operations ---

// User retrieves a user by email
func (db *FirestoreDB) User(ctx context.Context, email string) (*models.User, error) {
	key := store.NormalizeEmail(email)
	doc, err := db.client.Collection(colUsers).Doc(key).Get(ctx)
	if notFound(err) {
		return nil, fmt.Errorf("user %s: %w", key, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var user models.User
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to parse user: %w", err)
	}
	return &user, nil
}

// Users retrieves all users ordered by email
func (db *FirestoreDB) Users(ctx context.Context) ([]models.User, error) {
	return readAll[models.User](db.client.Collection(colUsers).OrderBy("email", firestore.Asc).Documents(ctx), "user")
}

// CreateUser creates a new user, failing if the email is taken
func (db *FirestoreDB) CreateUser(ctx context.Context, user *models.User) error {
	u := *user
	u.Email = store.NormalizeEmail(u.Email)
	_, err := db.client.Collection(colUsers).Doc(u.Email).Create(ctx, u)
	if status.Code(err) == codes.AlreadyExists {
		return fmt.Errorf("user %s: %w", u.Email, store.ErrExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// UpdateUser overwrites an existing user
func (db *FirestoreDB) UpdateUser(ctx context.Context, user *models.User) error {
	u := *user
	u.Email = store.NormalizeEmail(u.Email)
	ref := db.client.Collection(colUsers).Doc(u.Email)
	if _, err := ref.Get(ctx); err != nil {
		if notFound(err) {
			return fmt.Errorf("user %s: %w", u.Email, store.ErrNotFound)
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	if _, err := ref.Set(ctx, u); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// --- Password Operations ---

// StorePasswordHash stores a password hash for a user
func (db *FirestoreDB) StorePasswordHash(ctx context.Context, email, passwordHash string) error {
	key := store.NormalizeEmail(email)
	_, err := db.client.Collection(colPasswords).Doc(key).Set(ctx, map[string]interface{}{
		"email":         key,
		"password_hash": passwordHash,
		"updated_at":    db.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to store password hash: %w", err)
	}
	return nil
}

// PasswordHash retrieves a password hash for a user
func (db *FirestoreDB) PasswordHash(ctx context.Context, email string) (string, error) {
	key := store.NormalizeEmail(email)
	doc, err := db.client.Collection(colPasswords).Doc(key).Get(ctx)
	if notFound(err) {
		return "", fmt.Errorf("password hash for %s: %w", key, store.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get password hash: %w", err)
	}

	data := doc.Data()
	if hash, ok := data["password_hash"].(string); ok {
		return hash, nil
	}

	return "", errors.New("password hash not found for user: " + key)
}
