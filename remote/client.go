// Package remote talks to the spreadsheet backend's action-keyed JSON API.
//
// Reads are GET requests with ?action=...&userEmail=...&token=...; writes are POST requests whose
// text/plain body is a JSON object carrying the action. Every response is an envelope
// {success, data|<entity>, msg}.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"stationdesk/models"
	"stationdesk/stations"
	"stationdesk/store"
)

// ErrRejected is wrapped by every *Error.
var ErrRejected = errors.New("rejected by backend")

// Error is a response with success=false.
type Error struct {
	Action string
	Msg    string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: rejected by backend", e.Action)
	}
	return fmt.Sprintf("%s: %s", e.Action, e.Msg)
}

func (e *Error) Unwrap() error { return ErrRejected }

// allStations is the station filter value the script reads as "every station".
const allStations = "全部"

// Config configures a Client.
type Config struct {
	ScriptURL         string
	ServiceEmail      string
	Token             string
	UploadFolderID    string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client implements store.Backend on top of the spreadsheet API.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
}

var _ store.Backend = (*Client)(nil)

// NewClient creates a client. Outbound calls are throttled to cfg.RequestsPerSecond.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
	}
}

type envelope map[string]json.RawMessage

func (e envelope) success() bool {
	var ok bool
	if raw, found := e["success"]; found {
		json.Unmarshal(raw, &ok)
	}
	return ok
}

func (e envelope) msg() string {
	var m string
	if raw, found := e["msg"]; found {
		json.Unmarshal(raw, &m)
	}
	return m
}

// payload decodes the first present key into v.
func (e envelope) payload(v any, keys ...string) error {
	for _, k := range keys {
		raw, ok := e[k]
		if !ok || string(raw) == "null" {
			continue
		}
		return json.Unmarshal(raw, v)
	}
	return nil
}

func (c *Client) get(ctx context.Context, action string, params url.Values) (envelope, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("action", action)
	params.Set("userEmail", c.cfg.ServiceEmail)
	params.Set("token", c.cfg.Token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ScriptURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, action)
}

func (c *Client) post(ctx context.Context, action string, body map[string]any) (envelope, error) {
	body["action"] = action
	body["userEmail"] = c.cfg.ServiceEmail
	body["token"] = c.cfg.Token
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", action, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ScriptURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// plain text avoids a CORS preflight on the script side
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")
	return c.do(req, action)
}

func (c *Client) do(req *http.Request, action string) (envelope, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", action, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %d", action, resp.StatusCode)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w", action, err)
	}
	if !env.success() {
		return nil, &Error{Action: action, Msg: env.msg()}
	}
	return env, nil
}

// --- Tasks ---

// Tasks fetches every task. Rows arrive positionally:
// uid, station name, item code, item name, deadline, status, executor, last updated, attachment url.
func (c *Client) Tasks(ctx context.Context) ([]models.Task, error) {
	env, err := c.get(ctx, "getTasks", url.Values{"station": {allStations}})
	if err != nil {
		return nil, err
	}
	var rows [][]any
	if err := env.payload(&rows, "tasks", "data"); err != nil {
		return nil, fmt.Errorf("getTasks: failed to parse rows: %w", err)
	}
	tasks := make([]models.Task, 0, len(rows))
	for i, row := range rows {
		t := taskFromRow(row)
		if t.UID == "" {
			log.Printf("Warning: skipping task row %d without uid", i)
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func taskFromRow(row []any) models.Task {
	t := models.Task{
		UID:           cell(row, 0),
		StationName:   cell(row, 1),
		ItemCode:      cell(row, 2),
		ItemName:      cell(row, 3),
		Deadline:      cell(row, 4),
		Status:        statusFromSheet(cell(row, 5)),
		ExecutorEmail: cell(row, 6),
		LastUpdated:   cell(row, 7),
		AttachmentURL: cell(row, 8),
	}
	code, ok := stations.CodeByName(t.StationName)
	if !ok {
		log.Printf("Warning: task %s has unknown station %q", t.UID, t.StationName)
	}
	t.StationCode = code
	return t
}

func cell(row []any, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	switch v := row[i].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprint(v)
	default:
		return fmt.Sprint(v)
	}
}

func (c *Client) CreateTask(ctx context.Context, task models.Task) error {
	task.Status = models.TaskStatus(sheetLabel(task.Status))
	_, err := c.post(ctx, "createTask", map[string]any{
		"adminEmail": c.cfg.ServiceEmail,
		"taskData":   task,
	})
	return err
}

func (c *Client) UpdateTask(ctx context.Context, actor string, upd models.TaskUpdate) (models.Task, error) {
	body := map[string]any{
		"uid":                  upd.UID,
		"status":               sheetLabel(upd.Status),
		"currentAttachmentUrl": upd.CurrentAttachmentURL,
		"executorEmail":        actor,
		"folderId":             c.cfg.UploadFolderID,
	}
	if upd.File != nil {
		body["file"] = upd.File
	}
	if _, err := c.post(ctx, "updateTask", body); err != nil {
		return models.Task{}, err
	}

	tasks, err := c.Tasks(ctx)
	if err != nil {
		return models.Task{}, fmt.Errorf("reload task %s: %w", upd.UID, err)
	}
	for _, t := range tasks {
		if t.UID == upd.UID {
			return t, nil
		}
	}
	return models.Task{}, fmt.Errorf("task %s: %w", upd.UID, store.ErrNotFound)
}

// --- Checklist ---

// Submissions fetches every checklist submission and fills in missing station names.
func (c *Client) Submissions(ctx context.Context) ([]models.ChecklistSubmission, error) {
	env, err := c.get(ctx, "getChecklistSubmissions", nil)
	if err != nil {
		return nil, err
	}
	var subs []models.ChecklistSubmission
	if err := env.payload(&subs, "submissions", "data"); err != nil {
		return nil, fmt.Errorf("getChecklistSubmissions: failed to parse: %w", err)
	}
	for i := range subs {
		if subs[i].StationName == "" {
			subs[i].StationName = stations.NameOf(subs[i].StationCode)
		}
	}
	return subs, nil
}

func (c *Client) SubmitChecklist(ctx context.Context, sub models.ChecklistSubmission, files map[string]*models.FileUpload) error {
	results := make([]map[string]any, len(sub.Results))
	for i, r := range sub.Results {
		row := map[string]any{
			"itemId":   r.ItemID,
			"category": r.Category,
			"content":  r.Content,
			"status":   r.Status,
			"note":     r.Note,
		}
		if f, ok := files[r.ItemID]; ok {
			row["file"] = f
		}
		results[i] = row
	}
	_, err := c.post(ctx, "submitChecklist", map[string]any{
		"data": map[string]any{
			"id":          sub.ID,
			"stationCode": sub.StationCode,
			"stationName": sub.StationName,
			"yearMonth":   sub.YearMonth,
			"submittedBy": sub.SubmittedBy,
			"submittedAt": sub.SubmittedAt,
			"results":     results,
			"folderId":    c.cfg.UploadFolderID,
		},
	})
	return err
}

func (c *Client) ResolveAlert(ctx context.Context, submissionID, alertID string) error {
	_, err := c.post(ctx, "resolveAlert", map[string]any{
		"submissionId": submissionID,
		"alertId":      alertID,
	})
	return err
}

func (c *Client) Template(ctx context.Context) ([]models.ChecklistItem, error) {
	env, err := c.get(ctx, "getChecklistTemplate", nil)
	if err != nil {
		return nil, err
	}
	var items []models.ChecklistItem
	if err := env.payload(&items, "template", "data"); err != nil {
		return nil, fmt.Errorf("getChecklistTemplate: failed to parse: %w", err)
	}
	return items, nil
}

func (c *Client) SaveTemplate(ctx context.Context, items []models.ChecklistItem) error {
	_, err := c.post(ctx, "saveChecklistTemplate", map[string]any{"items": items})
	return err
}

// --- Audit logs ---

func (c *Client) Logs(ctx context.Context) ([]models.AuditLog, error) {
	env, err := c.get(ctx, "getLogs", nil)
	if err != nil {
		return nil, err
	}
	var logs []models.AuditLog
	if err := env.payload(&logs, "logs", "data"); err != nil {
		return nil, fmt.Errorf("getLogs: failed to parse: %w", err)
	}
	store.SortLogsNewestFirst(logs)
	return logs, nil
}

func (c *Client) TaskLogs(ctx context.Context, uid string) ([]models.AuditLog, error) {
	env, err := c.get(ctx, "getTaskLogs", url.Values{"uid": {uid}})
	if err != nil {
		return nil, err
	}
	var logs []models.AuditLog
	if err := env.payload(&logs, "logs", "data"); err != nil {
		return nil, fmt.Errorf("getTaskLogs: failed to parse: %w", err)
	}
	store.SortLogsNewestFirst(logs)
	return logs, nil
}

// AppendLog is a no-op. The script writes its own log rows; entries raised here only reach stdout.
func (c *Client) AppendLog(ctx context.Context, entry models.AuditLog) error {
	return nil
}
