package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stationdesk/access"
	"stationdesk/duesoon"
	"stationdesk/models"
	"stationdesk/status"
	"stationdesk/tasks"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{ScriptURL: srv.URL, ServiceEmail: "svc@example.com", Token: "tok", UploadFolderID: "folder"})
}

func TestTasksMapsPositionalRows(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("action") != "getTasks" || q.Get("station") != "全部" || q.Get("userEmail") != "svc@example.com" || q.Get("token") != "tok" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"success":true,"data":[
			["T1","百福立體停車場","A01","消防檢查","2024-01-10","待處理","op@example.com","2024-01-01",""],
			["T2","不存在的站","A02","電梯保養","2024-01-11","已完成","","",null],
			[42,"成功立體停車場"],
			["","信義國小地下停車場"]
		]}`))
	})

	tasks, err := c.Tasks(context.Background())
	if err != nil {
		t.Fatalf("Tasks failed: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks (row without uid skipped), got %d", len(tasks))
	}
	if tasks[0].StationCode != models.StationBaifu || tasks[0].ItemName != "消防檢查" || tasks[0].Status != models.TaskPending {
		t.Fatalf("row not mapped: %+v", tasks[0])
	}
	if tasks[1].Status != models.TaskCompleted {
		t.Fatalf("sheet label not translated: %q", tasks[1].Status)
	}
	if tasks[1].StationCode != "" {
		t.Fatalf("unknown station must not default to a real code, got %q", tasks[1].StationCode)
	}
	if tasks[2].UID != "42" || tasks[2].StationCode != models.StationCheng || tasks[2].Deadline != "" {
		t.Fatalf("short row not mapped: %+v", tasks[2])
	}
}

func TestEnvelopeEntityKeyFallback(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"submissions":[{"id":"s1","stationCode":"XINYI","yearMonth":"2024-01","results":[{"itemId":"1","status":"ISSUE"}]}]}`))
	})
	subs, err := c.Submissions(context.Background())
	if err != nil {
		t.Fatalf("Submissions failed: %v", err)
	}
	if len(subs) != 1 || subs[0].StationName != "信義國小地下停車場" {
		t.Fatalf("station name not backfilled: %+v", subs)
	}
	if subs[0].Results[0].Status != models.CheckIssue {
		t.Fatalf("results not decoded: %+v", subs[0].Results)
	}
}

func TestResolveAlertPostsPlainTextJSON(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "text/plain;charset=utf-8" {
			t.Errorf("unexpected content type %q", ct)
		}
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &body)
		w.Write([]byte(`{"success":true}`))
	})
	if err := c.ResolveAlert(context.Background(), "s1", "BAIFU-2024-01"); err != nil {
		t.Fatalf("ResolveAlert failed: %v", err)
	}
	if body["action"] != "resolveAlert" || body["submissionId"] != "s1" || body["alertId"] != "BAIFU-2024-01" || body["token"] != "tok" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestRejectedCarriesMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"msg":"權限不足"}`))
	})
	err := c.ResolveAlert(context.Background(), "s1", "BAIFU-2024-01")
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	var rejected *Error
	if !errors.As(err, &rejected) || rejected.Msg != "權限不足" || rejected.Action != "resolveAlert" {
		t.Fatalf("rejection details lost: %v", err)
	}
}

func TestHTTPFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	if _, err := c.Template(context.Background()); err == nil || errors.Is(err, ErrRejected) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestUpdateTaskReloadsRow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var body map[string]any
			raw, _ := io.ReadAll(r.Body)
			json.Unmarshal(raw, &body)
			if body["folderId"] != "folder" || body["file"] == nil || body["status"] != "執行中" {
				t.Errorf("upload fields missing: %v", body)
			}
			w.Write([]byte(`{"success":true}`))
			return
		}
		w.Write([]byte(`{"success":true,"tasks":[["T1","社寮橋平面停車場","B1","照明","2024-02-01","執行中","op@example.com","2024-01-05","https://drive/x"]]}`))
	})
	upd := models.TaskUpdate{UID: "T1", Status: models.TaskInProgress, File: &models.FileUpload{Name: "a.png", Type: "image/png", Content: "aGk="}}
	got, err := c.UpdateTask(context.Background(), "op@example.com", upd)
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if got.AttachmentURL != "https://drive/x" || got.StationCode != models.StationSheliao || got.Status != models.TaskInProgress {
		t.Fatalf("unexpected task: %+v", got)
	}
}

func TestCompletedSheetRowStaysCompleted(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":[
			["T1","百福立體停車場","A01","消防檢查","2024-01-10","已完成","op@example.com","2024-01-09",""]
		]}`))
	})
	all, err := c.Tasks(context.Background())
	if err != nil {
		t.Fatalf("Tasks failed: %v", err)
	}
	now := time.Date(2024, 1, 20, 9, 0, 0, 0, time.FixedZone("CST", 8*3600))

	if got := status.Effective(all[0], now); got != models.TaskCompleted {
		t.Fatalf("completed row read as %s", got)
	}
	summary := tasks.Aggregate(all, access.Unrestricted(), now)
	if summary.Global.Completed != 1 || summary.Global.Overdue != 0 || summary.Global.Rate != 100 {
		t.Fatalf("unexpected counts: %+v", summary.Global)
	}
	if due := duesoon.Evaluate(all, access.Unrestricted(), now, 7); len(due) != 0 {
		t.Fatalf("completed task flagged as due soon")
	}
}

func TestStatusLabels(t *testing.T) {
	cases := map[string]models.TaskStatus{
		"待處理":         models.TaskPending,
		"執行中":         models.TaskInProgress,
		"已完成":         models.TaskCompleted,
		"逾期":          models.TaskOverdue,
		"completed":   models.TaskCompleted,
		"IN_PROGRESS": models.TaskInProgress,
		"暫停":          "暫停",
	}
	for raw, want := range cases {
		if got := statusFromSheet(raw); got != want {
			t.Fatalf("%q: expected %q, got %q", raw, want, got)
		}
	}
	for s, label := range sheetLabels {
		if statusFromSheet(sheetLabel(s)) != s || label == "" {
			t.Fatalf("label for %s does not round trip", s)
		}
	}

	var created map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &created)
		w.Write([]byte(`{"success":true}`))
	})
	if err := c.CreateTask(context.Background(), models.Task{UID: "T9", Status: models.TaskPending}); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	task, _ := created["taskData"].(map[string]any)
	if task["status"] != "待處理" {
		t.Fatalf("status not written as sheet label: %v", created)
	}
}
