package session

import (
	"sync"
	"testing"
	"time"

	"stationdesk/access"
	"stationdesk/duesoon"
	"stationdesk/models"
)

var now = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

func dueTasks() []models.Task {
	return []models.Task{{UID: "T1", StationCode: models.StationBaifu, Deadline: "2024-01-11", Status: models.TaskPending}}
}

func TestGateIsPerSession(t *testing.T) {
	r := NewRegistry(time.Hour)
	r.Start("a", now)
	r.Start("b", now)

	if _, fire := r.DueSoon("a", dueTasks(), access.Unrestricted(), now, 7); !fire {
		t.Fatalf("session a should fire")
	}
	if _, fire := r.DueSoon("a", dueTasks(), access.Unrestricted(), now, 7); fire {
		t.Fatalf("session a fired twice")
	}
	if _, fire := r.DueSoon("b", dueTasks(), access.Unrestricted(), now, 7); !fire {
		t.Fatalf("session b has its own gate")
	}

	// a new login resets
	r.Start("a", now)
	if r.State("a") != duesoon.Pending {
		t.Fatalf("restarted session must be pending")
	}
}

func TestConcurrentChecksFireOnce(t *testing.T) {
	r := NewRegistry(time.Hour)
	r.Start("s", now)

	var wg sync.WaitGroup
	var mu sync.Mutex
	fired := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, fire := r.DueSoon("s", dueTasks(), access.Unrestricted(), now, 7); fire {
				mu.Lock()
				fired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if fired != 1 {
		t.Fatalf("expected exactly one firing, got %d", fired)
	}
}

func TestPrune(t *testing.T) {
	r := NewRegistry(time.Hour)
	r.Start("old", now)
	r.Start("fresh", now.Add(50*time.Minute))
	if n := r.Prune(now.Add(90 * time.Minute)); n != 1 {
		t.Fatalf("expected one pruned session, got %d", n)
	}
	if r.Len() != 1 {
		t.Fatalf("expected one remaining session, got %d", r.Len())
	}
}
