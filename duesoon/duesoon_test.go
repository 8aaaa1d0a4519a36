package duesoon

import (
	"testing"
	"time"

	"stationdesk/access"
	"stationdesk/models"
)

var taipei = time.FixedZone("CST", 8*3600)

func sample() []models.Task {
	return []models.Task{
		{UID: "late", StationCode: models.StationBaifu, Deadline: "2024-01-05", Status: models.TaskPending},
		{UID: "edge", StationCode: models.StationBaifu, Deadline: "2024-01-16", Status: models.TaskInProgress},
		{UID: "far", StationCode: models.StationBaifu, Deadline: "2024-01-17", Status: models.TaskPending},
		{UID: "done", StationCode: models.StationBaifu, Deadline: "2024-01-11", Status: models.TaskCompleted},
		{UID: "bad", StationCode: models.StationBaifu, Deadline: "soon", Status: models.TaskPending},
		{UID: "other", StationCode: models.StationCheng, Deadline: "2024-01-11", Status: models.TaskPending},
	}
}

func uids(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.UID
	}
	return out
}

func TestEvaluate(t *testing.T) {
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, taipei)
	got := uids(Evaluate(sample(), access.Parse("BAIFU"), now, 7))
	// end of 2024-01-16 is 6.99 days past the start of 2024-01-10; 2024-01-17 is 7.99
	want := []string{"late", "edge"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestEvaluateZeroThresholdAndScope(t *testing.T) {
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, taipei)
	got := uids(Evaluate(sample(), access.Unrestricted(), now, 0))
	if len(got) != 1 || got[0] != "late" {
		t.Fatalf("threshold 0 must keep only overdue tasks, got %v", got)
	}
	if n := len(Evaluate(sample(), access.Parse(""), now, 7)); n != 0 {
		t.Fatalf("empty scope must see nothing, got %d", n)
	}
}

func TestGateFiresOnce(t *testing.T) {
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, taipei)
	var g Gate

	if _, fire := g.Check(nil, access.Unrestricted(), now, 7); fire || g.State != Pending {
		t.Fatalf("gate must wait for a loaded collection")
	}
	due, fire := g.Check(sample(), access.Unrestricted(), now, 7)
	if !fire || len(due) != 3 || g.State != Fired {
		t.Fatalf("expected first check to fire with 3 tasks, got %v %v", uids(due), fire)
	}
	if due, fire := g.Check(sample(), access.Unrestricted(), now, 7); fire || due != nil {
		t.Fatalf("gate fired twice")
	}
}

func TestGateFiresEvenWhenNothingMatched(t *testing.T) {
	now := time.Date(2023, 1, 1, 0, 0, 0, 0, taipei)
	var g Gate
	if _, fire := g.Check(sample()[2:3], access.Unrestricted(), now, 7); fire {
		t.Fatalf("nothing is due yet")
	}
	if g.State != Fired {
		t.Fatalf("gate must be spent after the first evaluation")
	}
	later := time.Date(2024, 1, 16, 0, 0, 0, 0, taipei)
	if _, fire := g.Check(sample(), access.Unrestricted(), later, 7); fire {
		t.Fatalf("spent gate must stay silent")
	}
}

func TestGateWaitsForViewersOwnTasks(t *testing.T) {
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, taipei)
	var g Gate
	scope := access.Parse("XINYI")

	if _, fire := g.Check(sample(), scope, now, 7); fire || g.State != Pending {
		t.Fatalf("other stations' tasks must not spend the gate")
	}
	withXinyi := append(sample(), models.Task{UID: "x1", StationCode: models.StationXinyi, Deadline: "2024-01-12", Status: models.TaskPending})
	due, fire := g.Check(withXinyi, scope, now, 7)
	if !fire || len(due) != 1 || due[0].UID != "x1" || g.State != Fired {
		t.Fatalf("expected x1 to fire, got %v %v", uids(due), fire)
	}
}
