package access

import (
	"testing"

	"stationdesk/models"
	"stationdesk/stations"
)

func TestAllGrantsEveryKnownStation(t *testing.T) {
	for _, assigned := range []string{"ALL", "BAIFU,ALL", " ALL "} {
		s := Parse(assigned)
		for _, st := range stations.All() {
			if !s.CanAccess(st.Code) {
				t.Fatalf("%q should grant %s", assigned, st.Code)
			}
		}
		if !s.All() {
			t.Fatalf("%q should be unrestricted", assigned)
		}
	}
}

func TestEmptyAssignmentFailsClosed(t *testing.T) {
	for _, assigned := range []string{"", " ", ",", " , "} {
		s := Parse(assigned)
		if !s.Empty() {
			t.Fatalf("%q should grant nothing", assigned)
		}
		for _, st := range stations.All() {
			if s.CanAccess(st.Code) {
				t.Fatalf("%q must not grant %s", assigned, st.Code)
			}
		}
		if s.CanAccess("ALL") || s.CanAccess("") {
			t.Fatalf("%q must not grant sentinel or empty codes", assigned)
		}
	}
}

func TestZeroScopeAndNilUser(t *testing.T) {
	var s Scope
	if s.CanAccess(models.StationBaifu) {
		t.Fatalf("zero scope must grant nothing")
	}
	if ScopeFor(nil).CanAccess(models.StationBaifu) {
		t.Fatalf("nil user must grant nothing")
	}
}

func TestExplicitCodes(t *testing.T) {
	s := ScopeFor(&models.User{AssignedStation: "CHENG, BAIFU,bogus"})
	if !s.CanAccess(models.StationBaifu) || !s.CanAccess(models.StationCheng) {
		t.Fatalf("assigned stations should be granted")
	}
	if s.CanAccess(models.StationXinyi) {
		t.Fatalf("XINYI was not assigned")
	}
	if got := s.String(); got != "BAIFU,CHENG,bogus" {
		t.Fatalf("unexpected canonical form %q", got)
	}
	if got := len(s.Stations()); got != 2 {
		t.Fatalf("expected 2 known stations, got %d", got)
	}
}

func TestFilterTasks(t *testing.T) {
	tasks := []models.Task{
		{UID: "1", StationCode: models.StationBaifu},
		{UID: "2", StationCode: models.StationXinyi},
		{UID: "3", StationCode: models.StationBaifu},
	}
	got := FilterTasks(Of(models.StationBaifu), tasks)
	if len(got) != 2 || got[0].UID != "1" || got[1].UID != "3" {
		t.Fatalf("unexpected filter result: %+v", got)
	}
	if len(FilterTasks(Scope{}, tasks)) != 0 {
		t.Fatalf("empty scope must filter everything")
	}
}
