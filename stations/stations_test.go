package stations

import (
	"testing"

	"stationdesk/models"
)

func TestCatalogueHasFourStations(t *testing.T) {
	all := All()
	if len(all) != 4 {
		t.Fatalf("expected 4 stations, got %d", len(all))
	}
	if all[0].Code != models.StationBaifu || all[3].Code != models.StationSheliao {
		t.Fatalf("unexpected order: %v", all)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	all := All()
	all[0].Name = "changed"
	if NameOf(models.StationBaifu) == "changed" {
		t.Fatalf("catalogue was mutated through All()")
	}
}

func TestCodeByNameUnknown(t *testing.T) {
	if _, ok := CodeByName("不存在停車場"); ok {
		t.Fatalf("unknown name must not resolve")
	}
	code, ok := CodeByName("成功立體停車場")
	if !ok || code != models.StationCheng {
		t.Fatalf("expected CHENG, got %q (%v)", code, ok)
	}
}

func TestNameOfFallsBackToCode(t *testing.T) {
	if got := NameOf("NOPE"); got != "NOPE" {
		t.Fatalf("expected code fallback, got %q", got)
	}
	if IsKnown("NOPE") {
		t.Fatalf("NOPE should not be known")
	}
}
