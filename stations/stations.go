// Package stations holds the fixed station catalogue.
package stations

import "stationdesk/models"

var catalogue = []models.Station{
	{Code: models.StationBaifu, Name: "百福立體停車場"},
	{Code: models.StationCheng, Name: "成功立體停車場"},
	{Code: models.StationXinyi, Name: "信義國小地下停車場"},
	{Code: models.StationSheliao, Name: "社寮橋平面停車場"},
}

// All returns the stations in catalogue order. The slice is a copy.
func All() []models.Station {
	out := make([]models.Station, len(catalogue))
	copy(out, catalogue)
	return out
}

// Lookup finds a station by code.
func Lookup(code models.StationCode) (models.Station, bool) {
	for _, s := range catalogue {
		if s.Code == code {
			return s, true
		}
	}
	return models.Station{}, false
}

// IsKnown reports whether code belongs to the catalogue.
func IsKnown(code models.StationCode) bool {
	_, ok := Lookup(code)
	return ok
}

// NameOf returns the display name for code, or the code itself when it is unknown.
func NameOf(code models.StationCode) string {
	if s, ok := Lookup(code); ok {
		return s.Name
	}
	return string(code)
}

// CodeByName maps a display name back to its code.
// Unknown names are reported as not found rather than guessed.
func CodeByName(name string) (models.StationCode, bool) {
	for _, s := range catalogue {
		if s.Name == name {
			return s.Code, true
		}
	}
	return "", false
}
