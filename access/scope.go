// Package access resolves a user's station assignment into a permission predicate.
//
// The assignment arrives as a comma-joined string ("ALL", "BAIFU,CHENG"). It is parsed once, where a
// user enters the engine, and from then on only the Scope value is passed around. A missing or empty
// assignment grants nothing.
package access

import (
	"sort"
	"strings"

	"stationdesk/models"
	"stationdesk/stations"
)

// Scope is the set of stations a viewer may see, or every station.
// The zero value grants no access.
type Scope struct {
	all   bool
	codes map[models.StationCode]struct{}
}

// Parse turns an assignment string into a Scope.
func Parse(assigned string) Scope {
	s := Scope{codes: map[models.StationCode]struct{}{}}
	for _, part := range strings.Split(assigned, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if part == models.AllStations {
			s.all = true
			continue
		}
		s.codes[models.StationCode(part)] = struct{}{}
	}
	return s
}

// ScopeFor parses the assignment of u. A nil user gets no access.
func ScopeFor(u *models.User) Scope {
	if u == nil {
		return Scope{}
	}
	return Parse(u.AssignedStation)
}

// Unrestricted returns a Scope covering every station.
func Unrestricted() Scope {
	return Scope{all: true}
}

// Of returns a Scope covering exactly the given codes.
func Of(codes ...models.StationCode) Scope {
	s := Scope{codes: make(map[models.StationCode]struct{}, len(codes))}
	for _, c := range codes {
		s.codes[c] = struct{}{}
	}
	return s
}

// CanAccess reports whether the scope covers code.
func (s Scope) CanAccess(code models.StationCode) bool {
	if s.all {
		return true
	}
	_, ok := s.codes[code]
	return ok
}

// All reports whether the scope is unrestricted.
func (s Scope) All() bool { return s.all }

// Empty reports whether the scope grants nothing.
func (s Scope) Empty() bool { return !s.all && len(s.codes) == 0 }

// Codes returns the explicitly assigned codes, sorted. It is nil for an unrestricted scope.
func (s Scope) Codes() []models.StationCode {
	if s.all {
		return nil
	}
	out := make([]models.StationCode, 0, len(s.codes))
	for c := range s.codes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Stations returns the known stations the scope covers, in catalogue order.
func (s Scope) Stations() []models.Station {
	var out []models.Station
	for _, st := range stations.All() {
		if s.CanAccess(st.Code) {
			out = append(out, st)
		}
	}
	return out
}

// String renders the canonical assignment string.
func (s Scope) String() string {
	if s.all {
		return models.AllStations
	}
	codes := s.Codes()
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}

// FilterTasks keeps the tasks whose station the scope covers.
func FilterTasks(s Scope, tasks []models.Task) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if s.CanAccess(t.StationCode) {
			out = append(out, t)
		}
	}
	return out
}

// FilterSubmissions keeps the submissions whose station the scope covers.
func FilterSubmissions(s Scope, subs []models.ChecklistSubmission) []models.ChecklistSubmission {
	out := make([]models.ChecklistSubmission, 0, len(subs))
	for _, sub := range subs {
		if s.CanAccess(sub.StationCode) {
			out = append(out, sub)
		}
	}
	return out
}
