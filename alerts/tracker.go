package alerts

import (
	"context"
	"errors"
	"fmt"

	"stationdesk/access"
	"stationdesk/models"
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAlertMismatch      = errors.New("alert does not belong to submission")
)

// Backend persists resolutions and serves the authoritative submission set.
type Backend interface {
	ResolveAlert(ctx context.Context, submissionID, alertID string) error
	Submissions(ctx context.Context) ([]models.ChecklistSubmission, error)
}

// State is the progress of one resolve action.
type State int

const (
	StateIdle State = iota
	StatePending
	StateCommitted
	StateRolledBackViaRefetch
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateCommitted:
		return "committed"
	case StateRolledBackViaRefetch:
		return "refetched"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Tracker holds a submission collection and resolves alerts against it optimistically.
// It is not safe for concurrent use.
type Tracker struct {
	backend Backend
	subs    []models.ChecklistSubmission
	states  map[string]State
}

// NewTracker starts tracking subs. The slice is copied; callers keep ownership of theirs.
func NewTracker(backend Backend, subs []models.ChecklistSubmission) *Tracker {
	own := make([]models.ChecklistSubmission, len(subs))
	copy(own, subs)
	return &Tracker{backend: backend, subs: own, states: map[string]State{}}
}

// Submissions returns the tracker's current collection.
func (t *Tracker) Submissions() []models.ChecklistSubmission {
	return t.subs
}

// Alerts derives the alerts of the current collection.
func (t *Tracker) Alerts(scope access.Scope, template []models.ChecklistItem) []Alert {
	return Derive(t.subs, scope, template)
}

// State reports the last known state of the resolve action for alertID.
func (t *Tracker) State(alertID string) State {
	return t.states[alertID]
}

// Resolve marks alertID resolved on submissionID.
//
// The mark is applied locally first, touching only that submission's ResolvedAlerts, and then
// sent to the backend. When the backend rejects it, the whole collection is replaced by a fresh
// fetch instead of undoing the local mark; the returned error carries the rejection. If that
// fetch fails too the action stays Pending and both errors are returned.
func (t *Tracker) Resolve(ctx context.Context, submissionID, alertID string) (State, error) {
	idx := -1
	for i := range t.subs {
		if t.subs[i].ID == submissionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return StateIdle, fmt.Errorf("resolve %s: %w", alertID, ErrSubmissionNotFound)
	}
	if ID(t.subs[idx]) != alertID {
		return StateIdle, fmt.Errorf("resolve %s on %s: %w", alertID, submissionID, ErrAlertMismatch)
	}

	sub := &t.subs[idx]
	if !sub.HasResolved(alertID) {
		resolved := make([]string, len(sub.ResolvedAlerts), len(sub.ResolvedAlerts)+1)
		copy(resolved, sub.ResolvedAlerts)
		sub.ResolvedAlerts = append(resolved, alertID)
	}
	t.states[alertID] = StatePending

	err := t.backend.ResolveAlert(ctx, submissionID, alertID)
	if err == nil {
		t.states[alertID] = StateCommitted
		return StateCommitted, nil
	}

	fresh, ferr := t.backend.Submissions(ctx)
	if ferr != nil {
		return StatePending, errors.Join(
			fmt.Errorf("resolve %s: %w", alertID, err),
			fmt.Errorf("refetch submissions: %w", ferr),
		)
	}
	t.subs = fresh
	t.states[alertID] = StateRolledBackViaRefetch
	return StateRolledBackViaRefetch, fmt.Errorf("resolve %s: %w", alertID, err)
}
