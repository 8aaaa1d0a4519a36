// Package audit records who did what through the API.
package audit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"stationdesk/models"
)

// Sink stores audit entries.
type Sink interface {
	AppendLog(ctx context.Context, entry models.AuditLog) error
}

// Logger writes audit entries to a sink and mirrors them to the process log.
type Logger struct {
	sink Sink
	now  func() time.Time
}

// New creates an audit logger timestamping entries with now.
func New(sink Sink, now func() time.Time) *Logger {
	if now == nil {
		now = time.Now
	}
	return &Logger{sink: sink, now: now}
}

// Record appends an audit entry. A failing sink is logged and otherwise ignored;
// the audited operation has already happened.
func (l *Logger) Record(ctx context.Context, userEmail string, action models.LogAction, taskUID, details string) models.AuditLog {
	entry := models.AuditLog{
		ID:        fmt.Sprintf("log-%s", uuid.NewString()),
		Timestamp: l.now().Format(time.RFC3339),
		UserEmail: userEmail,
		Action:    action,
		TaskUID:   taskUID,
		Details:   details,
	}
	log.Printf("AUDIT: User '%s' performed action '%s' - Details: %s", userEmail, action, details)
	if err := l.sink.AppendLog(ctx, entry); err != nil {
		log.Printf("❌ Failed to store audit log %s: %v", entry.ID, err)
	}
	return entry
}
