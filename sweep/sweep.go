// Package sweep runs the scheduled task health check.
package sweep

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"stationdesk/access"
	"stationdesk/duesoon"
	"stationdesk/models"
	"stationdesk/session"
	"stationdesk/stations"
	"stationdesk/status"
	"stationdesk/tasks"
)

// DefaultSchedule runs at 00:30:00 every day. The format has a leading seconds field.
const DefaultSchedule = "0 30 0 * * *"

// TaskSource loads the full task collection.
type TaskSource interface {
	Tasks(ctx context.Context) ([]models.Task, error)
}

// Report is the outcome of one sweep.
type Report struct {
	Summary          tasks.Summary
	DueSoon          int
	InvalidDeadlines []string
	UnknownStations  []string
	PrunedSessions   int
}

// Sweeper evaluates every task on a schedule and logs what needs attention.
type Sweeper struct {
	cronScheduler *cron.Cron
	source        TaskSource
	sessions      *session.Registry
	threshold     int
	timeout       time.Duration
	jobID         cron.EntryID
	now           func() time.Time
}

// New creates a sweeper evaluating dates in loc. sessions may be nil.
func New(source TaskSource, sessions *session.Registry, loc *time.Location, thresholdDays int) *Sweeper {
	if loc == nil {
		loc = time.Local
	}
	return &Sweeper{
		cronScheduler: cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		source:        source,
		sessions:      sessions,
		threshold:     thresholdDays,
		timeout:       2 * time.Minute,
		now:           func() time.Time { return time.Now().In(loc) },
	}
}

// Start schedules the sweep and starts the scheduler.
func (s *Sweeper) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	var err error
	s.jobID, err = s.cronScheduler.AddFunc(schedule, s.run)
	if err != nil {
		return fmt.Errorf("error scheduling sweep: %w", err)
	}

	s.cronScheduler.Start()
	log.Printf("🧹 Task sweep scheduled (%s)", schedule)
	return nil
}

// Stop terminates the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cronScheduler != nil {
		<-s.cronScheduler.Stop().Done()
		log.Println("Task sweep stopped")
	}
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		log.Printf("❌ Task sweep failed: %v", err)
	}
}

// RunOnce loads all tasks and reports overdue counts per station, tasks due soon,
// and rows whose deadline or station cannot be read.
func (s *Sweeper) RunOnce(ctx context.Context) (Report, error) {
	all, err := s.source.Tasks(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load tasks: %w", err)
	}
	now := s.now()

	rep := Report{
		Summary: tasks.Aggregate(all, access.Unrestricted(), now),
		DueSoon: len(duesoon.Evaluate(all, access.Unrestricted(), now, s.threshold)),
	}
	for _, t := range all {
		if _, _, _, ok := status.CalendarDate(t.Deadline, now.Location()); !ok {
			rep.InvalidDeadlines = append(rep.InvalidDeadlines, t.UID)
		}
		if !stations.IsKnown(t.StationCode) {
			rep.UnknownStations = append(rep.UnknownStations, t.UID)
		}
	}
	if s.sessions != nil {
		rep.PrunedSessions = s.sessions.Prune(now)
	}

	for _, st := range rep.Summary.PerStation {
		if st.Overdue > 0 {
			log.Printf("⚠️  %s: %d overdue of %d", st.StationName, st.Overdue, st.Total)
		}
	}
	if len(rep.InvalidDeadlines) > 0 {
		log.Printf("Warning: %d tasks have unreadable deadlines: %v", len(rep.InvalidDeadlines), rep.InvalidDeadlines)
	}
	if len(rep.UnknownStations) > 0 {
		log.Printf("Warning: %d tasks belong to no known station: %v", len(rep.UnknownStations), rep.UnknownStations)
	}
	log.Printf("✅ Task sweep done: %d tasks, %d overdue, %d due soon, completion %d%%",
		rep.Summary.Global.Total, rep.Summary.Global.Overdue, rep.DueSoon, rep.Summary.Global.Rate)
	return rep, nil
}
