// Package poll orchestrates one polling cycle per subject: route to the
// owning session, fetch the sparse lesson list and class-hour template,
// synthesize the complete schedule, diff it against the previous snapshot
// and persist the new one.
package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/schulmanager/internal/client/router"
	"github.com/iudanet/schulmanager/internal/client/session"
	"github.com/iudanet/schulmanager/internal/client/storage"
	"github.com/iudanet/schulmanager/internal/models"
	"github.com/iudanet/schulmanager/internal/schedule"
	"github.com/iudanet/schulmanager/pkg/api"
)

const (
	// DefaultWeeksAhead is how many weeks of schedule a cycle covers,
	// starting at the Monday of the current week.
	DefaultWeeksAhead = 2

	// class-hour templates are near-static; refetch a few times a day
	templateCacheTTL = 6 * time.Hour

	// exams are announced well beyond the schedule window
	examLookahead = 30 * 24 * time.Hour
)

// Report is the outcome of one poll cycle for one subject.
type Report struct {
	Subject  models.Subject
	Snapshot *models.ScheduleSnapshot
	Changes  []models.ChangeEvent
	Homework []api.Homework
	Exams    []api.Exam
}

// Service runs poll cycles against an already-discovered router.
type Service interface {
	// Poll runs one cycle for a single subject.
	Poll(ctx context.Context, subject models.Subject) (*Report, error)

	// PollAll runs one cycle for every subject the router knows,
	// concurrently across tenants.
	PollAll(ctx context.Context) ([]*Report, error)
}

type service struct {
	router     *router.Router
	snapshots  storage.SnapshotStorage
	templates  *gocache.Cache
	logger     *slog.Logger
	weeksAhead int
	now        func() time.Time

	mu       sync.Mutex
	previous map[int]*models.ScheduleSnapshot
}

var _ Service = (*service)(nil)

// NewService creates a poll service. snapshots may be nil, in which case
// diff baselines live only in memory and every restart is a cold start.
func NewService(rt *router.Router, snapshots storage.SnapshotStorage, logger *slog.Logger, weeksAhead int) Service {
	if weeksAhead <= 0 {
		weeksAhead = DefaultWeeksAhead
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		router:     rt,
		snapshots:  snapshots,
		templates:  gocache.New(templateCacheTTL, 10*time.Minute),
		logger:     logger,
		weeksAhead: weeksAhead,
		now:        time.Now,
		previous:   make(map[int]*models.ScheduleSnapshot),
	}
}

// Poll runs one cycle for a single subject.
func (s *service) Poll(ctx context.Context, subject models.Subject) (*Report, error) {
	mgr, err := s.router.SessionFor(subject)
	if err != nil {
		return nil, err
	}

	windowStart, windowEnd := s.window()
	startStr := windowStart.Format(models.DateFormat)
	endStr := windowEnd.Format(models.DateFormat)

	records, lessons, err := fetchLessons(ctx, mgr, subject, startStr, endStr)
	if err != nil {
		return nil, fmt.Errorf("poll for subject %d: %w", subject.ID, err)
	}

	template, err := s.templateFor(ctx, mgr, subject.TenantID, lessons)
	if err != nil {
		return nil, fmt.Errorf("poll for subject %d: %w", subject.ID, err)
	}

	snapshot, err := schedule.Synthesize(subject.ID, windowStart, windowEnd, records, template, s.now())
	if err != nil {
		return nil, fmt.Errorf("poll for subject %d: %w", subject.ID, err)
	}

	previous := s.previousSnapshot(ctx, subject.ID)
	changes := schedule.Diff(previous, snapshot)

	s.storeSnapshot(ctx, subject.ID, snapshot)

	report := &Report{
		Subject:  subject,
		Snapshot: snapshot,
		Changes:  changes,
	}

	// homework and exams are best-effort extras: their failure must not
	// cost us the schedule we already have
	if homework, err := fetchHomework(ctx, mgr, subject); err != nil {
		s.logger.Warn("homework fetch failed", "subject_id", subject.ID, "error", err)
	} else {
		report.Homework = homework
	}

	examEnd := windowEnd.Add(examLookahead).Format(models.DateFormat)
	if exams, err := fetchExams(ctx, mgr, subject, startStr, examEnd); err != nil {
		s.logger.Warn("exams fetch failed", "subject_id", subject.ID, "error", err)
	} else {
		report.Exams = exams
	}

	s.logger.Info("poll cycle complete",
		"subject_id", subject.ID,
		"tenant_id", subject.TenantID,
		"slots", len(snapshot.Slots),
		"changes", len(changes))

	return report, nil
}

// PollAll runs one cycle for every subject the router knows. Subjects are
// polled concurrently; requests within one tenant serialize on the session
// manager's lock.
func (s *service) PollAll(ctx context.Context) ([]*Report, error) {
	subjects := s.router.AllSubjects()
	if len(subjects) == 0 {
		return nil, fmt.Errorf("no subjects to poll")
	}

	reports := make([]*Report, len(subjects))

	g, gctx := errgroup.WithContext(ctx)
	for i, subject := range subjects {
		i, subject := i, subject
		g.Go(func() error {
			report, err := s.Poll(gctx, subject)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return reports, nil
}

// window returns the poll window: the Monday of the current week through the
// Sunday weeksAhead weeks later.
func (s *service) window() (time.Time, time.Time) {
	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	// back up to Monday; Go counts Sunday as 0
	offset := (int(start.Weekday()) + 6) % 7
	start = start.AddDate(0, 0, -offset)

	end := start.AddDate(0, 0, s.weeksAhead*7-1)
	return start, end
}

// templateFor returns the tenant's class-hour template, cached with a long
// TTL. When the class-hours endpoint yields nothing the template is derived
// from the lessons' own class-hour references.
func (s *service) templateFor(ctx context.Context, mgr *session.Manager, tenantID int, lessons []api.Lesson) (models.ClassHourTemplate, error) {
	cacheKey := strconv.Itoa(tenantID)
	if cached, ok := s.templates.Get(cacheKey); ok {
		return cached.(models.ClassHourTemplate), nil
	}

	template, err := fetchTemplate(ctx, mgr)
	if err != nil {
		return models.ClassHourTemplate{}, err
	}

	if len(template.HoursFor(time.Monday)) == 0 {
		s.logger.Warn("class-hours endpoint returned no periods, deriving template from lessons",
			"tenant_id", tenantID)
		template = templateFromLessons(lessons)
	}

	s.templates.Set(cacheKey, template, gocache.DefaultExpiration)
	return template, nil
}

// previousSnapshot returns the diff baseline: the in-memory snapshot of the
// previous cycle, or the persisted one after a restart. Nil means cold
// start, and cold starts produce no change events.
func (s *service) previousSnapshot(ctx context.Context, subjectID int) *models.ScheduleSnapshot {
	s.mu.Lock()
	previous, ok := s.previous[subjectID]
	s.mu.Unlock()
	if ok {
		return previous
	}

	if s.snapshots == nil {
		return nil
	}

	stored, err := s.snapshots.GetSnapshot(ctx, subjectID)
	if err != nil {
		if !errors.Is(err, storage.ErrSnapshotNotFound) {
			s.logger.Warn("failed to load stored snapshot", "subject_id", subjectID, "error", err)
		}
		return nil
	}
	return stored
}

func (s *service) storeSnapshot(ctx context.Context, subjectID int, snapshot *models.ScheduleSnapshot) {
	s.mu.Lock()
	s.previous[subjectID] = snapshot
	s.mu.Unlock()

	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
		s.logger.Warn("failed to persist snapshot", "subject_id", subjectID, "error", err)
	}
}
