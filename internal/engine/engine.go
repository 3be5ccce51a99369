package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"courseline/internal/config"
	"courseline/internal/domain"
	"courseline/internal/engine/auth"
	"courseline/internal/engine/lifecycle"
	"courseline/internal/engine/policy"
	"courseline/internal/events"
	"courseline/internal/repo"
)

// Engine orchestrates the catalog services against the store. Every mutation
// under a course runs as one unit of work on that course's aggregate.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Auth   auth.Service
	Config *config.Config
	Log    logrus.FieldLogger
	Now    func() time.Time

	locks *courseLocks
}

func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Auth:   auth.New(db),
		Config: cfg,
		Log:    logrus.StandardLogger(),
		Now:    time.Now,
		locks:  newCourseLocks(),
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) stamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) log() logrus.FieldLogger {
	if e.Log != nil {
		return e.Log
	}
	return logrus.StandardLogger()
}

func (e Engine) config() *config.Config {
	if e.Config != nil {
		return e.Config
	}
	return config.Default()
}

func (e Engine) emit(ctx context.Context, tx *sql.Tx, evtType, courseID, kind, id string, p domain.Principal, payload events.EventPayload) error {
	w := e.Events
	w.Now = e.now
	return w.Append(ctx, tx, evtType, courseID, kind, id, p.UserID, payload)
}

// deny logs a rejected write and returns the authorization error for it.
func (e Engine) deny(p domain.Principal, action string) error {
	e.log().WithFields(logrus.Fields{"user_id": p.UserID, "roles": p.Roles, "action": action}).Info("write rejected")
	return domain.Forbidden(action)
}

// notFound converts a repo miss into a typed NotFoundError.
func notFound(err error, entity, id string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return domain.NotFound(entity, id)
	}
	return err
}

// orNotFound treats a nil error as a miss, for rows found under the wrong parent.
func orNotFound(err error) error {
	if err == nil {
		return repo.ErrNotFound
	}
	return err
}

// unit is the state of one course-scoped transaction.
type unit struct {
	tx      *sql.Tx
	course  domain.Course
	dirty   bool
	deleted bool
}

// withCourse runs fn as one unit of work on the course aggregate. Writers on the
// same course are serialized in process, and the course version guards against
// writers in other processes.
func (e Engine) withCourse(ctx context.Context, courseID string, fn func(u *unit) error) error {
	if e.locks != nil {
		unlock := e.locks.lock(courseID)
		defer unlock()
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	course, err := e.Repo.GetCourse(ctx, tx, courseID)
	if err != nil {
		return notFound(err, "course", courseID)
	}
	u := &unit{tx: tx, course: course}
	if err := fn(u); err != nil {
		return err
	}
	if u.dirty && !u.deleted {
		if err := e.Repo.BumpCourseVersion(ctx, tx, courseID, course.Version); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return tx.Commit()
}

// loadTree attaches sections, lessons and content blocks to c.
func (e Engine) loadTree(ctx context.Context, tx *sql.Tx, c domain.Course) (domain.Course, error) {
	sections, err := e.Repo.ListSections(ctx, tx, c.ID)
	if err != nil {
		return c, fmt.Errorf("list sections: %w", err)
	}
	lessons, err := e.Repo.ListCourseLessons(ctx, tx, c.ID)
	if err != nil {
		return c, fmt.Errorf("list lessons: %w", err)
	}
	blocks, err := e.Repo.ListCourseBlocks(ctx, tx, c.ID)
	if err != nil {
		return c, fmt.Errorf("list content blocks: %w", err)
	}
	byLesson := map[string][]domain.ContentBlock{}
	for _, b := range blocks {
		byLesson[b.LessonID] = append(byLesson[b.LessonID], b)
	}
	bySection := map[string][]domain.Lesson{}
	for _, l := range lessons {
		l.Blocks = byLesson[l.ID]
		bySection[l.SectionID] = append(bySection[l.SectionID], l)
	}
	for i := range sections {
		sections[i].Lessons = bySection[sections[i].ID]
	}
	c.Sections = sections
	return c, nil
}

// visibleTree drops every section and lesson p may not read.
func visibleTree(p domain.Principal, c domain.Course) domain.Course {
	var sections []domain.Section
	for _, s := range c.Sections {
		chain := policy.Chain{InstructorID: c.InstructorID, Course: c.Status, Section: s.Status}
		if !policy.CanViewSection(p, chain) {
			continue
		}
		s.Lessons = visibleLessons(p, chain, s.Lessons)
		sections = append(sections, s)
	}
	c.Sections = sections
	return c
}

func visibleLessons(p domain.Principal, chain policy.Chain, lessons []domain.Lesson) []domain.Lesson {
	var out []domain.Lesson
	for _, l := range lessons {
		chain.Lesson = l.Status
		if policy.CanViewLesson(p, chain) {
			out = append(out, l)
		}
	}
	return out
}

// applyStatus writes every change of plan, stamping each entity.
func (e Engine) applyStatus(ctx context.Context, tx *sql.Tx, plan lifecycle.Plan, ts string) error {
	for _, ch := range plan.Changes() {
		var err error
		switch ch.Level {
		case lifecycle.LevelCourse:
			err = e.Repo.SetCourseStatus(ctx, tx, ch.ID, ch.To, ts)
		case lifecycle.LevelSection:
			err = e.Repo.SetSectionStatus(ctx, tx, ch.ID, ch.To, ts)
		case lifecycle.LevelLesson:
			err = e.Repo.SetLessonStatus(ctx, tx, ch.ID, ch.To, ts)
		default:
			err = fmt.Errorf("unknown level %q", ch.Level)
		}
		if err != nil {
			return fmt.Errorf("set %s %s status: %w", ch.Level, ch.ID, err)
		}
	}
	return nil
}

func statusPayload(plan lifecycle.Plan) events.EventPayload {
	return events.EventPayload{"from": plan.Target.From, "to": plan.Target.To, "cascade": plan.Cascade}
}

// ListEvents returns the audit trail. Admins only.
func (e Engine) ListEvents(ctx context.Context, p domain.Principal, f repo.EventFilter) ([]domain.Event, error) {
	if !p.IsAdmin() {
		return nil, e.deny(p, "read the audit log")
	}
	return e.Repo.LatestEvents(ctx, f)
}

func pageBounds(cfg *config.Config, page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	size := cfg.PageSize(pageSize)
	return page, size, (page - 1) * size
}
