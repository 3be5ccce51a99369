package engine

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"courseline/internal/domain"
	"courseline/internal/engine/lifecycle"
	"courseline/internal/engine/order"
	"courseline/internal/engine/policy"
	"courseline/internal/events"
	"courseline/internal/validation"
)

// LessonInput creates a lesson with optional initial content blocks. Block
// orders are made dense, keeping their relative order.
type LessonInput struct {
	Title  string                `json:"title" validate:"required,max=200"`
	Order  *int                  `json:"order"`
	Blocks []domain.ContentBlock `json:"content_blocks"`
}

// LessonUpdate changes the non-nil fields of a lesson.
type LessonUpdate struct {
	Title *string `json:"title" validate:"omitnil,required,max=200"`
	Order *int    `json:"order"`
}

// sectionScope resolves the section and its course for reads.
func (e Engine) sectionScope(ctx context.Context, sectionID string) (domain.Section, domain.Course, error) {
	s, err := e.Repo.GetSection(ctx, nil, sectionID)
	if err != nil {
		return s, domain.Course{}, notFound(err, "section", sectionID)
	}
	c, err := e.Repo.GetCourse(ctx, nil, s.CourseID)
	if err != nil {
		return s, c, notFound(err, "section", sectionID)
	}
	return s, c, nil
}

// withSection runs fn in the unit of work of the course owning sectionID.
func (e Engine) withSection(ctx context.Context, sectionID string, fn func(u *unit, s domain.Section) error) error {
	s, err := e.Repo.GetSection(ctx, nil, sectionID)
	if err != nil {
		return notFound(err, "section", sectionID)
	}
	return e.withCourse(ctx, s.CourseID, func(u *unit) error {
		current, err := e.Repo.GetSection(ctx, u.tx, sectionID)
		if err != nil || current.CourseID != u.course.ID {
			return notFound(orNotFound(err), "section", sectionID)
		}
		return fn(u, current)
	})
}

// GetLessonsBySection lists the lessons p may see, in order. A hidden section is not found.
func (e Engine) GetLessonsBySection(ctx context.Context, p domain.Principal, sectionID string) ([]domain.Lesson, error) {
	s, c, err := e.sectionScope(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	chain := policy.Chain{InstructorID: c.InstructorID, Course: c.Status, Section: s.Status}
	if !policy.CanViewSection(p, chain) {
		return nil, domain.NotFound("section", sectionID)
	}
	lessons, err := e.Repo.ListLessons(ctx, nil, sectionID)
	if err != nil {
		return nil, err
	}
	out := visibleLessons(p, chain, lessons)
	if out == nil {
		out = []domain.Lesson{}
	}
	return out, nil
}

// GetLesson returns one visible lesson with its content blocks.
func (e Engine) GetLesson(ctx context.Context, p domain.Principal, sectionID, lessonID string) (domain.Lesson, error) {
	s, c, err := e.sectionScope(ctx, sectionID)
	if err != nil {
		return domain.Lesson{}, err
	}
	l, err := e.Repo.GetLesson(ctx, nil, lessonID)
	if err != nil || l.SectionID != sectionID {
		return domain.Lesson{}, notFound(orNotFound(err), "lesson", lessonID)
	}
	chain := policy.Chain{InstructorID: c.InstructorID, Course: c.Status, Section: s.Status, Lesson: l.Status}
	if !policy.CanViewLesson(p, chain) {
		return domain.Lesson{}, domain.NotFound("lesson", lessonID)
	}
	if l.Blocks, err = e.Repo.ListBlocks(ctx, nil, lessonID); err != nil {
		return domain.Lesson{}, err
	}
	return l, nil
}

func (e Engine) CreateLesson(ctx context.Context, p domain.Principal, sectionID string, in LessonInput) (domain.Lesson, error) {
	var out domain.Lesson
	err := e.withSection(ctx, sectionID, func(u *unit, s domain.Section) error {
		if !policy.CanEditLesson(p, u.course.InstructorID) {
			return e.deny(p, "add lessons to section "+sectionID)
		}
		in.Title = strings.TrimSpace(in.Title)
		if err := validation.Struct(in); err != nil {
			return err
		}
		for _, b := range in.Blocks {
			if err := validation.Content(b.Content); err != nil {
				return err
			}
		}
		existing, err := e.Repo.ListLessons(ctx, u.tx, sectionID)
		if err != nil {
			return err
		}
		ts := e.stamp()
		assigned, shifted, err := e.lessonSiblings(ts).makeRoom(ctx, u.tx, without(existing, "", lessonKey), in.Order, ts)
		if err != nil {
			return err
		}
		out = domain.Lesson{
			ID:        uuid.NewString(),
			SectionID: sectionID,
			Title:     in.Title,
			Order:     assigned,
			Status:    domain.StatusDraft,
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		if err := e.Repo.InsertLesson(ctx, u.tx, out); err != nil {
			return err
		}
		blocks := make([]*domain.ContentBlock, len(in.Blocks))
		for i := range in.Blocks {
			b := in.Blocks[i]
			b.ID = uuid.NewString()
			b.LessonID = out.ID
			b.CreatedAt = ts
			b.UpdatedAt = ts
			blocks[i] = &b
		}
		order.Normalize(blocks, e.blockSiblings(ts).acc)
		for _, b := range blocks {
			if err := e.Repo.InsertBlock(ctx, u.tx, *b); err != nil {
				return err
			}
			out.Blocks = append(out.Blocks, *b)
		}
		u.dirty = true
		e.log().WithFields(logrus.Fields{"course_id": u.course.ID, "entity": out.ID, "op": "create", "order": assigned}).Debug("lesson created")
		return e.emit(ctx, u.tx, events.LessonCreated, u.course.ID, "lesson", out.ID, p, events.EventPayload{
			"section_id": sectionID, "order": assigned, "shifted": shifted, "blocks": len(out.Blocks),
		})
	})
	return out, err
}

func (e Engine) UpdateLesson(ctx context.Context, p domain.Principal, sectionID, lessonID string, upd LessonUpdate) (domain.Lesson, error) {
	var out domain.Lesson
	err := e.withSection(ctx, sectionID, func(u *unit, s domain.Section) error {
		if !policy.CanEditLesson(p, u.course.InstructorID) {
			return e.deny(p, "edit lessons of section "+sectionID)
		}
		if upd.Title != nil {
			t := strings.TrimSpace(*upd.Title)
			upd.Title = &t
		}
		if err := validation.Struct(upd); err != nil {
			return err
		}
		all, err := e.Repo.ListLessons(ctx, u.tx, sectionID)
		if err != nil {
			return err
		}
		target := find(all, lessonID, lessonKey)
		if target == nil {
			return domain.NotFound("lesson", lessonID)
		}
		ts := e.stamp()
		if upd.Title != nil && *upd.Title != target.Title {
			if err := e.Repo.UpdateLessonTitle(ctx, u.tx, lessonID, *upd.Title, ts); err != nil {
				return err
			}
			target.Title = *upd.Title
			target.UpdatedAt = ts
			u.dirty = true
			if err := e.emit(ctx, u.tx, events.LessonUpdated, u.course.ID, "lesson", lessonID, p, events.EventPayload{"title": target.Title}); err != nil {
				return err
			}
		}
		if upd.Order != nil {
			from := target.Order
			moved, shifted, err := e.lessonSiblings(ts).move(ctx, u.tx, target, without(all, lessonID, lessonKey), *upd.Order, ts)
			if err != nil {
				return err
			}
			if moved {
				u.dirty = true
				if err := e.emit(ctx, u.tx, events.LessonMoved, u.course.ID, "lesson", lessonID, p, events.EventPayload{"from": from, "to": target.Order, "shifted": shifted}); err != nil {
					return err
				}
			}
		}
		out = *target
		return nil
	})
	return out, err
}

// DeleteLesson removes the lesson and its blocks, then closes the gap it leaves.
func (e Engine) DeleteLesson(ctx context.Context, p domain.Principal, sectionID, lessonID string) error {
	return e.withSection(ctx, sectionID, func(u *unit, s domain.Section) error {
		if !policy.CanEditLesson(p, u.course.InstructorID) {
			return e.deny(p, "delete lessons of section "+sectionID)
		}
		all, err := e.Repo.ListLessons(ctx, u.tx, sectionID)
		if err != nil {
			return err
		}
		target := find(all, lessonID, lessonKey)
		if target == nil {
			return domain.NotFound("lesson", lessonID)
		}
		if err := e.Repo.DeleteLesson(ctx, u.tx, lessonID); err != nil {
			return notFound(err, "lesson", lessonID)
		}
		ts := e.stamp()
		shifted, err := e.lessonSiblings(ts).closeGap(ctx, u.tx, without(all, lessonID, lessonKey), target.Order, ts)
		if err != nil {
			return err
		}
		u.dirty = true
		return e.emit(ctx, u.tx, events.LessonDeleted, u.course.ID, "lesson", lessonID, p, events.EventPayload{"order": target.Order, "shifted": shifted})
	})
}

// UpdateLessonStatus changes a lesson's status. Publishing needs a Published section and course.
func (e Engine) UpdateLessonStatus(ctx context.Context, p domain.Principal, sectionID, lessonID, status string) (lifecycle.Plan, error) {
	var plan lifecycle.Plan
	err := e.withSection(ctx, sectionID, func(u *unit, s domain.Section) error {
		if !policy.CanEditLesson(p, u.course.InstructorID) {
			return e.deny(p, "change lesson status in section "+sectionID)
		}
		to, err := domain.ParseStatus(status)
		if err != nil {
			return err
		}
		l, err := e.Repo.GetLesson(ctx, u.tx, lessonID)
		if err != nil || l.SectionID != sectionID {
			return notFound(orNotFound(err), "lesson", lessonID)
		}
		plan, err = lifecycle.PlanLesson(u.course.Status, s.Status, l, to)
		if err != nil {
			return err
		}
		if plan.Noop() {
			return nil
		}
		if err := e.applyStatus(ctx, u.tx, plan, e.stamp()); err != nil {
			return err
		}
		u.dirty = true
		e.log().WithFields(logrus.Fields{"course_id": u.course.ID, "entity": lessonID, "op": "status", "to": to}).Debug("lesson status changed")
		return e.emit(ctx, u.tx, events.LessonStatusChanged, u.course.ID, "lesson", lessonID, p, statusPayload(plan))
	})
	return plan, err
}
