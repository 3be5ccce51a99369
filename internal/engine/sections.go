package engine

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"courseline/internal/domain"
	"courseline/internal/engine/lifecycle"
	"courseline/internal/engine/policy"
	"courseline/internal/events"
	"courseline/internal/validation"
)

// SectionInput creates a section. A nil Order appends.
type SectionInput struct {
	Title string `json:"title" validate:"required,max=200"`
	Order *int   `json:"order"`
}

// SectionUpdate changes the non-nil fields of a section.
type SectionUpdate struct {
	Title *string `json:"title" validate:"omitnil,required,max=200"`
	Order *int    `json:"order"`
}

// GetSections lists the sections of a course that p may see, with their visible lessons.
func (e Engine) GetSections(ctx context.Context, p domain.Principal, courseID string) ([]domain.Section, error) {
	c, err := e.GetCourse(ctx, p, courseID)
	if err != nil {
		return nil, err
	}
	if c.Sections == nil {
		return []domain.Section{}, nil
	}
	return c.Sections, nil
}

func (e Engine) GetSection(ctx context.Context, p domain.Principal, courseID, sectionID string) (domain.Section, error) {
	c, err := e.GetCourse(ctx, p, courseID)
	if err != nil {
		return domain.Section{}, err
	}
	for _, s := range c.Sections {
		if s.ID == sectionID {
			return s, nil
		}
	}
	return domain.Section{}, domain.NotFound("section", sectionID)
}

func (e Engine) CreateSection(ctx context.Context, p domain.Principal, courseID string, in SectionInput) (domain.Section, error) {
	var out domain.Section
	err := e.withCourse(ctx, courseID, func(u *unit) error {
		if !policy.CanEditSection(p, u.course.InstructorID) {
			return e.deny(p, "add sections to course "+courseID)
		}
		in.Title = strings.TrimSpace(in.Title)
		if err := validation.Struct(in); err != nil {
			return err
		}
		existing, err := e.Repo.ListSections(ctx, u.tx, courseID)
		if err != nil {
			return err
		}
		ts := e.stamp()
		assigned, shifted, err := e.sectionSiblings(ts).makeRoom(ctx, u.tx, without(existing, "", sectionKey), in.Order, ts)
		if err != nil {
			return err
		}
		out = domain.Section{
			ID:        uuid.NewString(),
			CourseID:  courseID,
			Title:     in.Title,
			Order:     assigned,
			Status:    domain.StatusDraft,
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		if err := e.Repo.InsertSection(ctx, u.tx, out); err != nil {
			return err
		}
		u.dirty = true
		e.log().WithFields(logrus.Fields{"course_id": courseID, "entity": out.ID, "op": "create", "order": assigned}).Debug("section created")
		return e.emit(ctx, u.tx, events.SectionCreated, courseID, "section", out.ID, p, events.EventPayload{"order": assigned, "shifted": shifted})
	})
	return out, err
}

func (e Engine) UpdateSection(ctx context.Context, p domain.Principal, courseID, sectionID string, upd SectionUpdate) (domain.Section, error) {
	var out domain.Section
	err := e.withCourse(ctx, courseID, func(u *unit) error {
		if !policy.CanEditSection(p, u.course.InstructorID) {
			return e.deny(p, "edit sections of course "+courseID)
		}
		if upd.Title != nil {
			t := strings.TrimSpace(*upd.Title)
			upd.Title = &t
		}
		if err := validation.Struct(upd); err != nil {
			return err
		}
		all, err := e.Repo.ListSections(ctx, u.tx, courseID)
		if err != nil {
			return err
		}
		target := find(all, sectionID, sectionKey)
		if target == nil {
			return domain.NotFound("section", sectionID)
		}
		ts := e.stamp()
		if upd.Title != nil && *upd.Title != target.Title {
			if err := e.Repo.UpdateSectionTitle(ctx, u.tx, sectionID, *upd.Title, ts); err != nil {
				return err
			}
			target.Title = *upd.Title
			target.UpdatedAt = ts
			u.dirty = true
			if err := e.emit(ctx, u.tx, events.SectionUpdated, courseID, "section", sectionID, p, events.EventPayload{"title": target.Title}); err != nil {
				return err
			}
		}
		if upd.Order != nil {
			from := target.Order
			moved, shifted, err := e.sectionSiblings(ts).move(ctx, u.tx, target, without(all, sectionID, sectionKey), *upd.Order, ts)
			if err != nil {
				return err
			}
			if moved {
				u.dirty = true
				e.log().WithFields(logrus.Fields{"course_id": courseID, "entity": sectionID, "op": "move", "from": from, "to": target.Order}).Debug("section moved")
				if err := e.emit(ctx, u.tx, events.SectionMoved, courseID, "section", sectionID, p, events.EventPayload{"from": from, "to": target.Order, "shifted": shifted}); err != nil {
					return err
				}
			}
		}
		out = *target
		return nil
	})
	return out, err
}

// DeleteSection removes the section and its lessons, then closes the gap it leaves.
func (e Engine) DeleteSection(ctx context.Context, p domain.Principal, courseID, sectionID string) error {
	return e.withCourse(ctx, courseID, func(u *unit) error {
		if !policy.CanEditSection(p, u.course.InstructorID) {
			return e.deny(p, "delete sections of course "+courseID)
		}
		all, err := e.Repo.ListSections(ctx, u.tx, courseID)
		if err != nil {
			return err
		}
		target := find(all, sectionID, sectionKey)
		if target == nil {
			return domain.NotFound("section", sectionID)
		}
		if err := e.Repo.DeleteSection(ctx, u.tx, sectionID); err != nil {
			return notFound(err, "section", sectionID)
		}
		ts := e.stamp()
		shifted, err := e.sectionSiblings(ts).closeGap(ctx, u.tx, without(all, sectionID, sectionKey), target.Order, ts)
		if err != nil {
			return err
		}
		u.dirty = true
		e.log().WithFields(logrus.Fields{"course_id": courseID, "entity": sectionID, "op": "delete"}).Debug("section deleted")
		return e.emit(ctx, u.tx, events.SectionDeleted, courseID, "section", sectionID, p, events.EventPayload{"order": target.Order, "shifted": shifted})
	})
}

// UpdateSectionStatus changes a section's status. Publishing needs a Published
// course; Draft and Archived force the section's Published lessons along.
func (e Engine) UpdateSectionStatus(ctx context.Context, p domain.Principal, courseID, sectionID, status string) (lifecycle.Plan, error) {
	var plan lifecycle.Plan
	err := e.withCourse(ctx, courseID, func(u *unit) error {
		if !policy.CanEditSection(p, u.course.InstructorID) {
			return e.deny(p, "change section status in course "+courseID)
		}
		to, err := domain.ParseStatus(status)
		if err != nil {
			return err
		}
		s, err := e.Repo.GetSection(ctx, u.tx, sectionID)
		if err != nil || s.CourseID != courseID {
			return notFound(orNotFound(err), "section", sectionID)
		}
		if s.Lessons, err = e.Repo.ListLessons(ctx, u.tx, sectionID); err != nil {
			return err
		}
		plan, err = lifecycle.PlanSection(u.course.Status, s, to)
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
		e.log().WithFields(logrus.Fields{"course_id": courseID, "entity": sectionID, "op": "status", "to": to}).Debug("section status changed")
		return e.emit(ctx, u.tx, events.SectionStatusChanged, courseID, "section", sectionID, p, statusPayload(plan))
	})
	return plan, err
}
