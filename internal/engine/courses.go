package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"courseline/internal/domain"
	"courseline/internal/engine/lifecycle"
	"courseline/internal/engine/policy"
	"courseline/internal/events"
	"courseline/internal/repo"
	"courseline/internal/validation"
)

// CourseQuery filters and pages ListCourses.
type CourseQuery struct {
	Search       string   `json:"search" validate:"max=200"`
	CategoryID   string   `json:"category_id"`
	InstructorID string   `json:"instructor_id"`
	MinRating    *float64 `json:"min_rating" validate:"omitnil,gte=0,lte=5"`
	SortBy       string   `json:"sort_by" validate:"omitempty,oneof=title price created rating"`
	Desc         bool     `json:"desc"`
	Page         int      `json:"page" validate:"gte=0"`
	PageSize     int      `json:"page_size" validate:"gte=0"`
}

// CourseInput creates a course.
type CourseInput struct {
	Title         string          `json:"title" validate:"required,max=200"`
	Description   string          `json:"description" validate:"max=5000"`
	Price         decimal.Decimal `json:"price" validate:"gte=0"`
	DurationWeeks *int            `json:"duration_weeks" validate:"omitnil,gte=0"`
	ImageURL      string          `json:"image_url" validate:"omitempty,url,max=2048"`
	CategoryIDs   []string        `json:"category_ids"`
}

// CourseUpdate changes the non-nil fields of a course.
type CourseUpdate struct {
	Title         *string          `json:"title" validate:"omitnil,required,max=200"`
	Description   *string          `json:"description" validate:"omitnil,max=5000"`
	Price         *decimal.Decimal `json:"price" validate:"omitnil,gte=0"`
	DurationWeeks *int             `json:"duration_weeks" validate:"omitnil,gte=0"`
	ImageURL      *string          `json:"image_url" validate:"omitnil,omitempty,url,max=2048"`
	CategoryIDs   *[]string        `json:"category_ids"`
}

// ListCourses returns one page of the courses p may see.
func (e Engine) ListCourses(ctx context.Context, p domain.Principal, q CourseQuery) (domain.Page[domain.CourseSummary], error) {
	if err := validation.Struct(q); err != nil {
		return domain.Page[domain.CourseSummary]{}, err
	}
	page, size, offset := pageBounds(e.config(), q.Page, q.PageSize)
	f := repo.CourseFilter{
		Search:       q.Search,
		CategoryID:   q.CategoryID,
		InstructorID: q.InstructorID,
		MinRating:    q.MinRating,
		IncludeAll:   p.IsAdmin(),
		SortBy:       q.SortBy,
		Desc:         q.Desc,
		Limit:        size,
		Offset:       offset,
	}
	if p.IsInstructor() {
		f.OwnerID = p.UserID
	}
	items, total, err := e.Repo.ListCourses(ctx, f)
	if err != nil {
		return domain.Page[domain.CourseSummary]{}, err
	}
	return domain.Page[domain.CourseSummary]{Items: items, Page: page, PageSize: size, Total: total}, nil
}

// GetCourse returns the course tree with everything p may not see removed.
// A course p may not see is reported as not found.
func (e Engine) GetCourse(ctx context.Context, p domain.Principal, id string) (domain.Course, error) {
	c, err := e.Repo.GetCourse(ctx, nil, id)
	if err != nil {
		return domain.Course{}, notFound(err, "course", id)
	}
	if !policy.CanViewCourse(p, policy.Chain{InstructorID: c.InstructorID, Course: c.Status}) {
		return domain.Course{}, domain.NotFound("course", id)
	}
	c, err = e.loadTree(ctx, nil, c)
	if err != nil {
		return domain.Course{}, err
	}
	return visibleTree(p, c), nil
}

func (e Engine) CreateCourse(ctx context.Context, p domain.Principal, in CourseInput) (domain.Course, error) {
	if !policy.CanCreateCourse(p) {
		return domain.Course{}, e.deny(p, "create courses")
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return domain.Course{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Course{}, err
	}
	defer tx.Rollback()
	categories := dedupe(in.CategoryIDs)
	if err := e.checkCategories(ctx, tx, categories); err != nil {
		return domain.Course{}, err
	}
	ts := e.stamp()
	c := domain.Course{
		ID:            uuid.NewString(),
		Title:         in.Title,
		Description:   in.Description,
		Price:         in.Price,
		Status:        domain.StatusDraft,
		DurationWeeks: in.DurationWeeks,
		ImageURL:      in.ImageURL,
		InstructorID:  p.UserID,
		CategoryIDs:   categories,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
	if err := e.Repo.InsertCourse(ctx, tx, c); err != nil {
		return domain.Course{}, err
	}
	if err := e.emit(ctx, tx, events.CourseCreated, c.ID, "course", c.ID, p, events.EventPayload{"title": c.Title, "price": c.Price.String()}); err != nil {
		return domain.Course{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Course{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Course{}, err
	}
	e.log().WithFields(logrus.Fields{"course_id": c.ID, "op": "create"}).Debug("course created")
	return c, nil
}

// UpdateCourse changes course fields. The instructor never changes.
func (e Engine) UpdateCourse(ctx context.Context, p domain.Principal, id string, upd CourseUpdate) (domain.Course, error) {
	var out domain.Course
	err := e.withCourse(ctx, id, func(u *unit) error {
		c := u.course
		if !policy.CanEditCourse(p, c.InstructorID) {
			return e.deny(p, "edit course "+id)
		}
		if upd.Title != nil {
			t := strings.TrimSpace(*upd.Title)
			upd.Title = &t
		}
		if err := validation.Struct(upd); err != nil {
			return err
		}
		if upd.Title != nil {
			c.Title = *upd.Title
		}
		if upd.Description != nil {
			c.Description = *upd.Description
		}
		if upd.Price != nil {
			c.Price = *upd.Price
		}
		if upd.DurationWeeks != nil {
			c.DurationWeeks = upd.DurationWeeks
		}
		if upd.ImageURL != nil {
			c.ImageURL = *upd.ImageURL
		}
		c.UpdatedAt = e.stamp()
		if err := e.Repo.UpdateCourse(ctx, u.tx, c); err != nil {
			return err
		}
		if upd.CategoryIDs != nil {
			c.CategoryIDs = dedupe(*upd.CategoryIDs)
			if err := e.checkCategories(ctx, u.tx, c.CategoryIDs); err != nil {
				return err
			}
			if err := e.Repo.SetCourseCategories(ctx, u.tx, c.ID, c.CategoryIDs); err != nil {
				return err
			}
		}
		u.dirty = true
		out = c
		return e.emit(ctx, u.tx, events.CourseUpdated, c.ID, "course", c.ID, p, events.EventPayload{"title": c.Title})
	})
	if err != nil {
		return domain.Course{}, err
	}
	return out, nil
}

// DeleteCourse removes the course and, through the schema, its whole tree.
func (e Engine) DeleteCourse(ctx context.Context, p domain.Principal, id string) error {
	return e.withCourse(ctx, id, func(u *unit) error {
		if !policy.CanEditCourse(p, u.course.InstructorID) {
			return e.deny(p, "delete course "+id)
		}
		if err := e.Repo.DeleteCourse(ctx, u.tx, id); err != nil {
			return notFound(err, "course", id)
		}
		u.deleted = true
		e.log().WithFields(logrus.Fields{"course_id": id, "op": "delete"}).Debug("course deleted")
		return e.emit(ctx, u.tx, events.CourseDeleted, id, "course", id, p, events.EventPayload{"title": u.course.Title})
	})
}

// UpdateCourseStatus moves the course to status, forcing Published sections and
// lessons along when the target is Draft or Archived.
func (e Engine) UpdateCourseStatus(ctx context.Context, p domain.Principal, id, status string) (lifecycle.Plan, error) {
	var plan lifecycle.Plan
	err := e.withCourse(ctx, id, func(u *unit) error {
		if !policy.CanEditCourse(p, u.course.InstructorID) {
			return e.deny(p, "change the status of course "+id)
		}
		to, err := domain.ParseStatus(status)
		if err != nil {
			return err
		}
		tree, err := e.loadTree(ctx, u.tx, u.course)
		if err != nil {
			return err
		}
		plan = lifecycle.PlanCourse(tree, to)
		if plan.Noop() {
			return nil
		}
		if err := e.applyStatus(ctx, u.tx, plan, e.stamp()); err != nil {
			return err
		}
		u.dirty = true
		e.log().WithFields(logrus.Fields{"course_id": id, "op": "status", "to": to, "cascade": len(plan.Cascade)}).Debug("course status changed")
		return e.emit(ctx, u.tx, events.CourseStatusChanged, id, "course", id, p, statusPayload(plan))
	})
	return plan, err
}

func (e Engine) checkCategories(ctx context.Context, tx *sql.Tx, ids []string) error {
	missing, err := e.Repo.MissingCategories(ctx, tx, ids)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return domain.BadRequest(domain.CodeUnknownCategory, fmt.Sprintf("unknown category ids: %s", strings.Join(missing, ", ")))
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
