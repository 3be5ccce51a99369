package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"courseline/internal/domain"
	"courseline/internal/engine/policy"
	"courseline/internal/events"
	"courseline/internal/repo"
	"courseline/internal/validation"
)

type ReviewInput struct {
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

// ReviewView is a review with what the viewer may do to it.
type ReviewView struct {
	domain.Review
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
}

func view(p domain.Principal, rv domain.Review) ReviewView {
	can := policy.CanModifyReview(p, rv.UserID)
	return ReviewView{Review: rv, CanEdit: can, CanDelete: can}
}

// visibleCourse loads a course p may see, reporting hidden ones as not found.
func (e Engine) visibleCourse(ctx context.Context, p domain.Principal, courseID string) (domain.Course, error) {
	c, err := e.Repo.GetCourse(ctx, nil, courseID)
	if err != nil {
		return c, notFound(err, "course", courseID)
	}
	if !policy.CanViewReviewListForCourse(p, policy.Chain{InstructorID: c.InstructorID, Course: c.Status}) {
		return c, domain.NotFound("course", courseID)
	}
	return c, nil
}

// ListReviews returns one page of the course's reviews, newest first.
func (e Engine) ListReviews(ctx context.Context, p domain.Principal, courseID string, page, pageSize int) (domain.Page[ReviewView], error) {
	if _, err := e.visibleCourse(ctx, p, courseID); err != nil {
		return domain.Page[ReviewView]{}, err
	}
	page, size, offset := pageBounds(e.config(), page, pageSize)
	reviews, total, err := e.Repo.ListReviews(ctx, courseID, size, offset)
	if err != nil {
		return domain.Page[ReviewView]{}, err
	}
	items := make([]ReviewView, 0, len(reviews))
	for _, rv := range reviews {
		items = append(items, view(p, rv))
	}
	return domain.Page[ReviewView]{Items: items, Page: page, PageSize: size, Total: total}, nil
}

func (e Engine) GetReview(ctx context.Context, p domain.Principal, courseID, reviewID string) (ReviewView, error) {
	if _, err := e.visibleCourse(ctx, p, courseID); err != nil {
		return ReviewView{}, err
	}
	rv, err := e.Repo.GetReview(ctx, nil, reviewID)
	if err != nil || rv.CourseID != courseID {
		return ReviewView{}, notFound(orNotFound(err), "review", reviewID)
	}
	return view(p, rv), nil
}

// CreateReview records p's single review of a course.
func (e Engine) CreateReview(ctx context.Context, p domain.Principal, courseID string, in ReviewInput) (ReviewView, error) {
	if !policy.CanPerformReviewAction(p) {
		return ReviewView{}, e.deny(p, "review courses")
	}
	in.Comment = strings.TrimSpace(in.Comment)
	if err := validation.Struct(in); err != nil {
		return ReviewView{}, err
	}
	var out domain.Review
	err := e.withCourse(ctx, courseID, func(u *unit) error {
		c := u.course
		if !policy.CanViewReviewListForCourse(p, policy.Chain{InstructorID: c.InstructorID, Course: c.Status}) {
			return domain.NotFound("course", courseID)
		}
		if e.config().Reviews.RequireEnrollment {
			_, err := e.Repo.GetEnrollment(ctx, u.tx, p.UserID, courseID)
			if errors.Is(err, repo.ErrNotFound) {
				return domain.BadRequest(domain.CodeNotEnrolled, "only enrolled students may review this course")
			}
			if err != nil {
				return err
			}
		}
		done, err := e.Repo.HasReviewed(ctx, u.tx, p.UserID, courseID)
		if err != nil {
			return err
		}
		if done {
			return domain.BadRequest(domain.CodeAlreadyReviewed, fmt.Sprintf("user %s already reviewed course %s", p.UserID, courseID))
		}
		if err := e.Repo.EnsureUser(ctx, u.tx, domain.User{ID: p.UserID}); err != nil {
			return err
		}
		ts := e.stamp()
		out = domain.Review{ID: uuid.NewString(), CourseID: courseID, UserID: p.UserID, Rating: in.Rating, Comment: in.Comment, CreatedAt: ts, UpdatedAt: ts}
		if err := e.Repo.InsertReview(ctx, u.tx, out); err != nil {
			return err
		}
		if out, err = e.Repo.GetReview(ctx, u.tx, out.ID); err != nil {
			return err
		}
		return e.emit(ctx, u.tx, events.ReviewCreated, courseID, "review", out.ID, p, events.EventPayload{"rating": in.Rating})
	})
	if err != nil {
		return ReviewView{}, err
	}
	return view(p, out), nil
}

func (e Engine) UpdateReview(ctx context.Context, p domain.Principal, courseID, reviewID string, in ReviewInput) (ReviewView, error) {
	in.Comment = strings.TrimSpace(in.Comment)
	var out domain.Review
	err := e.withReview(ctx, p, courseID, reviewID, "edit review "+reviewID, func(u *unit, rv domain.Review) error {
		if err := validation.Struct(in); err != nil {
			return err
		}
		rv.Rating, rv.Comment, rv.UpdatedAt = in.Rating, in.Comment, e.stamp()
		if err := e.Repo.UpdateReview(ctx, u.tx, rv); err != nil {
			return err
		}
		out = rv
		return e.emit(ctx, u.tx, events.ReviewUpdated, courseID, "review", reviewID, p, events.EventPayload{"rating": in.Rating})
	})
	if err != nil {
		return ReviewView{}, err
	}
	return view(p, out), nil
}

func (e Engine) DeleteReview(ctx context.Context, p domain.Principal, courseID, reviewID string) error {
	return e.withReview(ctx, p, courseID, reviewID, "delete review "+reviewID, func(u *unit, rv domain.Review) error {
		if err := e.Repo.DeleteReview(ctx, u.tx, reviewID); err != nil {
			return notFound(err, "review", reviewID)
		}
		return e.emit(ctx, u.tx, events.ReviewDeleted, courseID, "review", reviewID, p, events.EventPayload{"user_id": rv.UserID})
	})
}

// withReview loads a review of courseID and checks p may modify it before running fn.
func (e Engine) withReview(ctx context.Context, p domain.Principal, courseID, reviewID, action string, fn func(u *unit, rv domain.Review) error) error {
	return e.withCourse(ctx, courseID, func(u *unit) error {
		rv, err := e.Repo.GetReview(ctx, u.tx, reviewID)
		if err != nil || rv.CourseID != courseID {
			return notFound(orNotFound(err), "review", reviewID)
		}
		if !policy.CanModifyReview(p, rv.UserID) {
			return e.deny(p, action)
		}
		return fn(u, rv)
	})
}
