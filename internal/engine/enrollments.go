package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"courseline/internal/domain"
	"courseline/internal/engine/policy"
	"courseline/internal/events"
	"courseline/internal/repo"
)

// Enroll enrolls userID in a Published course.
func (e Engine) Enroll(ctx context.Context, p domain.Principal, courseID, userID string) (domain.Enrollment, error) {
	if !policy.CanPerformEnrollmentAction(p, userID) {
		return domain.Enrollment{}, e.deny(p, "enroll user "+userID)
	}
	var out domain.Enrollment
	err := e.withCourse(ctx, courseID, func(u *unit) error {
		c := u.course
		if !policy.CanViewCourse(p, policy.Chain{InstructorID: c.InstructorID, Course: c.Status}) {
			return domain.NotFound("course", courseID)
		}
		if c.Status != domain.StatusPublished {
			return domain.BadRequest(domain.CodeCourseNotPublished, fmt.Sprintf("course %s is %s; only Published courses accept enrollments", courseID, c.Status))
		}
		_, err := e.Repo.GetEnrollment(ctx, u.tx, userID, courseID)
		switch {
		case err == nil:
			return domain.BadRequest(domain.CodeAlreadyEnrolled, fmt.Sprintf("user %s is already enrolled in course %s", userID, courseID))
		case !errors.Is(err, repo.ErrNotFound):
			return err
		}
		if err := e.Repo.EnsureUser(ctx, u.tx, domain.User{ID: userID}); err != nil {
			return err
		}
		out = domain.Enrollment{ID: uuid.NewString(), UserID: userID, CourseID: courseID, EnrolledAt: e.stamp()}
		if err := e.Repo.InsertEnrollment(ctx, u.tx, out); err != nil {
			return err
		}
		return e.emit(ctx, u.tx, events.EnrollmentCreated, courseID, "enrollment", out.ID, p, events.EventPayload{"user_id": userID})
	})
	return out, err
}

func (e Engine) Unenroll(ctx context.Context, p domain.Principal, courseID, userID string) error {
	if !policy.CanPerformEnrollmentAction(p, userID) {
		return e.deny(p, "unenroll user "+userID)
	}
	return e.withCourse(ctx, courseID, func(u *unit) error {
		en, err := e.Repo.GetEnrollment(ctx, u.tx, userID, courseID)
		if errors.Is(err, repo.ErrNotFound) {
			return domain.BadRequest(domain.CodeNotEnrolled, fmt.Sprintf("user %s is not enrolled in course %s", userID, courseID))
		}
		if err != nil {
			return err
		}
		if err := e.Repo.DeleteEnrollment(ctx, u.tx, en.ID); err != nil {
			return err
		}
		return e.emit(ctx, u.tx, events.EnrollmentDeleted, courseID, "enrollment", en.ID, p, events.EventPayload{"user_id": userID})
	})
}

// ListEnrollments returns userID's enrollments in courses p may still see.
func (e Engine) ListEnrollments(ctx context.Context, p domain.Principal, userID string) ([]domain.EnrolledCourse, error) {
	if !policy.CanPerformEnrollmentAction(p, userID) {
		return nil, e.deny(p, "list enrollments of user "+userID)
	}
	all, err := e.Repo.ListEnrolledCourses(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.EnrolledCourse, 0, len(all))
	for _, ec := range all {
		if policy.CanViewCourse(p, policy.Chain{InstructorID: ec.InstructorID, Course: ec.CourseStatus}) {
			out = append(out, ec)
		}
	}
	return out, nil
}
