package engine

import (
	"context"

	"courseline/internal/domain"
	"courseline/internal/repo"
)

type StudentDashboard struct {
	UserID      string                  `json:"user_id"`
	Enrollments []domain.EnrolledCourse `json:"enrollments"`
	Completed   int                     `json:"completed"`
}

type InstructorDashboard struct {
	UserID           string                 `json:"user_id"`
	Courses          []domain.CourseSummary `json:"courses"`
	TotalEnrollments int                    `json:"total_enrollments"`
	TotalReviews     int                    `json:"total_reviews"`
	AverageRating    float64                `json:"average_rating"`
}

func (e Engine) StudentDashboard(ctx context.Context, p domain.Principal) (StudentDashboard, error) {
	if !p.Authenticated() {
		return StudentDashboard{}, e.deny(p, "view the student dashboard")
	}
	enrollments, err := e.ListEnrollments(ctx, p, p.UserID)
	if err != nil {
		return StudentDashboard{}, err
	}
	d := StudentDashboard{UserID: p.UserID, Enrollments: enrollments}
	for _, en := range enrollments {
		if en.ProgressPercentage >= 100 {
			d.Completed++
		}
	}
	return d, nil
}

// InstructorDashboard summarizes the caller's own courses in every status.
func (e Engine) InstructorDashboard(ctx context.Context, p domain.Principal) (InstructorDashboard, error) {
	if !p.Authenticated() || !(p.IsInstructor() || p.IsAdmin()) {
		return InstructorDashboard{}, e.deny(p, "view the instructor dashboard")
	}
	courses, _, err := e.Repo.ListCourses(ctx, repo.CourseFilter{InstructorID: p.UserID, IncludeAll: true, SortBy: "created", Desc: true})
	if err != nil {
		return InstructorDashboard{}, err
	}
	d := InstructorDashboard{UserID: p.UserID, Courses: courses}
	var ratingSum float64
	for _, c := range courses {
		d.TotalEnrollments += c.EnrollmentCount
		d.TotalReviews += c.ReviewCount
		ratingSum += c.AverageRating * float64(c.ReviewCount)
	}
	if d.TotalReviews > 0 {
		d.AverageRating = ratingSum / float64(d.TotalReviews)
	}
	return d, nil
}
