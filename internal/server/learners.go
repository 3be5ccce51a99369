package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"courseline/internal/domain"
	"courseline/internal/engine"
)

// targetUser defaults an omitted user id to the caller.
func targetUser(ctx context.Context, userID string) string {
	if id := strings.TrimSpace(userID); id != "" {
		return id
	}
	return principal(ctx).UserID
}

func registerEnrollments(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "enroll",
		Method:        http.MethodPost,
		Path:          "/courses/{course_id}/enrollment",
		Summary:       "Enroll a user (the caller by default) in a published course",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		CourseID string `path:"course_id"`
		Body     *EnrollmentRequest
	}) (*output[domain.Enrollment], error) {
		userID := ""
		if input.Body != nil {
			userID = input.Body.UserID
		}
		en, err := e.Enroll(ctx, principal(ctx), input.CourseID, targetUser(ctx, userID))
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(en), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "unenroll",
		Method:        http.MethodDelete,
		Path:          "/courses/{course_id}/enrollment",
		Summary:       "Remove an enrollment",
		DefaultStatus: http.StatusNoContent,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		CourseID string `path:"course_id"`
		UserID   string `query:"user_id"`
	}) (*struct{}, error) {
		if err := e.Unenroll(ctx, principal(ctx), input.CourseID, targetUser(ctx, input.UserID)); err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-enrollments",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}/enrollments",
		Summary:     "List a user's enrollments",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
	}) (*output[[]domain.EnrolledCourse], error) {
		items, err := e.ListEnrollments(ctx, principal(ctx), input.UserID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(items), nil
	})
}

func registerReviews(api huma.API, e engine.Engine) {
	type reviewPath struct {
		CourseID string `path:"course_id"`
		ReviewID string `path:"review_id"`
	}

	huma.Register(api, huma.Operation{
		OperationID: "list-reviews",
		Method:      http.MethodGet,
		Path:        "/courses/{course_id}/reviews",
		Summary:     "List reviews of a visible course, newest first",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CourseID string `path:"course_id"`
		Page     int    `query:"page" minimum:"0"`
		PageSize int    `query:"page_size" minimum:"0"`
	}) (*output[ReviewPage], error) {
		page, err := e.ListReviews(ctx, principal(ctx), input.CourseID, input.Page, input.PageSize)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(ReviewPage{Items: nonNilSlice(page.Items), Page: page.Page, PageSize: page.PageSize, Total: page.Total}), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-review",
		Method:      http.MethodGet,
		Path:        "/courses/{course_id}/reviews/{review_id}",
		Summary:     "Get review",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *reviewPath) (*output[engine.ReviewView], error) {
		rv, err := e.GetReview(ctx, principal(ctx), input.CourseID, input.ReviewID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(rv), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-review",
		Method:        http.MethodPost,
		Path:          "/courses/{course_id}/reviews",
		Summary:       "Review a course",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		CourseID string `path:"course_id"`
		Body     ReviewRequest
	}) (*output[engine.ReviewView], error) {
		rv, err := e.CreateReview(ctx, principal(ctx), input.CourseID, engine.ReviewInput{Rating: input.Body.Rating, Comment: input.Body.Comment})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(rv), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-review",
		Method:      http.MethodPut,
		Path:        "/courses/{course_id}/reviews/{review_id}",
		Summary:     "Update review",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		CourseID string `path:"course_id"`
		ReviewID string `path:"review_id"`
		Body     ReviewRequest
	}) (*output[engine.ReviewView], error) {
		rv, err := e.UpdateReview(ctx, principal(ctx), input.CourseID, input.ReviewID, engine.ReviewInput{Rating: input.Body.Rating, Comment: input.Body.Comment})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(rv), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-review",
		Method:        http.MethodDelete,
		Path:          "/courses/{course_id}/reviews/{review_id}",
		Summary:       "Delete review",
		DefaultStatus: http.StatusNoContent,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *reviewPath) (*struct{}, error) {
		if err := e.DeleteReview(ctx, principal(ctx), input.CourseID, input.ReviewID); err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct{}{}, nil
	})
}

func registerDashboards(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "student-dashboard",
		Method:      http.MethodGet,
		Path:        "/dashboard/student",
		Summary:     "Enrolled courses and progress of the caller",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*output[engine.StudentDashboard], error) {
		if _, authErr := requireUser(ctx); authErr != nil {
			return nil, authErr
		}
		d, err := e.StudentDashboard(ctx, principal(ctx))
		if err != nil {
			return nil, handleError(ctx, err)
		}
		d.Enrollments = nonNilSlice(d.Enrollments)
		return reply(d), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "instructor-dashboard",
		Method:      http.MethodGet,
		Path:        "/dashboard/instructor",
		Summary:     "The caller's courses with enrollment and rating totals",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*output[InstructorDashboardResponse], error) {
		if _, authErr := requireUser(ctx); authErr != nil {
			return nil, authErr
		}
		d, err := e.InstructorDashboard(ctx, principal(ctx))
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(InstructorDashboardResponse{
			UserID:           d.UserID,
			Courses:          mapSummaries(d.Courses),
			TotalEnrollments: d.TotalEnrollments,
			TotalReviews:     d.TotalReviews,
			AverageRating:    d.AverageRating,
		}), nil
	})
}
