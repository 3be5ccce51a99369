package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"courseline/internal/domain"
	"courseline/internal/engine"
)

var writeErrors = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusInternalServerError,
}

func registerCategories(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-categories",
		Method:      http.MethodGet,
		Path:        "/categories",
		Summary:     "List categories",
	}, func(ctx context.Context, _ *struct{}) (*output[[]domain.Category], error) {
		items, err := e.ListCategories(ctx)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(nonNilSlice(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-category",
		Method:      http.MethodGet,
		Path:        "/categories/{category_id}",
		Summary:     "Get category",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CategoryID string `path:"category_id"`
	}) (*output[domain.Category], error) {
		c, err := e.GetCategory(ctx, input.CategoryID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(c), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-category",
		Method:        http.MethodPost,
		Path:          "/categories",
		Summary:       "Create category",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CategoryRequest
	}) (*output[domain.Category], error) {
		c, err := e.CreateCategory(ctx, principal(ctx), engine.CategoryInput{Name: input.Body.Name, Description: input.Body.Description})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(c), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-category",
		Method:      http.MethodPut,
		Path:        "/categories/{category_id}",
		Summary:     "Update category",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		CategoryID string `path:"category_id"`
		Body       CategoryRequest
	}) (*output[domain.Category], error) {
		c, err := e.UpdateCategory(ctx, principal(ctx), input.CategoryID, engine.CategoryInput{Name: input.Body.Name, Description: input.Body.Description})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(c), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-category",
		Method:        http.MethodDelete,
		Path:          "/categories/{category_id}",
		Summary:       "Delete category",
		DefaultStatus: http.StatusNoContent,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		CategoryID string `path:"category_id"`
	}) (*struct{}, error) {
		if err := e.DeleteCategory(ctx, principal(ctx), input.CategoryID); err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct{}{}, nil
	})
}

func registerCourses(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-courses",
		Method:      http.MethodGet,
		Path:        "/courses",
		Summary:     "List visible courses",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Search       string  `query:"search"`
		CategoryID   string  `query:"category_id"`
		InstructorID string  `query:"instructor_id"`
		MinRating    float64 `query:"min_rating" minimum:"0" maximum:"5"`
		SortBy       string  `query:"sort_by" enum:"title,price,created,rating"`
		Desc         bool    `query:"desc"`
		Page         int     `query:"page" minimum:"0"`
		PageSize     int     `query:"page_size" minimum:"0"`
	}) (*output[CoursePage], error) {
		q := engine.CourseQuery{
			Search:       input.Search,
			CategoryID:   input.CategoryID,
			InstructorID: input.InstructorID,
			SortBy:       input.SortBy,
			Desc:         input.Desc,
			Page:         input.Page,
			PageSize:     input.PageSize,
		}
		if input.MinRating > 0 {
			q.MinRating = &input.MinRating
		}
		page, err := e.ListCourses(ctx, principal(ctx), q)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(CoursePage{Items: mapSummaries(page.Items), Page: page.Page, PageSize: page.PageSize, Total: page.Total}), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-course",
		Method:      http.MethodGet,
		Path:        "/courses/{course_id}",
		Summary:     "Get course with its visible sections, lessons and content",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CourseID string `path:"course_id"`
	}) (*output[CourseResponse], error) {
		c, err := e.GetCourse(ctx, principal(ctx), input.CourseID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(courseResponse(c)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-course",
		Method:        http.MethodPost,
		Path:          "/courses",
		Summary:       "Create course",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateCourseRequest
	}) (*output[CourseResponse], error) {
		in, err := input.Body.input()
		if err != nil {
			return nil, handleError(ctx, err)
		}
		c, err := e.CreateCourse(ctx, principal(ctx), in)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(courseResponse(c)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-course",
		Method:      http.MethodPut,
		Path:        "/courses/{course_id}",
		Summary:     "Update course",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		CourseID string `path:"course_id"`
		Body     UpdateCourseRequest
	}) (*output[CourseResponse], error) {
		upd, err := input.Body.update()
		if err != nil {
			return nil, handleError(ctx, err)
		}
		c, err := e.UpdateCourse(ctx, principal(ctx), input.CourseID, upd)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(courseResponse(c)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-course",
		Method:        http.MethodDelete,
		Path:          "/courses/{course_id}",
		Summary:       "Delete course and its content",
		DefaultStatus: http.StatusNoContent,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		CourseID string `path:"course_id"`
	}) (*struct{}, error) {
		if err := e.DeleteCourse(ctx, principal(ctx), input.CourseID); err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-course-status",
		Method:      http.MethodPatch,
		Path:        "/courses/{course_id}/status",
		Summary:     "Change course status, cascading to published descendants",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		CourseID string `path:"course_id"`
		Body     StatusRequest
	}) (*output[StatusResponse], error) {
		plan, err := e.UpdateCourseStatus(ctx, principal(ctx), input.CourseID, input.Body.Status)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(statusResponse(plan)), nil
	})
}

func registerSections(api huma.API, e engine.Engine) {
	type sectionPath struct {
		CourseID  string `path:"course_id"`
		SectionID string `path:"section_id"`
	}

	huma.Register(api, huma.Operation{
		OperationID: "list-sections",
		Method:      http.MethodGet,
		Path:        "/courses/{course_id}/sections",
		Summary:     "List visible sections in order",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CourseID string `path:"course_id"`
	}) (*output[[]SectionResponse], error) {
		items, err := e.GetSections(ctx, principal(ctx), input.CourseID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(nonNilSlice(mapSections(items))), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-section",
		Method:      http.MethodGet,
		Path:        "/courses/{course_id}/sections/{section_id}",
		Summary:     "Get section",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *sectionPath) (*output[SectionResponse], error) {
		s, err := e.GetSection(ctx, principal(ctx), input.CourseID, input.SectionID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(sectionResponse(s)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-section",
		Method:        http.MethodPost,
		Path:          "/courses/{course_id}/sections",
		Summary:       "Create section; siblings at or after the order shift down",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		CourseID string `path:"course_id"`
		Body     SectionRequest
	}) (*output[SectionResponse], error) {
		s, err := e.CreateSection(ctx, principal(ctx), input.CourseID, engine.SectionInput{Title: input.Body.Title, Order: input.Body.Order})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(sectionResponse(s)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-section",
		Method:      http.MethodPut,
		Path:        "/courses/{course_id}/sections/{section_id}",
		Summary:     "Rename or move section",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		CourseID  string `path:"course_id"`
		SectionID string `path:"section_id"`
		Body      UpdateOrderedRequest
	}) (*output[SectionResponse], error) {
		s, err := e.UpdateSection(ctx, principal(ctx), input.CourseID, input.SectionID, engine.SectionUpdate{Title: input.Body.Title, Order: input.Body.Order})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(sectionResponse(s)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-section",
		Method:        http.MethodDelete,
		Path:          "/courses/{course_id}/sections/{section_id}",
		Summary:       "Delete section and close the gap",
		DefaultStatus: http.StatusNoContent,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *sectionPath) (*struct{}, error) {
		if err := e.DeleteSection(ctx, principal(ctx), input.CourseID, input.SectionID); err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-section-status",
		Method:      http.MethodPatch,
		Path:        "/courses/{course_id}/sections/{section_id}/status",
		Summary:     "Change section status",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		CourseID  string `path:"course_id"`
		SectionID string `path:"section_id"`
		Body      StatusRequest
	}) (*output[StatusResponse], error) {
		plan, err := e.UpdateSectionStatus(ctx, principal(ctx), input.CourseID, input.SectionID, input.Body.Status)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(statusResponse(plan)), nil
	})
}
