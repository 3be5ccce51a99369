package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"courseline/internal/engine"
)

func registerLessons(api huma.API, e engine.Engine) {
	type lessonPath struct {
		SectionID string `path:"section_id"`
		LessonID  string `path:"lesson_id"`
	}

	huma.Register(api, huma.Operation{
		OperationID: "list-lessons",
		Method:      http.MethodGet,
		Path:        "/sections/{section_id}/lessons",
		Summary:     "List visible lessons of a section in order",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SectionID string `path:"section_id"`
	}) (*output[[]LessonResponse], error) {
		items, err := e.GetLessonsBySection(ctx, principal(ctx), input.SectionID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(mapLessons(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-lesson",
		Method:      http.MethodGet,
		Path:        "/sections/{section_id}/lessons/{lesson_id}",
		Summary:     "Get lesson with content blocks",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *lessonPath) (*output[LessonResponse], error) {
		l, err := e.GetLesson(ctx, principal(ctx), input.SectionID, input.LessonID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(lessonResponse(l)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-lesson",
		Method:        http.MethodPost,
		Path:          "/sections/{section_id}/lessons",
		Summary:       "Create lesson with optional content blocks",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		SectionID string `path:"section_id"`
		Body      LessonRequest
	}) (*output[LessonResponse], error) {
		in, err := input.Body.input()
		if err != nil {
			return nil, handleError(ctx, err)
		}
		l, err := e.CreateLesson(ctx, principal(ctx), input.SectionID, in)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(lessonResponse(l)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-lesson",
		Method:      http.MethodPut,
		Path:        "/sections/{section_id}/lessons/{lesson_id}",
		Summary:     "Rename or move lesson",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		SectionID string `path:"section_id"`
		LessonID  string `path:"lesson_id"`
		Body      UpdateOrderedRequest
	}) (*output[LessonResponse], error) {
		l, err := e.UpdateLesson(ctx, principal(ctx), input.SectionID, input.LessonID, engine.LessonUpdate{Title: input.Body.Title, Order: input.Body.Order})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(lessonResponse(l)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-lesson",
		Method:        http.MethodDelete,
		Path:          "/sections/{section_id}/lessons/{lesson_id}",
		Summary:       "Delete lesson and close the gap",
		DefaultStatus: http.StatusNoContent,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *lessonPath) (*struct{}, error) {
		if err := e.DeleteLesson(ctx, principal(ctx), input.SectionID, input.LessonID); err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-lesson-status",
		Method:      http.MethodPatch,
		Path:        "/sections/{section_id}/lessons/{lesson_id}/status",
		Summary:     "Change lesson status",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		SectionID string `path:"section_id"`
		LessonID  string `path:"lesson_id"`
		Body      StatusRequest
	}) (*output[StatusResponse], error) {
		plan, err := e.UpdateLessonStatus(ctx, principal(ctx), input.SectionID, input.LessonID, input.Body.Status)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(statusResponse(plan)), nil
	})
}

func registerBlocks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-content-block",
		Method:        http.MethodPost,
		Path:          "/lessons/{lesson_id}/blocks",
		Summary:       "Add content block",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		LessonID string `path:"lesson_id"`
		Body     BlockRequest
	}) (*output[BlockResponse], error) {
		c, err := input.Body.content()
		if err != nil {
			return nil, handleError(ctx, err)
		}
		b, err := e.AddContentBlock(ctx, principal(ctx), input.LessonID, c, input.Body.Order)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(blockResponse(b)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-content-block",
		Method:      http.MethodPut,
		Path:        "/lessons/{lesson_id}/blocks/{block_id}",
		Summary:     "Move content block or replace its payload",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		LessonID string `path:"lesson_id"`
		BlockID  string `path:"block_id"`
		Body     UpdateBlockRequest
	}) (*output[BlockResponse], error) {
		upd, err := input.Body.update()
		if err != nil {
			return nil, handleError(ctx, err)
		}
		b, err := e.UpdateContentBlock(ctx, principal(ctx), input.LessonID, input.BlockID, upd)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return reply(blockResponse(b)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-content-block",
		Method:        http.MethodDelete,
		Path:          "/lessons/{lesson_id}/blocks/{block_id}",
		Summary:       "Delete content block and close the gap",
		DefaultStatus: http.StatusNoContent,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		LessonID string `path:"lesson_id"`
		BlockID  string `path:"block_id"`
	}) (*struct{}, error) {
		if err := e.DeleteContentBlock(ctx, principal(ctx), input.LessonID, input.BlockID); err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct{}{}, nil
	})
}
