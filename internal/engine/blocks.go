package engine

import (
	"context"

	"github.com/google/uuid"

	"courseline/internal/domain"
	"courseline/internal/engine/policy"
	"courseline/internal/events"
	"courseline/internal/validation"
)

// BlockUpdate moves a block and/or replaces its payload.
type BlockUpdate struct {
	Order   *int
	Content domain.Content
}

// withLesson runs fn in the unit of work of the course owning lessonID.
func (e Engine) withLesson(ctx context.Context, lessonID string, fn func(u *unit, l domain.Lesson) error) error {
	l, err := e.Repo.GetLesson(ctx, nil, lessonID)
	if err != nil {
		return notFound(err, "lesson", lessonID)
	}
	return e.withSection(ctx, l.SectionID, func(u *unit, s domain.Section) error {
		current, err := e.Repo.GetLesson(ctx, u.tx, lessonID)
		if err != nil || current.SectionID != s.ID {
			return notFound(orNotFound(err), "lesson", lessonID)
		}
		return fn(u, current)
	})
}

// AddContentBlock inserts a block into the lesson. A nil order appends.
func (e Engine) AddContentBlock(ctx context.Context, p domain.Principal, lessonID string, content domain.Content, at *int) (domain.ContentBlock, error) {
	var out domain.ContentBlock
	err := e.withLesson(ctx, lessonID, func(u *unit, l domain.Lesson) error {
		if !policy.CanEditLesson(p, u.course.InstructorID) {
			return e.deny(p, "add content to lesson "+lessonID)
		}
		if err := validation.Content(content); err != nil {
			return err
		}
		existing, err := e.Repo.ListBlocks(ctx, u.tx, lessonID)
		if err != nil {
			return err
		}
		ts := e.stamp()
		assigned, shifted, err := e.blockSiblings(ts).makeRoom(ctx, u.tx, without(existing, "", blockKey), at, ts)
		if err != nil {
			return err
		}
		out = domain.ContentBlock{
			ID:        uuid.NewString(),
			LessonID:  lessonID,
			Order:     assigned,
			Content:   content,
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		if err := e.Repo.InsertBlock(ctx, u.tx, out); err != nil {
			return err
		}
		u.dirty = true
		return e.emit(ctx, u.tx, events.BlockCreated, u.course.ID, "content_block", out.ID, p, events.EventPayload{
			"lesson_id": lessonID, "type": content.Kind(), "order": assigned, "shifted": shifted,
		})
	})
	return out, err
}

func (e Engine) UpdateContentBlock(ctx context.Context, p domain.Principal, lessonID, blockID string, upd BlockUpdate) (domain.ContentBlock, error) {
	var out domain.ContentBlock
	err := e.withLesson(ctx, lessonID, func(u *unit, l domain.Lesson) error {
		if !policy.CanEditLesson(p, u.course.InstructorID) {
			return e.deny(p, "edit content of lesson "+lessonID)
		}
		if upd.Content != nil {
			if err := validation.Content(upd.Content); err != nil {
				return err
			}
		}
		all, err := e.Repo.ListBlocks(ctx, u.tx, lessonID)
		if err != nil {
			return err
		}
		target := find(all, blockID, blockKey)
		if target == nil {
			return domain.NotFound("content block", blockID)
		}
		ts := e.stamp()
		payload := events.EventPayload{"lesson_id": lessonID}
		if upd.Content != nil {
			target.Content = upd.Content
			target.UpdatedAt = ts
			if err := e.Repo.UpdateBlockContent(ctx, u.tx, *target); err != nil {
				return err
			}
			payload["type"] = upd.Content.Kind()
			u.dirty = true
		}
		if upd.Order != nil {
			from := target.Order
			moved, shifted, err := e.blockSiblings(ts).move(ctx, u.tx, target, without(all, blockID, blockKey), *upd.Order, ts)
			if err != nil {
				return err
			}
			if moved {
				payload["from"], payload["to"], payload["shifted"] = from, target.Order, shifted
				u.dirty = true
			}
		}
		out = *target
		if !u.dirty {
			return nil
		}
		return e.emit(ctx, u.tx, events.BlockUpdated, u.course.ID, "content_block", blockID, p, payload)
	})
	return out, err
}

func (e Engine) DeleteContentBlock(ctx context.Context, p domain.Principal, lessonID, blockID string) error {
	return e.withLesson(ctx, lessonID, func(u *unit, l domain.Lesson) error {
		if !policy.CanEditLesson(p, u.course.InstructorID) {
			return e.deny(p, "delete content of lesson "+lessonID)
		}
		all, err := e.Repo.ListBlocks(ctx, u.tx, lessonID)
		if err != nil {
			return err
		}
		target := find(all, blockID, blockKey)
		if target == nil {
			return domain.NotFound("content block", blockID)
		}
		if err := e.Repo.DeleteBlock(ctx, u.tx, blockID); err != nil {
			return notFound(err, "content block", blockID)
		}
		ts := e.stamp()
		shifted, err := e.blockSiblings(ts).closeGap(ctx, u.tx, without(all, blockID, blockKey), target.Order, ts)
		if err != nil {
			return err
		}
		u.dirty = true
		return e.emit(ctx, u.tx, events.BlockDeleted, u.course.ID, "content_block", blockID, p, events.EventPayload{
			"lesson_id": lessonID, "order": target.Order, "shifted": shifted,
		})
	})
}
