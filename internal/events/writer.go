package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Writer appends audit rows inside the caller's transaction.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

// Event types.
const (
	CourseCreated       = "course.created"
	CourseUpdated       = "course.updated"
	CourseDeleted       = "course.deleted"
	CourseStatusChanged = "course.status.changed"

	SectionCreated       = "section.created"
	SectionUpdated       = "section.updated"
	SectionMoved         = "section.moved"
	SectionDeleted       = "section.deleted"
	SectionStatusChanged = "section.status.changed"

	LessonCreated       = "lesson.created"
	LessonUpdated       = "lesson.updated"
	LessonMoved         = "lesson.moved"
	LessonDeleted       = "lesson.deleted"
	LessonStatusChanged = "lesson.status.changed"

	BlockCreated = "block.created"
	BlockUpdated = "block.updated"
	BlockDeleted = "block.deleted"

	CategoryCreated = "category.created"
	CategoryUpdated = "category.updated"
	CategoryDeleted = "category.deleted"

	EnrollmentCreated = "enrollment.created"
	EnrollmentDeleted = "enrollment.deleted"

	ReviewCreated = "review.created"
	ReviewUpdated = "review.updated"
	ReviewDeleted = "review.deleted"

	UserUpserted = "user.upserted"
)

func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, courseID, entityKind, entityID, actorID string, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	if actorID == "" {
		actorID = "anonymous"
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,course_id,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?,?)`,
		ts, evtType, nullable(courseID), entityKind, nullable(entityID), actorID, string(data))
	if err != nil {
		return fmt.Errorf("append %s event: %w", evtType, err)
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
