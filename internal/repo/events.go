package repo

import (
	"context"

	"courseline/internal/domain"
)

// EventFilter narrows LatestEvents. Empty fields match everything.
type EventFilter struct {
	CourseID   string
	Type       string
	EntityKind string
	EntityID   string
	Limit      int
}

// LatestEvents returns the newest matching events, newest first.
func (r Repo) LatestEvents(ctx context.Context, f EventFilter) ([]domain.Event, error) {
	query := `SELECT id, ts, type, COALESCE(course_id,''), entity_kind, COALESCE(entity_id,''), actor_id, payload_json FROM events WHERE 1=1`
	var args []any
	if f.CourseID != "" {
		query += ` AND course_id=?`
		args = append(args, f.CourseID)
	}
	if f.Type != "" {
		query += ` AND type=?`
		args = append(args, f.Type)
	}
	if f.EntityKind != "" {
		query += ` AND entity_kind=?`
		args = append(args, f.EntityKind)
	}
	if f.EntityID != "" {
		query += ` AND entity_id=?`
		args = append(args, f.EntityID)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	return r.queryEvents(ctx, query, args...)
}

// EventsAfter returns events with id greater than after, oldest first.
func (r Repo) EventsAfter(ctx context.Context, limit int, after int64) ([]domain.Event, error) {
	return r.queryEvents(ctx, `SELECT id, ts, type, COALESCE(course_id,''), entity_kind, COALESCE(entity_id,''), actor_id, payload_json
FROM events WHERE id > ? ORDER BY id ASC LIMIT ?`, after, limit)
}

func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM events`).Scan(&id)
	return id, err
}

func (r Repo) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Event{}
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.CourseID, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
