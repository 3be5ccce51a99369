package repo

import (
	"context"
	"database/sql"
	"fmt"

	"courseline/internal/domain"
)

// parkedOrder is the transient slot a moving row occupies while its siblings shift.
const parkedOrder = -1

func (r Repo) setOrder(ctx context.Context, tx *sql.Tx, table, id string, order int, ts string) error {
	return mustAffect(r.q(tx).ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET sort_order=?, updated_at=? WHERE id=?`, table), order, ts, id))
}

func (r Repo) park(ctx context.Context, tx *sql.Tx, table, id string) error {
	return mustAffect(r.q(tx).ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET sort_order=? WHERE id=?`, table), parkedOrder, id))
}

// --- sections ---

const sectionColumns = `id, course_id, title, sort_order, status, created_at, updated_at`

func scanSection(row rowScanner) (domain.Section, error) {
	var s domain.Section
	var status string
	err := row.Scan(&s.ID, &s.CourseID, &s.Title, &s.Order, &status, &s.CreatedAt, &s.UpdatedAt)
	s.Status = domain.Status(status)
	return s, err
}

func (r Repo) GetSection(ctx context.Context, tx *sql.Tx, id string) (domain.Section, error) {
	s, err := scanSection(r.q(tx).QueryRowContext(ctx, `SELECT `+sectionColumns+` FROM sections WHERE id=?`, id))
	return s, scanErr(err, "section")
}

// ListSections returns the course's sections ordered by position.
func (r Repo) ListSections(ctx context.Context, tx *sql.Tx, courseID string) ([]domain.Section, error) {
	rows, err := r.q(tx).QueryContext(ctx, `SELECT `+sectionColumns+` FROM sections WHERE course_id=? ORDER BY sort_order`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Section
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r Repo) InsertSection(ctx context.Context, tx *sql.Tx, s domain.Section) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO sections(`+sectionColumns+`) VALUES (?,?,?,?,?,?,?)`,
		s.ID, s.CourseID, s.Title, s.Order, string(s.Status), s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert section: %w", err)
	}
	return nil
}

func (r Repo) UpdateSectionTitle(ctx context.Context, tx *sql.Tx, id, title, ts string) error {
	return mustAffect(r.q(tx).ExecContext(ctx, `UPDATE sections SET title=?, updated_at=? WHERE id=?`, title, ts, id))
}

func (r Repo) SetSectionOrder(ctx context.Context, tx *sql.Tx, id string, order int, ts string) error {
	return r.setOrder(ctx, tx, "sections", id, order, ts)
}

func (r Repo) ParkSection(ctx context.Context, tx *sql.Tx, id string) error {
	return r.park(ctx, tx, "sections", id)
}

func (r Repo) SetSectionStatus(ctx context.Context, tx *sql.Tx, id string, status domain.Status, ts string) error {
	return r.setStatus(ctx, tx, "sections", id, status, ts)
}

func (r Repo) DeleteSection(ctx context.Context, tx *sql.Tx, id string) error {
	return mustAffect(r.q(tx).ExecContext(ctx, `DELETE FROM sections WHERE id=?`, id))
}

// --- lessons ---

const lessonColumns = `l.id, l.section_id, l.title, l.sort_order, l.status, l.created_at, l.updated_at`

func scanLesson(row rowScanner) (domain.Lesson, error) {
	var l domain.Lesson
	var status string
	err := row.Scan(&l.ID, &l.SectionID, &l.Title, &l.Order, &status, &l.CreatedAt, &l.UpdatedAt)
	l.Status = domain.Status(status)
	return l, err
}

func (r Repo) GetLesson(ctx context.Context, tx *sql.Tx, id string) (domain.Lesson, error) {
	l, err := scanLesson(r.q(tx).QueryRowContext(ctx, `SELECT `+lessonColumns+` FROM lessons l WHERE l.id=?`, id))
	return l, scanErr(err, "lesson")
}

// ListLessons returns the section's lessons ordered by position.
func (r Repo) ListLessons(ctx context.Context, tx *sql.Tx, sectionID string) ([]domain.Lesson, error) {
	return r.queryLessons(ctx, tx, `SELECT `+lessonColumns+` FROM lessons l WHERE l.section_id=? ORDER BY l.sort_order`, sectionID)
}

// ListCourseLessons returns every lesson in the course, grouped by section position.
func (r Repo) ListCourseLessons(ctx context.Context, tx *sql.Tx, courseID string) ([]domain.Lesson, error) {
	return r.queryLessons(ctx, tx, `SELECT `+lessonColumns+` FROM lessons l
JOIN sections s ON s.id = l.section_id
WHERE s.course_id=? ORDER BY s.sort_order, l.sort_order`, courseID)
}

func (r Repo) queryLessons(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]domain.Lesson, error) {
	rows, err := r.q(tx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r Repo) InsertLesson(ctx context.Context, tx *sql.Tx, l domain.Lesson) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO lessons(id, section_id, title, sort_order, status, created_at, updated_at) VALUES (?,?,?,?,?,?,?)`,
		l.ID, l.SectionID, l.Title, l.Order, string(l.Status), l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert lesson: %w", err)
	}
	return nil
}

func (r Repo) UpdateLessonTitle(ctx context.Context, tx *sql.Tx, id, title, ts string) error {
	return mustAffect(r.q(tx).ExecContext(ctx, `UPDATE lessons SET title=?, updated_at=? WHERE id=?`, title, ts, id))
}

func (r Repo) SetLessonOrder(ctx context.Context, tx *sql.Tx, id string, order int, ts string) error {
	return r.setOrder(ctx, tx, "lessons", id, order, ts)
}

func (r Repo) ParkLesson(ctx context.Context, tx *sql.Tx, id string) error {
	return r.park(ctx, tx, "lessons", id)
}

func (r Repo) SetLessonStatus(ctx context.Context, tx *sql.Tx, id string, status domain.Status, ts string) error {
	return r.setStatus(ctx, tx, "lessons", id, status, ts)
}

func (r Repo) DeleteLesson(ctx context.Context, tx *sql.Tx, id string) error {
	return mustAffect(r.q(tx).ExecContext(ctx, `DELETE FROM lessons WHERE id=?`, id))
}

// --- content blocks ---

const blockColumns = `b.id, b.lesson_id, b.sort_order, b.kind, COALESCE(b.text_body,''), COALESCE(b.video_url,''), COALESCE(b.thumbnail_url,''), COALESCE(b.transcription,''), b.duration_minutes, b.created_at, b.updated_at`

func scanBlock(row rowScanner) (domain.ContentBlock, error) {
	var (
		b                                  domain.ContentBlock
		kind, text, video, thumb, transcr string
		minutes                            sql.NullInt64
	)
	if err := row.Scan(&b.ID, &b.LessonID, &b.Order, &kind, &text, &video, &thumb, &transcr, &minutes, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return b, err
	}
	switch domain.ContentKind(kind) {
	case domain.ContentText:
		b.Content = domain.TextContent{Text: text}
	case domain.ContentVideo:
		b.Content = domain.VideoContent{VideoURL: video, ThumbnailURL: thumb, Transcription: transcr, DurationMinutes: intPtr(minutes)}
	default:
		return b, fmt.Errorf("content block %s has unknown kind %q", b.ID, kind)
	}
	return b, nil
}

// blockValues flattens the variant into its nullable columns.
func blockValues(b domain.ContentBlock) (kind string, text, video, thumb, transcr, minutes any, err error) {
	switch c := b.Content.(type) {
	case domain.TextContent:
		return string(domain.ContentText), c.Text, nil, nil, nil, nil, nil
	case domain.VideoContent:
		return string(domain.ContentVideo), nil, c.VideoURL, nullable(c.ThumbnailURL), nullable(c.Transcription), nullableInt(c.DurationMinutes), nil
	}
	return "", nil, nil, nil, nil, nil, fmt.Errorf("content block %s has no payload", b.ID)
}

func (r Repo) GetBlock(ctx context.Context, tx *sql.Tx, id string) (domain.ContentBlock, error) {
	b, err := scanBlock(r.q(tx).QueryRowContext(ctx, `SELECT `+blockColumns+` FROM content_blocks b WHERE b.id=?`, id))
	return b, scanErr(err, "content block")
}

func (r Repo) ListBlocks(ctx context.Context, tx *sql.Tx, lessonID string) ([]domain.ContentBlock, error) {
	return r.queryBlocks(ctx, tx, `SELECT `+blockColumns+` FROM content_blocks b WHERE b.lesson_id=? ORDER BY b.sort_order`, lessonID)
}

// ListCourseBlocks returns every block in the course ordered by lesson then position.
func (r Repo) ListCourseBlocks(ctx context.Context, tx *sql.Tx, courseID string) ([]domain.ContentBlock, error) {
	return r.queryBlocks(ctx, tx, `SELECT `+blockColumns+` FROM content_blocks b
JOIN lessons l ON l.id = b.lesson_id
JOIN sections s ON s.id = l.section_id
WHERE s.course_id=? ORDER BY b.lesson_id, b.sort_order`, courseID)
}

func (r Repo) queryBlocks(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]domain.ContentBlock, error) {
	rows, err := r.q(tx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ContentBlock
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r Repo) InsertBlock(ctx context.Context, tx *sql.Tx, b domain.ContentBlock) error {
	kind, text, video, thumb, transcr, minutes, err := blockValues(b)
	if err != nil {
		return err
	}
	_, err = r.q(tx).ExecContext(ctx, `
INSERT INTO content_blocks(id, lesson_id, sort_order, kind, text_body, video_url, thumbnail_url, transcription, duration_minutes, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		b.ID, b.LessonID, b.Order, kind, text, video, thumb, transcr, minutes, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert content block: %w", err)
	}
	return nil
}

// UpdateBlockContent replaces the payload; switching variant clears the other variant's columns.
func (r Repo) UpdateBlockContent(ctx context.Context, tx *sql.Tx, b domain.ContentBlock) error {
	kind, text, video, thumb, transcr, minutes, err := blockValues(b)
	if err != nil {
		return err
	}
	return mustAffect(r.q(tx).ExecContext(ctx, `
UPDATE content_blocks SET kind=?, text_body=?, video_url=?, thumbnail_url=?, transcription=?, duration_minutes=?, updated_at=? WHERE id=?`,
		kind, text, video, thumb, transcr, minutes, b.UpdatedAt, b.ID))
}

func (r Repo) SetBlockOrder(ctx context.Context, tx *sql.Tx, id string, order int, ts string) error {
	return r.setOrder(ctx, tx, "content_blocks", id, order, ts)
}

func (r Repo) ParkBlock(ctx context.Context, tx *sql.Tx, id string) error {
	return r.park(ctx, tx, "content_blocks", id)
}

func (r Repo) DeleteBlock(ctx context.Context, tx *sql.Tx, id string) error {
	return mustAffect(r.q(tx).ExecContext(ctx, `DELETE FROM content_blocks WHERE id=?`, id))
}
