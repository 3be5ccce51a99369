package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"courseline/internal/domain"
)

const courseColumns = `c.id, c.title, COALESCE(c.description,''), c.price, c.status, c.duration_weeks, COALESCE(c.image_url,''), c.instructor_id, c.version, c.created_at, c.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourse(row rowScanner, extra ...any) (domain.Course, error) {
	var (
		c        domain.Course
		price    string
		status   string
		duration sql.NullInt64
	)
	dest := append([]any{&c.ID, &c.Title, &c.Description, &price, &status, &duration, &c.ImageURL, &c.InstructorID, &c.Version, &c.CreatedAt, &c.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return c, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return c, fmt.Errorf("course %s price %q: %w", c.ID, price, err)
	}
	c.Price = p
	c.Status = domain.Status(status)
	c.DurationWeeks = intPtr(duration)
	return c, nil
}

func (r Repo) InsertCourse(ctx context.Context, tx *sql.Tx, c domain.Course) error {
	_, err := r.q(tx).ExecContext(ctx, `
INSERT INTO courses(id,title,description,price,status,duration_weeks,image_url,instructor_id,version,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.Title, nullable(c.Description), c.Price.String(), string(c.Status), nullableInt(c.DurationWeeks),
		nullable(c.ImageURL), c.InstructorID, c.Version, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert course: %w", err)
	}
	return r.SetCourseCategories(ctx, tx, c.ID, c.CategoryIDs)
}

// GetCourse returns the course row with its category ids, without children.
func (r Repo) GetCourse(ctx context.Context, tx *sql.Tx, id string) (domain.Course, error) {
	c, err := scanCourse(r.q(tx).QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses c WHERE c.id=?`, id))
	if err := scanErr(err, "course"); err != nil {
		return domain.Course{}, err
	}
	c.CategoryIDs, err = r.CourseCategoryIDs(ctx, tx, id)
	return c, err
}

// UpdateCourse writes the mutable columns. instructor_id and version are never touched here.
func (r Repo) UpdateCourse(ctx context.Context, tx *sql.Tx, c domain.Course) error {
	return mustAffect(r.q(tx).ExecContext(ctx, `
UPDATE courses SET title=?, description=?, price=?, duration_weeks=?, image_url=?, updated_at=? WHERE id=?`,
		c.Title, nullable(c.Description), c.Price.String(), nullableInt(c.DurationWeeks), nullable(c.ImageURL), c.UpdatedAt, c.ID))
}

func (r Repo) DeleteCourse(ctx context.Context, tx *sql.Tx, id string) error {
	return mustAffect(r.q(tx).ExecContext(ctx, `DELETE FROM courses WHERE id=?`, id))
}

// BumpCourseVersion advances the aggregate version, failing with domain.ErrConflict
// when another writer advanced it first.
func (r Repo) BumpCourseVersion(ctx context.Context, tx *sql.Tx, id string, expected int64) error {
	err := mustAffect(r.q(tx).ExecContext(ctx, `UPDATE courses SET version=version+1 WHERE id=? AND version=?`, id, expected))
	if errors.Is(err, ErrNotFound) {
		return domain.ErrConflict
	}
	return err
}

func (r Repo) SetCourseStatus(ctx context.Context, tx *sql.Tx, id string, status domain.Status, ts string) error {
	return r.setStatus(ctx, tx, "courses", id, status, ts)
}

func (r Repo) CourseCategoryIDs(ctx context.Context, tx *sql.Tx, courseID string) ([]string, error) {
	rows, err := r.q(tx).QueryContext(ctx, `SELECT category_id FROM course_categories WHERE course_id=? ORDER BY category_id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetCourseCategories replaces the course's category set.
func (r Repo) SetCourseCategories(ctx context.Context, tx *sql.Tx, courseID string, categoryIDs []string) error {
	q := r.q(tx)
	if _, err := q.ExecContext(ctx, `DELETE FROM course_categories WHERE course_id=?`, courseID); err != nil {
		return err
	}
	for _, id := range categoryIDs {
		if _, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO course_categories(course_id, category_id) VALUES (?,?)`, courseID, id); err != nil {
			return fmt.Errorf("link category %s: %w", id, err)
		}
	}
	return nil
}

// CourseFilter narrows ListCourses. Visibility is expressed by IncludeAll (admin)
// and OwnerID (instructor who also sees their own unpublished courses).
type CourseFilter struct {
	Search       string
	CategoryID   string
	InstructorID string
	MinRating    *float64
	IncludeAll   bool
	OwnerID      string
	SortBy       string
	Desc         bool
	Limit        int
	Offset       int
}

func (f CourseFilter) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if !f.IncludeAll {
		if f.OwnerID != "" {
			clauses = append(clauses, "(c.status=? OR c.instructor_id=?)")
			args = append(args, string(domain.StatusPublished), f.OwnerID)
		} else {
			clauses = append(clauses, "c.status=?")
			args = append(args, string(domain.StatusPublished))
		}
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + s + "%"
		clauses = append(clauses, "(c.title LIKE ? OR COALESCE(c.description,'') LIKE ?)")
		args = append(args, like, like)
	}
	if f.CategoryID != "" {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM course_categories cc WHERE cc.course_id=c.id AND cc.category_id=?)")
		args = append(args, f.CategoryID)
	}
	if f.InstructorID != "" {
		clauses = append(clauses, "c.instructor_id=?")
		args = append(args, f.InstructorID)
	}
	if f.MinRating != nil {
		clauses = append(clauses, "COALESCE((SELECT AVG(rv.rating) FROM reviews rv WHERE rv.course_id=c.id), 0) >= ?")
		args = append(args, *f.MinRating)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (f CourseFilter) orderBy() string {
	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}
	switch strings.ToLower(f.SortBy) {
	case "title":
		return fmt.Sprintf(" ORDER BY c.title COLLATE NOCASE %s, c.id", dir)
	case "price":
		return fmt.Sprintf(" ORDER BY CAST(c.price AS REAL) %s, c.id", dir)
	case "rating":
		return fmt.Sprintf(" ORDER BY avg_rating %s, c.id", dir)
	default:
		return fmt.Sprintf(" ORDER BY c.created_at %s, c.id", dir)
	}
}

// ListCourses returns one page of course summaries and the total match count.
func (r Repo) ListCourses(ctx context.Context, f CourseFilter) ([]domain.CourseSummary, int, error) {
	where, args := f.where()
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM courses c`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	query := `SELECT ` + courseColumns + `,
  COALESCE((SELECT AVG(rv.rating) FROM reviews rv WHERE rv.course_id=c.id), 0) AS avg_rating,
  (SELECT COUNT(*) FROM reviews rv WHERE rv.course_id=c.id),
  (SELECT COUNT(*) FROM sections s WHERE s.course_id=c.id AND (? OR s.status=? OR c.instructor_id=?)),
  (SELECT COUNT(*) FROM enrollments e WHERE e.course_id=c.id)
FROM courses c` + where + f.orderBy()
	queryArgs := append([]any{f.IncludeAll, string(domain.StatusPublished), f.OwnerID}, args...)
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		queryArgs = append(queryArgs, f.Limit, f.Offset)
	}
	rows, err := r.DB.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()
	out := []domain.CourseSummary{}
	for rows.Next() {
		var s domain.CourseSummary
		c, err := scanCourse(rows, &s.AverageRating, &s.ReviewCount, &s.SectionCount, &s.EnrollmentCount)
		if err != nil {
			return nil, 0, err
		}
		s.Course = c
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (r Repo) setStatus(ctx context.Context, tx *sql.Tx, table, id string, status domain.Status, ts string) error {
	return mustAffect(r.q(tx).ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET status=?, updated_at=? WHERE id=?`, table), string(status), ts, id))
}
