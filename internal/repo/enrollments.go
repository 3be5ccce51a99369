package repo

import (
	"context"
	"database/sql"

	"courseline/internal/domain"
)

func (r Repo) GetEnrollment(ctx context.Context, tx *sql.Tx, userID, courseID string) (domain.Enrollment, error) {
	var e domain.Enrollment
	err := r.q(tx).QueryRowContext(ctx, `SELECT id, user_id, course_id, progress_percentage, enrolled_at FROM enrollments WHERE user_id=? AND course_id=?`, userID, courseID).
		Scan(&e.ID, &e.UserID, &e.CourseID, &e.ProgressPercentage, &e.EnrolledAt)
	return e, scanErr(err, "enrollment")
}

func (r Repo) InsertEnrollment(ctx context.Context, tx *sql.Tx, e domain.Enrollment) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO enrollments(id, user_id, course_id, progress_percentage, enrolled_at) VALUES (?,?,?,?,?)`,
		e.ID, e.UserID, e.CourseID, e.ProgressPercentage, e.EnrolledAt)
	return err
}

func (r Repo) DeleteEnrollment(ctx context.Context, tx *sql.Tx, id string) error {
	return mustAffect(r.q(tx).ExecContext(ctx, `DELETE FROM enrollments WHERE id=?`, id))
}

// ListEnrolledCourses returns the user's enrollments, newest first.
func (r Repo) ListEnrolledCourses(ctx context.Context, userID string) ([]domain.EnrolledCourse, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT e.id, e.user_id, e.course_id, e.progress_percentage, e.enrolled_at, c.title, c.status, c.instructor_id
FROM enrollments e JOIN courses c ON c.id = e.course_id
WHERE e.user_id=? ORDER BY e.enrolled_at DESC, e.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.EnrolledCourse{}
	for rows.Next() {
		var ec domain.EnrolledCourse
		var status string
		if err := rows.Scan(&ec.ID, &ec.UserID, &ec.CourseID, &ec.ProgressPercentage, &ec.EnrolledAt, &ec.CourseTitle, &status, &ec.InstructorID); err != nil {
			return nil, err
		}
		ec.CourseStatus = domain.Status(status)
		out = append(out, ec)
	}
	return out, rows.Err()
}
