package repo

import (
	"context"
	"database/sql"

	"courseline/internal/domain"
)

const reviewColumns = `rv.id, rv.course_id, rv.user_id, COALESCE(u.full_name,''), rv.rating, COALESCE(rv.comment,''), rv.created_at, rv.updated_at`

func scanReview(row rowScanner) (domain.Review, error) {
	var rv domain.Review
	err := row.Scan(&rv.ID, &rv.CourseID, &rv.UserID, &rv.UserFullName, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt)
	return rv, err
}

func (r Repo) GetReview(ctx context.Context, tx *sql.Tx, id string) (domain.Review, error) {
	rv, err := scanReview(r.q(tx).QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews rv LEFT JOIN users u ON u.id = rv.user_id WHERE rv.id=?`, id))
	return rv, scanErr(err, "review")
}

// HasReviewed reports whether userID already reviewed courseID.
func (r Repo) HasReviewed(ctx context.Context, tx *sql.Tx, userID, courseID string) (bool, error) {
	var n int
	err := r.q(tx).QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews WHERE user_id=? AND course_id=?`, userID, courseID).Scan(&n)
	return n > 0, err
}

func (r Repo) InsertReview(ctx context.Context, tx *sql.Tx, rv domain.Review) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO reviews(id, course_id, user_id, rating, comment, created_at, updated_at) VALUES (?,?,?,?,?,?,?)`,
		rv.ID, rv.CourseID, rv.UserID, rv.Rating, nullable(rv.Comment), rv.CreatedAt, rv.UpdatedAt)
	return err
}

func (r Repo) UpdateReview(ctx context.Context, tx *sql.Tx, rv domain.Review) error {
	return mustAffect(r.q(tx).ExecContext(ctx, `UPDATE reviews SET rating=?, comment=?, updated_at=? WHERE id=?`,
		rv.Rating, nullable(rv.Comment), rv.UpdatedAt, rv.ID))
}

func (r Repo) DeleteReview(ctx context.Context, tx *sql.Tx, id string) error {
	return mustAffect(r.q(tx).ExecContext(ctx, `DELETE FROM reviews WHERE id=?`, id))
}

// ListReviews returns one page of a course's reviews, newest first, and the total.
func (r Repo) ListReviews(ctx context.Context, courseID string, limit, offset int) ([]domain.Review, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews WHERE course_id=?`, courseID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+reviewColumns+` FROM reviews rv LEFT JOIN users u ON u.id = rv.user_id
WHERE rv.course_id=? ORDER BY rv.created_at DESC, rv.id LIMIT ? OFFSET ?`, courseID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []domain.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rv)
	}
	return out, total, rows.Err()
}
