package repo

import (
	"context"
	"database/sql"
	"fmt"

	"courseline/internal/domain"
)

func (r Repo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, COALESCE(description,''), created_at FROM categories ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r Repo) GetCategory(ctx context.Context, tx *sql.Tx, id string) (domain.Category, error) {
	var c domain.Category
	err := r.q(tx).QueryRowContext(ctx, `SELECT id, name, COALESCE(description,''), created_at FROM categories WHERE id=?`, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt)
	return c, scanErr(err, "category")
}

// CategoryNameTaken reports whether another category already uses name (case-insensitive).
func (r Repo) CategoryNameTaken(ctx context.Context, tx *sql.Tx, name, exceptID string) (bool, error) {
	var n int
	err := r.q(tx).QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE name=? COLLATE NOCASE AND id<>?`, name, exceptID).Scan(&n)
	return n > 0, err
}

// MissingCategories returns the ids in ids that do not exist.
func (r Repo) MissingCategories(ctx context.Context, tx *sql.Tx, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.q(tx).QueryContext(ctx, fmt.Sprintf(`SELECT id FROM categories WHERE id IN (%s)`, placeholders(len(ids))), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	found := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (r Repo) InsertCategory(ctx context.Context, tx *sql.Tx, c domain.Category) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO categories(id, name, description, created_at) VALUES (?,?,?,?)`,
		c.ID, c.Name, nullable(c.Description), c.CreatedAt)
	return err
}

func (r Repo) UpdateCategory(ctx context.Context, tx *sql.Tx, c domain.Category) error {
	return mustAffect(r.q(tx).ExecContext(ctx, `UPDATE categories SET name=?, description=? WHERE id=?`, c.Name, nullable(c.Description), c.ID))
}

func (r Repo) DeleteCategory(ctx context.Context, tx *sql.Tx, id string) error {
	return mustAffect(r.q(tx).ExecContext(ctx, `DELETE FROM categories WHERE id=?`, id))
}
