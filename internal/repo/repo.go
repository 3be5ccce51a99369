package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"courseline/internal/domain"
)

// Repo is the storage collaborator. Methods taking a *sql.Tx run on the
// database directly when tx is nil.
type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r Repo) q(tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return r.DB
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func mustAffect(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// EnsureUser inserts the user or refreshes its non-empty profile fields.
func (r Repo) EnsureUser(ctx context.Context, tx *sql.Tx, u domain.User) error {
	if strings.TrimSpace(u.ID) == "" {
		return errors.New("user id required")
	}
	if u.CreatedAt == "" {
		u.CreatedAt = stamp()
	}
	_, err := r.q(tx).ExecContext(ctx, `
INSERT INTO users(id, full_name, email, created_at) VALUES (?,?,?,?)
ON CONFLICT(id) DO UPDATE SET
  full_name = CASE WHEN excluded.full_name <> '' THEN excluded.full_name ELSE users.full_name END,
  email = COALESCE(excluded.email, users.email)`,
		u.ID, u.FullName, nullable(u.Email), u.CreatedAt)
	return err
}

func (r Repo) GetUser(ctx context.Context, tx *sql.Tx, id string) (domain.User, error) {
	var u domain.User
	err := r.q(tx).QueryRowContext(ctx, `SELECT id, full_name, COALESCE(email,''), created_at FROM users WHERE id=?`, id).
		Scan(&u.ID, &u.FullName, &u.Email, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	if err != nil {
		return u, err
	}
	u.Roles, err = r.UserRoles(ctx, tx, id)
	return u, err
}

func (r Repo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT u.id, u.full_name, COALESCE(u.email,''), u.created_at, COALESCE(GROUP_CONCAT(ur.role, ','), '')
FROM users u LEFT JOIN user_roles ur ON ur.user_id = u.id
GROUP BY u.id ORDER BY u.created_at, u.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.User
	for rows.Next() {
		var u domain.User
		var roles string
		if err := rows.Scan(&u.ID, &u.FullName, &u.Email, &u.CreatedAt, &roles); err != nil {
			return nil, err
		}
		u.Roles = []string{}
		if roles != "" {
			u.Roles = strings.Split(roles, ",")
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r Repo) UserRoles(ctx context.Context, tx *sql.Tx, userID string) ([]string, error) {
	rows, err := r.q(tx).QueryContext(ctx, `SELECT role FROM user_roles WHERE user_id=? ORDER BY role`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	roles := []string{}
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r Repo) AssignRole(ctx context.Context, tx *sql.Tx, userID, role string) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT OR IGNORE INTO user_roles(user_id, role) VALUES (?,?)`, userID, role)
	return err
}

func (r Repo) RevokeRole(ctx context.Context, tx *sql.Tx, userID, role string) error {
	return mustAffect(r.q(tx).ExecContext(ctx, `DELETE FROM user_roles WHERE user_id=? AND role=?`, userID, role))
}

// CountAdmins is used to refuse removing the last administrator.
func (r Repo) CountAdmins(ctx context.Context, tx *sql.Tx) (int, error) {
	var n int
	err := r.q(tx).QueryRowContext(ctx, `SELECT COUNT(*) FROM user_roles WHERE role=?`, domain.RoleAdmin).Scan(&n)
	return n, err
}

func scanErr(err error, entity string) error {
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("scan %s: %w", entity, err)
	}
	return nil
}
