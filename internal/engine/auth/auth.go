// Package auth resolves stored users, roles and API keys into principals.
package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"courseline/internal/domain"
	"courseline/internal/events"
	"courseline/internal/repo"
)

// ErrInvalidAPIKey is returned for unknown or malformed API keys.
var ErrInvalidAPIKey = errors.New("invalid api key")

// Service provides user and credential helpers backed by SQL.
type Service struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Now    func() time.Time
}

func New(db *sql.DB) Service {
	return Service{DB: db, Repo: repo.Repo{DB: db}, Events: events.Writer{DB: db}, Now: time.Now}
}

func (s Service) stamp() string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().UTC().Format(time.RFC3339)
}

// Principal loads the stored roles for userID.
func (s Service) Principal(ctx context.Context, userID string) (domain.Principal, error) {
	u, err := s.Repo.GetUser(ctx, nil, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Principal{}, domain.NotFound("user", userID)
	}
	if err != nil {
		return domain.Principal{}, err
	}
	return domain.Principal{UserID: u.ID, Roles: u.Roles}, nil
}

// PrincipalForAPIKey resolves a raw API key to its owner's principal.
func (s Service) PrincipalForAPIKey(ctx context.Context, rawKey string) (domain.Principal, error) {
	if strings.TrimSpace(rawKey) == "" {
		return domain.Principal{}, ErrInvalidAPIKey
	}
	key, err := s.Repo.GetAPIKeyByHash(ctx, repo.HashAPIKey(rawKey))
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Principal{}, ErrInvalidAPIKey
	}
	if err != nil {
		return domain.Principal{}, err
	}
	p, err := s.Principal(ctx, key.UserID)
	if domain.IsNotFound(err) {
		return domain.Principal{}, ErrInvalidAPIKey
	}
	return p, err
}

// UpsertUser creates or updates a user and grants roles. Only admins may do this,
// except while the store has no admin yet.
func (s Service) UpsertUser(ctx context.Context, actor domain.Principal, u domain.User, roles []string) (domain.User, error) {
	u.ID = strings.TrimSpace(u.ID)
	if u.ID == "" {
		return domain.User{}, domain.BadRequest(domain.CodeInvalidInput, "user id is required")
	}
	canonical := make([]string, 0, len(roles))
	for _, r := range roles {
		role, err := domain.ParseRole(r)
		if err != nil {
			return domain.User{}, err
		}
		canonical = append(canonical, role)
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()
	if !actor.IsAdmin() {
		admins, err := s.Repo.CountAdmins(ctx, tx)
		if err != nil {
			return domain.User{}, err
		}
		if admins > 0 {
			return domain.User{}, domain.Forbidden("manage users")
		}
	}
	u.CreatedAt = s.stamp()
	if err := s.Repo.EnsureUser(ctx, tx, u); err != nil {
		return domain.User{}, err
	}
	for _, role := range canonical {
		if err := s.Repo.AssignRole(ctx, tx, u.ID, role); err != nil {
			return domain.User{}, fmt.Errorf("assign role %s: %w", role, err)
		}
	}
	if err := s.Events.Append(ctx, tx, events.UserUpserted, "", "user", u.ID, actor.UserID, events.EventPayload{"roles": canonical}); err != nil {
		return domain.User{}, err
	}
	out, err := s.Repo.GetUser(ctx, tx, u.ID)
	if err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	return out, nil
}

// RevokeRole removes role from userID. The last admin cannot be demoted.
func (s Service) RevokeRole(ctx context.Context, actor domain.Principal, userID, role string) error {
	if !actor.IsAdmin() {
		return domain.Forbidden("manage users")
	}
	role, err := domain.ParseRole(role)
	if err != nil {
		return err
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if role == domain.RoleAdmin {
		n, err := s.Repo.CountAdmins(ctx, tx)
		if err != nil {
			return err
		}
		if n <= 1 {
			return domain.BadRequest(domain.CodeInvalidInput, "cannot revoke the last Admin")
		}
	}
	if err := s.Repo.RevokeRole(ctx, tx, userID, role); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.NotFound("role assignment", userID+"/"+role)
		}
		return err
	}
	if err := s.Events.Append(ctx, tx, events.UserUpserted, "", "user", userID, actor.UserID, events.EventPayload{"revoked": role}); err != nil {
		return err
	}
	return tx.Commit()
}

// IssueAPIKey creates a key for userID and returns the raw secret once.
// Users may issue keys for themselves; admins for anyone.
func (s Service) IssueAPIKey(ctx context.Context, actor domain.Principal, userID, name string) (domain.APIKey, string, error) {
	if !actor.IsAdmin() && (actor.UserID == "" || actor.UserID != userID) {
		return domain.APIKey{}, "", domain.Forbidden("issue api keys")
	}
	if _, err := s.Repo.GetUser(ctx, nil, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.APIKey{}, "", domain.NotFound("user", userID)
		}
		return domain.APIKey{}, "", err
	}
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return domain.APIKey{}, "", fmt.Errorf("generate api key: %w", err)
	}
	raw := "cl_" + hex.EncodeToString(buf)
	key := domain.APIKey{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		KeyHash:   repo.HashAPIKey(raw),
		CreatedAt: s.stamp(),
	}
	if err := s.Repo.InsertAPIKey(ctx, nil, key); err != nil {
		return domain.APIKey{}, "", err
	}
	return key, raw, nil
}

// Bootstrap makes adminID an Admin when the store has none. It is a no-op otherwise.
func (s Service) Bootstrap(ctx context.Context, adminID string) (bool, error) {
	adminID = strings.TrimSpace(adminID)
	if adminID == "" {
		return false, nil
	}
	n, err := s.Repo.CountAdmins(ctx, nil)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.UpsertUser(ctx, domain.Principal{}, domain.User{ID: adminID, FullName: adminID}, []string{domain.RoleAdmin}); err != nil {
		return false, err
	}
	return true, nil
}
