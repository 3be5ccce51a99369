package engine

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"courseline/internal/config"
	"courseline/internal/db"
	"courseline/internal/domain"
	"courseline/internal/migrate"
	"courseline/internal/repo"
)

func newUnitEngine(t *testing.T) Engine {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	e := New(conn, config.Default())
	log := logrus.New()
	log.SetOutput(io.Discard)
	e.Log = log
	return e
}

// A writer that advanced the version after this unit read the course wins;
// the unit fails with a conflict and none of its writes survive.
func TestUnitRollsBackWhenVersionMovedUnderneath(t *testing.T) {
	e := newUnitEngine(t)
	ctx := context.Background()
	owner := domain.Principal{UserID: "inst-1", Roles: []string{domain.RoleInstructor}}
	c, err := e.CreateCourse(ctx, owner, CourseInput{Title: "Concurrency", Price: decimal.Zero})
	require.NoError(t, err)
	before, err := e.Repo.GetCourse(ctx, nil, c.ID)
	require.NoError(t, err)

	err = e.withCourse(ctx, c.ID, func(u *unit) error {
		ts := e.stamp()
		if err := e.Repo.InsertSection(ctx, u.tx, domain.Section{
			ID: uuid.NewString(), CourseID: c.ID, Title: "lost", Order: 0,
			Status: domain.StatusDraft, CreatedAt: ts, UpdatedAt: ts,
		}); err != nil {
			return err
		}
		u.dirty = true
		_, err := u.tx.ExecContext(ctx, `UPDATE courses SET version=version+1 WHERE id=?`, c.ID)
		return err
	})
	require.ErrorIs(t, err, domain.ErrConflict)

	sections, err := e.Repo.ListSections(ctx, nil, c.ID)
	require.NoError(t, err)
	require.Empty(t, sections)
	after, err := e.Repo.GetCourse(ctx, nil, c.ID)
	require.NoError(t, err)
	require.Equal(t, before.Version, after.Version)
	evts, err := e.Repo.LatestEvents(ctx, repo.EventFilter{CourseID: c.ID, Type: "section.created"})
	require.NoError(t, err)
	require.Empty(t, evts)
}
