package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"courseline/internal/config"
	"courseline/internal/db"
	"courseline/internal/engine/auth"
	"courseline/internal/migrate"
)

// Workspace is an opened, migrated workspace with its config loaded.
type Workspace struct {
	Path   string
	DB     *sql.DB
	Config *config.Config
}

// Close releases the database handle.
func (w Workspace) Close() error {
	if w.DB == nil {
		return nil
	}
	return w.DB.Close()
}

// Open opens the workspace database, applies pending migrations, loads
// courseline.yml (falling back to defaults) and seeds the bootstrap admin.
func Open(ctx context.Context, workspace string, log logrus.FieldLogger) (Workspace, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return Workspace{}, err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return Workspace{}, fmt.Errorf("open db: %w", err)
	}
	applied, err := migrate.Up(ctx, conn)
	if err != nil {
		conn.Close()
		return Workspace{}, fmt.Errorf("migrate: %w", err)
	}
	for _, name := range applied {
		log.WithField("migration", name).Info("applied migration")
	}
	seeded, err := auth.New(conn).Bootstrap(ctx, cfg.Auth.BootstrapAdmin)
	if err != nil {
		conn.Close()
		return Workspace{}, fmt.Errorf("bootstrap admin: %w", err)
	}
	if seeded {
		log.WithField("user_id", cfg.Auth.BootstrapAdmin).Info("seeded bootstrap admin")
	}
	return Workspace{Path: workspace, DB: conn, Config: cfg}, nil
}
