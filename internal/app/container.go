package app

import (
	"context"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"jobflow/internal/config"
	"jobflow/internal/database"
	"jobflow/internal/database/migration"
	dbpostgres "jobflow/internal/database/postgres"
	"jobflow/migrations"
)

// Container holds the database-backed dependencies shared by cmd/api and
// cmd/scraper.
type Container struct {
	Config config.Config
	DB     database.DB
}

// NewContainer connects to Postgres and brings the schema up to date.
func NewContainer(ctx context.Context, cfg config.Config, applicationName string, logger *log.Logger) (*Container, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := dbpostgres.Connect(connectCtx, cfg.Database, applicationName, logger)
	if err != nil {
		return nil, err
	}

	migCtx, migCancel := context.WithTimeout(ctx, 2*time.Minute)
	defer migCancel()
	r := migration.Runner{FS: migrationSource(cfg.Migrations), Logger: logger}
	n, err := r.Run(migCtx, db.SQLDB())
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if n > 0 {
		logger.Printf("[Migration] schema updated applied=%d", n)
	}

	return &Container{Config: cfg, DB: db}, nil
}

func migrationSource(cfg config.MigrationsConfig) fs.FS {
	if dir := strings.TrimSpace(cfg.Dir); dir != "" {
		return os.DirFS(dir)
	}
	return migrations.FS
}

func (c *Container) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
