package postgres

import (
	"context"
	"embed"
	stderrors "errors"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// MigrationState is the applied schema version.
type MigrationState struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

// migrator binds golang-migrate to one dedicated connection from the pool,
// so closing the migrator leaves the pool open.
func (c *Connection) migrator() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to open embedded migrations")
	}
	ctx := context.Background()
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to reserve migration connection")
	}
	driver, err := migratepg.WithConnection(ctx, conn, &migratepg.Config{})
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migrate instance")
	}
	return m, nil
}

// RunMigrations applies every pending migration.  An up-to-date schema is
// not an error.
func (c *Connection) RunMigrations() error {
	m, err := c.migrator()
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		version, _, _ := m.Version()
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to run migrations").
			WithDetailf("current version %d", version)
	}
	state, err := c.status(m)
	if err != nil {
		c.logger.Warn("failed to read migration version", logging.Err(err))
		return nil
	}
	c.logger.Info("database migrations completed",
		logging.Int64("version", int64(state.Version)),
		logging.Bool("dirty", state.Dirty),
	)
	return nil
}

// RollbackMigrations reverts the given number of migrations.
func (c *Connection) RollbackMigrations(steps int) error {
	if steps <= 0 {
		return errors.InvalidParam("steps must be greater than 0")
	}
	m, err := c.migrator()
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Steps(-steps); err != nil {
		if stderrors.Is(err, migrate.ErrNoChange) {
			return errors.InvalidState("no migrations to roll back")
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to roll back migrations")
	}
	return nil
}

// MigrationStatus reports the applied version.  A fresh database reports
// version 0.
func (c *Connection) MigrationStatus() (MigrationState, error) {
	m, err := c.migrator()
	if err != nil {
		return MigrationState{}, err
	}
	defer m.Close()
	return c.status(m)
}

func (c *Connection) status(m *migrate.Migrate) (MigrationState, error) {
	version, dirty, err := m.Version()
	if err != nil {
		if stderrors.Is(err, migrate.ErrNilVersion) {
			return MigrationState{}, nil
		}
		return MigrationState{}, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read migration version")
	}
	return MigrationState{Version: version, Dirty: dirty}, nil
}

//Personal.AI order the ending
