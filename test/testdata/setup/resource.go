package setup

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ResourceManager owns the containers one integration test binary shares.
// Postgres is started and migrated on first use; every test then works
// inside its own transaction.
type ResourceManager struct {
	logger *zap.Logger
	docker *dockertest.Pool

	mu       sync.Mutex
	postgres *postgresContainer
}

func NewResourceManager(logger *zap.Logger) (*ResourceManager, error) {
	docker, err := dockertest.NewPool("")
	if err != nil {
		return nil, err
	}

	return &ResourceManager{
		logger: logger,
		docker: docker,
	}, nil
}

func (r *ResourceManager) ensurePostgres() (*postgresContainer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.postgres != nil {
		return r.postgres, nil
	}

	opts := postgresOptionsFromEnv()
	container, err := startPostgres(r.docker, r.logger, opts)
	if err != nil {
		return nil, err
	}
	if err := container.migrate(opts.migrationSource, r.logger); err != nil {
		container.close(r.docker, r.logger)
		return nil, err
	}

	r.postgres = container
	return container, nil
}

// SetupPostgres returns a fresh transaction on the shared database and a
// rollback func the caller defers.
//
//	tx, rollback, err := rm.SetupPostgres()
//	defer rollback()
func (r *ResourceManager) SetupPostgres() (pgx.Tx, func(), error) {
	container, err := r.ensurePostgres()
	if err != nil {
		return nil, nil, err
	}

	tx, err := container.pool.Begin(context.Background())
	if err != nil {
		return nil, nil, err
	}

	rollback := func() {
		err := tx.Rollback(context.Background())
		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			r.logger.Error("Failed to rollback transaction", zap.Error(err))
		}
	}

	return tx, rollback, nil
}

// WithPostgresTx runs fn inside a transaction that is always rolled back.
func (r *ResourceManager) WithPostgresTx(t *testing.T, fn func(tx pgx.Tx)) {
	t.Helper()

	tx, rollback, err := r.SetupPostgres()
	require.NoError(t, err)
	defer rollback()

	fn(tx)
}

func (r *ResourceManager) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.postgres != nil {
		r.postgres.close(r.docker, r.logger)
		r.postgres = nil
	}
}
