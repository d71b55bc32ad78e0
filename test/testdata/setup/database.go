package setup

import (
	"context"
	"fmt"
	"os"
	"time"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"go.uber.org/zap"
)

const (
	defaultPostgresTag     = "16-alpine"
	defaultMigrationSource = "file://../../../internal/database/migrations"
	postgresMaxWait        = 120 * time.Second
)

// postgresOptions are read from the environment so CI can pin an image or
// point at migrations from a different working directory.
type postgresOptions struct {
	tag             string
	migrationSource string
}

func postgresOptionsFromEnv() postgresOptions {
	opts := postgresOptions{
		tag:             os.Getenv("TEST_POSTGRES_TAG"),
		migrationSource: os.Getenv("TEST_MIGRATION_SOURCE"),
	}
	if opts.tag == "" {
		opts.tag = defaultPostgresTag
	}
	if opts.migrationSource == "" {
		opts.migrationSource = defaultMigrationSource
	}
	return opts
}

type postgresContainer struct {
	pool        *pgxpool.Pool
	databaseURL string
	resource    *dockertest.Resource
}

func startPostgres(dockerPool *dockertest.Pool, logger *zap.Logger, opts postgresOptions) (*postgresContainer, error) {
	resource, err := dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        opts.tag,
		Env: []string{
			"POSTGRES_PASSWORD=password",
			"POSTGRES_USER=postgres",
			"POSTGRES_DB=playbooks",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, fmt.Errorf("could not start postgres %s: %w", opts.tag, err)
	}

	databaseURL := fmt.Sprintf("postgres://postgres:password@%s/playbooks?sslmode=disable", resource.GetHostPort("5432/tcp"))
	logger.Info("Launching Postgres", zap.String("tag", opts.tag), zap.String("url", databaseURL))

	dockerPool.MaxWait = postgresMaxWait
	attempt := 0
	err = dockerPool.Retry(func() error {
		attempt++
		conn, err := pgx.Connect(context.Background(), databaseURL)
		if err != nil {
			logger.Debug("Postgres not ready yet", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		defer func() {
			_ = conn.Close(context.Background())
		}()
		return conn.Ping(context.Background())
	})
	if err != nil {
		_ = dockerPool.Purge(resource)
		return nil, fmt.Errorf("postgres never became ready: %w", err)
	}

	dbPool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		_ = dockerPool.Purge(resource)
		return nil, fmt.Errorf("could not create database pool: %w", err)
	}

	return &postgresContainer{pool: dbPool, databaseURL: databaseURL, resource: resource}, nil
}

// migrate applies every migration under source to the container.
func (c *postgresContainer) migrate(source string, logger *zap.Logger) error {
	if err := databaseutil.MigrationUp(source, c.databaseURL, logger); err != nil {
		return fmt.Errorf("failed to apply migrations from %s: %w", source, err)
	}
	return nil
}

func (c *postgresContainer) close(dockerPool *dockertest.Pool, logger *zap.Logger) {
	c.pool.Close()
	if err := dockerPool.Purge(c.resource); err != nil {
		logger.Error("Failed to purge postgres container", zap.Error(err))
		return
	}
	logger.Info("Purged postgres container")
}
