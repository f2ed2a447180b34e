package e2e_test

import (
	"context"
	"sync"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
)

var (
	postgresOnce    sync.Once
	postgresParams  PostgresParams
	postgresErr     error
	postgresCleanup func()
)

// getSharedPostgres returns connection settings for a PostgreSQL server
// shared by all E2E tests. Each test uses its own database on it.
func getSharedPostgres(t *testing.T) PostgresParams {
	t.Helper()

	postgresOnce.Do(func() {
		ctx := context.Background()

		pgContainer, err := pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("postgres"),
			pgcontainer.WithUsername("testuser"),
			pgcontainer.WithPassword("testpass"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			postgresErr = err
			return
		}

		postgresCleanup = func() {
			_ = testcontainers.TerminateContainer(pgContainer)
		}

		host, err := pgContainer.Host(ctx)
		if err != nil {
			postgresErr = err
			return
		}

		port, err := pgContainer.MappedPort(ctx, "5432/tcp")
		if err != nil {
			postgresErr = err
			return
		}

		postgresParams = PostgresParams{
			Host:     host,
			Port:     port.Int(),
			User:     "testuser",
			Password: "testpass",
		}
	})

	if postgresErr != nil {
		t.Fatalf("failed to start postgres container: %v", postgresErr)
	}

	return postgresParams
}
