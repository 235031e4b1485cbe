//go:build integration

package storagetest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/server/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresImage    = "postgres:16-alpine"
	postgresPassword = "photocaption"
)

var (
	pgOnce sync.Once
	pgHost string
	pgPort string
	pgErr  error
)

func startPostgres() {
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        postgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_PASSWORD": postgresPassword,
				"POSTGRES_DB":       "postgres",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		pgErr = fmt.Errorf("start postgres: %w", err)
		return
	}
	host, err := c.Host(ctx)
	if err != nil {
		pgErr = err
		return
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		pgErr = err
		return
	}
	pgHost, pgPort = host, port.Port()
}

func postgresDSN(db string) string {
	return fmt.Sprintf("postgres://postgres:%s@%s:%s/%s?sslmode=disable", postgresPassword, pgHost, pgPort, db)
}

// NewPostgres returns a migrated backend on a fresh database inside a shared
// Postgres container. The container lives for the whole test binary and is
// reaped by testcontainers when the process exits.
func NewPostgres(t testing.TB) *storage.Backend {
	t.Helper()
	pgOnce.Do(startPostgres)
	require.NoError(t, pgErr)

	ctx := context.Background()
	admin, err := storage.Open(ctx, storage.Options{Kind: storage.KindPostgres, DSN: postgresDSN("postgres")})
	require.NoError(t, err)
	defer admin.Close()

	name := "t_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err = admin.DB.ExecContext(ctx, "CREATE DATABASE "+name)
	require.NoError(t, err)

	b, err := storage.Open(ctx, storage.Options{Kind: storage.KindPostgres, DSN: postgresDSN(name)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	Migrate(t, b)
	return b
}
