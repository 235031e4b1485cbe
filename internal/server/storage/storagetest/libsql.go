//go:build integration

package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/server/storage"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const sqldImage = "ghcr.io/tursodatabase/libsql-server:latest"

// NewLibSQL returns a migrated backend talking to its own sqld container
// over HTTP. sqld serves a single database per instance, so every call
// starts a fresh container.
func NewLibSQL(t testing.TB) *storage.Backend {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        sqldImage,
			ExposedPorts: []string{"8080/tcp"},
			WaitingFor: wait.ForHTTP("/health").
				WithPort("8080/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "8080/tcp")
	require.NoError(t, err)

	b, err := storage.Open(ctx, storage.Options{
		Kind: storage.KindLibSQL,
		DSN:  fmt.Sprintf("http://%s:%s", host, port.Port()),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	Migrate(t, b)
	return b
}
