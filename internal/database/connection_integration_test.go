//go:build integration

package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/placesearch/internal/testutil"
)

func TestMigrateUpAndDown(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	source := "file://../../migrations"
	require.NoError(t, Migrate(pc.ConnectionString(), source))
	// second run is a no-op
	require.NoError(t, Migrate(pc.ConnectionString(), source))

	pool, err := NewPool(ctx, Config{URL: pc.ConnectionString(), MaxConns: 4})
	require.NoError(t, err)
	defer pool.Close()

	var exists bool
	require.NoError(t, pool.QueryRow(ctx, `SELECT to_regclass('public.places') IS NOT NULL`).Scan(&exists))
	assert.True(t, exists)

	require.NoError(t, MigrateDown(pc.ConnectionString(), source, 1))
	require.NoError(t, pool.QueryRow(ctx, `SELECT to_regclass('public.places') IS NOT NULL`).Scan(&exists))
	assert.False(t, exists)
}
