//go:build integration

// Runs the store against a real PostgreSQL server. Requires Docker:
//
//	go test -tags=integration ./pkg/store/...
package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/viniciusrubens/featurepipe/pkg/errs"
	"github.com/viniciusrubens/featurepipe/pkg/features"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("features"),
		postgres.WithUsername("featurepipe"),
		postgres.WithPassword("featurepipe"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return uri
}

func TestPostgresRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, startPostgres(t))
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "postgres", s.Dialect())

	want, err := features.Generate(features.DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, want, DefaultTable, ModeReplace))
	got, err := s.Read(ctx, DefaultTable)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
	assert.Equal(t, want.Schema(), got.Schema())

	// Replace with a smaller table.
	cfg := features.DefaultConfig()
	cfg.Samples = 10
	smaller, err := features.Generate(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, smaller, DefaultTable, ModeReplace))
	got, err = s.Read(ctx, DefaultTable)
	require.NoError(t, err)
	assert.Equal(t, 10, got.NumRows())

	_, err = s.Read(ctx, "missing")
	assert.True(t, errs.Is(err, errs.TableNotFound))
}
