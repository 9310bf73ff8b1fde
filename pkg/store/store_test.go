package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viniciusrubens/featurepipe/pkg/dataset"
	"github.com/viniciusrubens/featurepipe/pkg/errs"
	"github.com/viniciusrubens/featurepipe/pkg/features"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "sqlite://")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	want, err := features.Generate(features.DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, want, DefaultTable, ModeReplace))
	got, err := s.Read(ctx, DefaultTable)
	require.NoError(t, err)

	assert.Equal(t, want.Names(), got.Names())
	assert.Equal(t, want.Schema().Kinds, got.Schema().Kinds)
	assert.Equal(t, want.NumRows(), got.NumRows())
	assert.True(t, want.Equal(got))
}

func TestRoundTripFileBacked(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "feature_store.db")
	uri := "sqlite:///" + path

	s, err := Open(ctx, uri)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, uri, s.URI())
	assert.Equal(t, "sqlite", s.Dialect())

	want, err := features.Generate(features.Config{Seed: 9, Samples: 25, Features: 6, Independent: 2, Derived: 2})
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, want, "features", ModeReplace))

	// A second connection sees the committed table.
	other, err := Open(ctx, uri)
	require.NoError(t, err)
	defer other.Close()
	got, err := other.Read(ctx, "features")
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestReplaceOverwritesSchemaAndRows(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	m1, err := features.Generate(features.Config{Seed: 1, Samples: 30, Features: 10, Independent: 2, Derived: 5})
	require.NoError(t, err)
	m2, err := dataset.New(
		dataset.Column{Name: "alpha", Kind: dataset.Float, Values: []float64{1.5, -2.25}},
		dataset.Column{Name: "label", Kind: dataset.Int, Values: []float64{0, 1}},
	)
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, m1, "features", ModeReplace))
	require.NoError(t, s.Write(ctx, m2, "features", ModeReplace))

	got, err := s.Read(ctx, "features")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "label"}, got.Names())
	assert.Equal(t, 2, got.NumRows())
	assert.True(t, m2.Equal(got))
}

func TestWriteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	m, err := features.Generate(features.DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, m, "features", ModeReplace))
	require.NoError(t, s.Write(ctx, m, "features", ModeReplace))

	got, err := s.Read(ctx, "features")
	require.NoError(t, err)
	assert.Equal(t, m.NumRows(), got.NumRows(), "rows must not be appended")
}

func TestWriteRejectsDuplicateColumns(t *testing.T) {
	s := openMemory(t)
	f, err := dataset.New(
		dataset.Column{Name: "x", Values: []float64{1}},
		dataset.Column{Name: "x", Values: []float64{2}},
	)
	require.NoError(t, err)

	err = s.Write(context.Background(), f, "features", ModeReplace)
	require.ErrorIs(t, err, errs.ErrSchema)
}

func TestWriteRejectsBadTableName(t *testing.T) {
	s := openMemory(t)
	f, err := dataset.New(dataset.Column{Name: "x", Values: []float64{1}})
	require.NoError(t, err)

	for _, name := range []string{"", "1features", "drop table;", `a"b`} {
		err = s.Write(context.Background(), f, name, ModeReplace)
		assert.ErrorIs(t, err, errs.ErrSchema, name)
	}
}

func TestWriteKeepsPreviousTableOnSchemaError(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	good, err := features.Generate(features.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, good, "features", ModeReplace))

	bad, err := dataset.New(
		dataset.Column{Name: "x", Values: []float64{1}},
		dataset.Column{Name: "x", Values: []float64{2}},
	)
	require.NoError(t, err)
	require.Error(t, s.Write(ctx, bad, "features", ModeReplace))

	got, err := s.Read(ctx, "features")
	require.NoError(t, err)
	assert.True(t, good.Equal(got))
}

func TestReadMissingTable(t *testing.T) {
	s := openMemory(t)
	_, err := s.Read(context.Background(), "nope")
	require.ErrorIs(t, err, errs.ErrTableNotFound)
}

func TestReadTableNameIgnoresCase(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	f, err := features.Generate(features.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, f, "Features", ModeReplace))

	for _, name := range []string{"Features", "features", "FEATURES"} {
		got, err := s.Read(ctx, name)
		require.NoError(t, err, name)
		assert.True(t, f.Equal(got), name)
	}
}

func TestReadEmptyTable(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	f, err := dataset.New(
		dataset.Column{Name: "x", Kind: dataset.Float},
		dataset.Column{Name: "target", Kind: dataset.Int},
	)
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, f, "empty", ModeReplace))

	got, err := s.Read(ctx, "empty")
	require.NoError(t, err)
	assert.Equal(t, 0, got.NumRows())
	assert.Equal(t, f.Schema(), got.Schema())
}

func TestOpenUnavailable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	tests := []struct {
		name string
		uri  string
	}{
		{"unknown scheme", "mysql://localhost/db"},
		{"sqlite host form", "sqlite://host/db.sqlite"},
		{"parent is a file", "sqlite:///" + blocker + "/store.db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), tt.uri)
			require.ErrorIs(t, err, errs.ErrStoreUnavailable)
		})
	}
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri     string
		dialect string
		dsn     string
	}{
		{"sqlite://", "sqlite", ":memory:"},
		{"sqlite:///:memory:", "sqlite", ":memory:"},
		{"sqlite:///store.db", "sqlite", "store.db"},
		{"postgres://u:p@localhost:5432/db", "postgres", "postgres://u:p@localhost:5432/db"},
		{"postgresql://localhost/db", "postgres", "postgresql://localhost/db"},
	}
	for _, tt := range tests {
		d, dsn, err := parseURI(tt.uri)
		require.NoError(t, err, tt.uri)
		assert.Equal(t, tt.dialect, d.name, tt.uri)
		assert.Equal(t, tt.dsn, dsn, tt.uri)
	}
}

func TestDialectSQL(t *testing.T) {
	schema := dataset.Schema{Names: []string{"feature_0", "target"}, Kinds: []dataset.Kind{dataset.Float, dataset.Int}}

	assert.Equal(t, `CREATE TABLE "features" ("feature_0" REAL, "target" INTEGER)`, sqliteDialect.createTable("features", schema))
	assert.Equal(t, `INSERT INTO "features" ("feature_0", "target") VALUES (?, ?)`, sqliteDialect.insert("features", schema))
	assert.Equal(t, `CREATE TABLE "features" ("feature_0" DOUBLE PRECISION, "target" BIGINT)`, postgresDialect.createTable("features", schema))
	assert.Equal(t, `INSERT INTO "features" ("feature_0", "target") VALUES ($1, $2)`, postgresDialect.insert("features", schema))
	assert.Equal(t, dataset.Int, kindOf("int8"))
	assert.Equal(t, dataset.Float, kindOf("FLOAT8"))
}
