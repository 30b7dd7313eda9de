package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/inpe-stac-search/internal/backend"
	"github.com/robert-malhotra/inpe-stac-search/internal/backend/backendtest"
	"github.com/robert-malhotra/inpe-stac-search/internal/catalog"
)

var (
	_ backend.Repository = (*Repository)(nil)
	_ backend.Writer     = (*Repository)(nil)
	_ backend.Pinger     = (*Repository)(nil)
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTest(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(context.Background(), Config{
		Path:         filepath.Join(t.TempDir(), "catalog.db"),
		MaxOpenConns: 4,
	}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepository(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) backendtest.Store {
		return openTest(t)
	})
}

func TestOpen_MissingPath(t *testing.T) {
	_, err := Open(context.Background(), Config{}, quietLogger())
	assert.Error(t, err)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.db")
	ctx := context.Background()

	repo, err := Open(ctx, Config{Path: path}, quietLogger())
	require.NoError(t, err)
	require.NoError(t, backend.Seed(ctx, repo, backendtest.Dataset()))
	require.NoError(t, repo.Close())

	repo, err = Open(ctx, Config{Path: path}, quietLogger())
	require.NoError(t, err)
	defer repo.Close()

	n, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestPing(t *testing.T) {
	repo := openTest(t)
	assert.NoError(t, repo.Ping(context.Background()))

	require.NoError(t, repo.Close())
	err := repo.Ping(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrRepositoryFailure)
}

func TestPutItems_UnknownCollection(t *testing.T) {
	repo := openTest(t)
	ds := backendtest.Dataset()
	ds.Items[0].Collection = "nope"

	require.NoError(t, repo.PutCollections(context.Background(), ds.Collections))
	err := repo.PutItems(context.Background(), ds.Items[:1])
	assert.ErrorIs(t, err, backend.ErrRepositoryFailure)
}

func TestFetch_CorruptAssets(t *testing.T) {
	repo := openTest(t)
	ctx := context.Background()
	require.NoError(t, backend.Seed(ctx, repo, backendtest.Dataset()))

	_, err := repo.db.ExecContext(ctx, `UPDATE stac_item SET assets = 'not json' WHERE id = 'a1'`)
	require.NoError(t, err)

	_, err = repo.Fetch(ctx, nil, backend.Window{Limit: 10}, []backend.OrderBy{{Field: catalog.ColumnID}})
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrRepositoryFailure)
}

func TestFetch_UnknownSortColumn(t *testing.T) {
	repo := openTest(t)
	_, err := repo.Fetch(context.Background(), nil, backend.Window{Limit: 1}, []backend.OrderBy{{Field: "1; DROP TABLE stac_item"}})
	assert.ErrorIs(t, err, backend.ErrUnsupportedExpression)
}
