package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id string, at time.Time, failed ...string) BatchEntry {
	return BatchEntry{ID: id, CreatedAt: at, Documents: 3, Records: 3 - len(failed), Failures: len(failed), FailedLabels: failed}
}

func TestMemoryLogKeepsNewestFirst(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog(2)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, log.RecordBatch(ctx, entry("a", base)))
	require.NoError(t, log.RecordBatch(ctx, entry("b", base.Add(time.Minute))))
	require.NoError(t, log.RecordBatch(ctx, entry("c", base.Add(2*time.Minute), "bad.xml")))

	got, err := log.RecentBatches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, []string{"bad.xml"}, got[0].FailedLabels)
	assert.Equal(t, "b", got[1].ID)

	one, err := log.RecentBatches(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestSQLiteRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "audit", "facturas.db"))
	require.NoError(t, err)
	defer repo.Close()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordBatch(ctx, entry("first", base)))
	require.NoError(t, repo.RecordBatch(ctx, entry("second", base.Add(time.Hour), "x.xml", "y.xml")))

	got, err := repo.RecentBatches(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].ID)
	assert.Equal(t, 2, got[0].Failures)
	assert.Equal(t, []string{"x.xml", "y.xml"}, got[0].FailedLabels)
	assert.Equal(t, "first", got[1].ID)
	assert.Empty(t, got[1].FailedLabels)
	assert.True(t, base.Equal(got[1].CreatedAt))

	assert.NoError(t, repo.Ping(ctx))
}

func TestSQLiteRepositoryDuplicateID(t *testing.T) {
	ctx := context.Background()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "facturas.db"))
	require.NoError(t, err)
	defer repo.Close()

	now := time.Now()
	require.NoError(t, repo.RecordBatch(ctx, entry("dup", now)))
	assert.Error(t, repo.RecordBatch(ctx, entry("dup", now)))
}
