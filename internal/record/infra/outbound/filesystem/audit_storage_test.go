package filesystem

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	recordDomain "github.com/davicafu/querylab/internal/record/domain"
)

func newTestStorage(t *testing.T) *JSONAuditStorage {
	t.Helper()
	return NewJSONAuditStorage(filepath.Join(t.TempDir(), "searches.json"))
}

func TestJSONAuditStorage_LogBatchAppends(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()
	at := time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

	require.NoError(t, storage.LogBatch(ctx, []recordDomain.SearchAudit{
		{RawFilter: "{status=eq:active}", Fields: []string{"status"}, ResultSize: 2, At: at},
	}))
	// Un segundo lote se añade al fichero existente, no lo pisa.
	require.NoError(t, storage.LogBatch(ctx, []recordDomain.SearchAudit{
		{RawFilter: "{priority=gte:2}", Fields: []string{"priority"}, ResultSize: 1, At: at.Add(time.Hour)},
	}))

	trends, err := storage.GetDailySearchTrend(ctx, at.AddDate(0, 0, -1), at.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, trends, 1)
	assert.Equal(t, 2, trends[0].SearchCount)
}

func TestJSONAuditStorage_TrendGroupsByUTCDayAndFiltersRange(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	day1 := time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)
	day2 := time.Date(2024, 5, 11, 23, 59, 0, 0, time.UTC)
	outside := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, storage.LogBatch(ctx, []recordDomain.SearchAudit{
		{RawFilter: "{status=eq:active}", At: day1},
		{RawFilter: "{priority=gte:2}", At: day1.Add(2 * time.Hour)},
		{RawFilter: "{name=beta}", At: day2},
		{RawFilter: "{name=old}", At: outside},
	}))

	trends, err := storage.GetDailySearchTrend(ctx, day1.AddDate(0, 0, -1), day2.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, trends, 2)

	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), trends[0].Day)
	assert.Equal(t, 2, trends[0].SearchCount)
	assert.Equal(t, time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), trends[1].Day)
	assert.Equal(t, 1, trends[1].SearchCount)
}

func TestJSONAuditStorage_TrendOnMissingFileIsEmpty(t *testing.T) {
	storage := newTestStorage(t)

	trends, err := storage.GetDailySearchTrend(context.Background(), time.Now().AddDate(0, 0, -7), time.Now())
	require.NoError(t, err)
	assert.Empty(t, trends)
}
