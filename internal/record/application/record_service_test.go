package application

import (
	"context"
	"testing"
	"time"

	"github.com/davicafu/querylab/internal/record/domain"
	sharedDomain "github.com/davicafu/querylab/shared/domain"
	sharedQuery "github.com/davicafu/querylab/shared/platform/query"
	"github.com/davicafu/querylab/tests/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(repo *mocks.InMemoryRecordRepo) *RecordService {
	return NewRecordService(repo, mocks.NewDummyCache(), nil, zap.NewNop())
}

func seedRecords(t *testing.T, s *RecordService) (*domain.Record, *domain.Record, *domain.Record) {
	t.Helper()
	ctx := context.Background()

	low, err := s.CreateRecord(ctx, "alpha", 1, "interno")
	require.NoError(t, err)
	mid, err := s.CreateRecord(ctx, "beta", 3, "")
	require.NoError(t, err)
	high, err := s.CreateRecord(ctx, "gamma", 5, "")
	require.NoError(t, err)

	return low, mid, high
}

func TestCreateRecord_Success(t *testing.T) {
	repo := mocks.NewInMemoryRecordRepo()
	service := newTestService(repo)

	record, err := service.CreateRecord(context.Background(), "alpha", 2, "nota")
	assert.NoError(t, err)
	assert.NotNil(t, record)
	assert.Equal(t, "alpha", record.Name)
	assert.Equal(t, domain.RecordDraft, record.Status)

	// ✅ Verificar que se creó un evento Outbox
	assert.Len(t, repo.Outbox, 1)
	assert.Equal(t, domain.RecordCreated, repo.Outbox[0].EventType)
	assert.Equal(t, record.ID.String(), repo.Outbox[0].AggregateID)
}

func TestGetRecord_NotFound(t *testing.T) {
	service := newTestService(mocks.NewInMemoryRecordRepo())

	_, err := service.GetRecord(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestGetRecord_CacheHit(t *testing.T) {
	id := uuid.New()
	record := &domain.Record{ID: id, Name: "cached", Status: domain.RecordActive}

	cache := mocks.NewDummyCache()
	cache.SetForTest(domain.RecordCacheKeyByID(id), record)

	service := NewRecordService(mocks.NewInMemoryRecordRepo(), cache, nil, zap.NewNop())

	got, err := service.GetRecord(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "cached", got.Name)
}

func TestDeleteRecord_EmitsOutboxEvent(t *testing.T) {
	repo := mocks.NewInMemoryRecordRepo()
	service := newTestService(repo)

	record, _ := service.CreateRecord(context.Background(), "borrar", 1, "")

	err := service.DeleteRecord(context.Background(), record.ID)
	assert.NoError(t, err)

	_, err = repo.GetByID(context.Background(), record.ID)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	assert.Len(t, repo.Outbox, 2)
	assert.Equal(t, domain.RecordDeleted, repo.Outbox[1].EventType)
}

// -------------------- ListRecords con filtros --------------------

func TestListRecords_BracketedFilter(t *testing.T) {
	repo := mocks.NewInMemoryRecordRepo()
	service := newTestService(repo)
	_, _, high := seedRecords(t, service)

	got, err := service.ListRecords(context.Background(), "{priority=gte:4}", sharedQuery.OffsetPagination{Limit: 10}, sharedQuery.Sort{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, high.ID, got[0].ID)
}

func TestListRecords_JSONFilter(t *testing.T) {
	repo := mocks.NewInMemoryRecordRepo()
	service := newTestService(repo)
	seedRecords(t, service)

	got, err := service.ListRecords(context.Background(), `{"name":"beta"}`, sharedQuery.OffsetPagination{Limit: 10}, sharedQuery.Sort{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "beta", got[0].Name)
}

func TestListRecords_JSONFilterWithWhitespace(t *testing.T) {
	repo := mocks.NewInMemoryRecordRepo()
	service := newTestService(repo)
	seedRecords(t, service)

	// JSON con espacios tras la llave debe ir por la ruta JSON, no por el
	// parser de llaves (que descartaría el par por no tener '=').
	got, err := service.ListRecords(context.Background(), `{ "name": "beta" }`, sharedQuery.OffsetPagination{Limit: 10}, sharedQuery.Sort{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "beta", got[0].Name)
}

func TestListRecords_TruncatedJSONWithWhitespaceFails(t *testing.T) {
	service := newTestService(mocks.NewInMemoryRecordRepo())

	_, err := service.ListRecords(context.Background(), `{ "name"`, sharedQuery.OffsetPagination{Limit: 10}, sharedQuery.Sort{})
	assert.ErrorIs(t, err, sharedDomain.ErrInvalidFilterFormat)
}

func TestListRecords_InvalidJSONPropagates(t *testing.T) {
	service := newTestService(mocks.NewInMemoryRecordRepo())

	_, err := service.ListRecords(context.Background(), `{"name":`, sharedQuery.OffsetPagination{Limit: 10}, sharedQuery.Sort{})
	assert.ErrorIs(t, err, sharedDomain.ErrInvalidFilterFormat)
}

func TestListRecords_NonQueryableFieldIsIgnored(t *testing.T) {
	repo := mocks.NewInMemoryRecordRepo()
	service := newTestService(repo)
	seedRecords(t, service)

	// notes no es consultable: el filtro se descarta y vuelven todos
	got, err := service.ListRecords(context.Background(), "{notes=interno}", sharedQuery.OffsetPagination{Limit: 10}, sharedQuery.Sort{})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestListRecords_EmptyFilterReturnsAll(t *testing.T) {
	repo := mocks.NewInMemoryRecordRepo()
	service := newTestService(repo)
	seedRecords(t, service)

	got, err := service.ListRecords(context.Background(), "", sharedQuery.OffsetPagination{Limit: 10}, sharedQuery.Sort{})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestListRecords_SortAndPagination(t *testing.T) {
	repo := mocks.NewInMemoryRecordRepo()
	service := newTestService(repo)
	seedRecords(t, service)

	got, err := service.ListRecords(context.Background(), "",
		sharedQuery.OffsetPagination{Limit: 2, Offset: 1},
		sharedQuery.Sort{Field: "priority", Desc: true},
	)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "beta", got[0].Name)
	assert.Equal(t, "alpha", got[1].Name)
}

func TestListRecords_WritesSearchAudit(t *testing.T) {
	repo := mocks.NewInMemoryRecordRepo()
	audit := mocks.NewInMemorySearchAudit()
	service := NewRecordService(repo, mocks.NewDummyCache(), audit, zap.NewNop())
	seedRecords(t, service)

	_, err := service.ListRecords(context.Background(), "{status=eq:draft}", sharedQuery.OffsetPagination{Limit: 10}, sharedQuery.Sort{})
	require.NoError(t, err)

	// la auditoría se escribe en background
	assert.Eventually(t, func() bool { return audit.Len() == 1 }, time.Second, 10*time.Millisecond)
}

func TestSearchTrend_GroupsByUTCDay(t *testing.T) {
	audit := mocks.NewInMemorySearchAudit()
	service := NewRecordService(mocks.NewInMemoryRecordRepo(), mocks.NewDummyCache(), audit, zap.NewNop())

	ctx := context.Background()
	day1 := time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)
	day2 := time.Date(2024, 5, 11, 23, 59, 0, 0, time.UTC)
	require.NoError(t, audit.LogBatch(ctx, []domain.SearchAudit{
		{RawFilter: "{status=eq:active}", At: day1},
		{RawFilter: "{priority=gte:2}", At: day1.Add(2 * time.Hour)},
		{RawFilter: "{name=beta}", At: day2},
	}))

	trends, err := service.SearchTrend(ctx, day1.AddDate(0, 0, -1), day2.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, trends, 2)

	// Los días se agrupan a medianoche UTC.
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), trends[0].Day)
	assert.Equal(t, 2, trends[0].SearchCount)
	assert.Equal(t, time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), trends[1].Day)
	assert.Equal(t, 1, trends[1].SearchCount)
}

func TestSearchTrend_NoAuditConfigured(t *testing.T) {
	service := newTestService(mocks.NewInMemoryRecordRepo())

	trends, err := service.SearchTrend(context.Background(), time.Now().AddDate(0, 0, -7), time.Now())
	require.NoError(t, err)
	assert.Empty(t, trends)
}
