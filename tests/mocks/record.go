package mocks

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	recordDomain "github.com/davicafu/querylab/internal/record/domain"
	sharedDomain "github.com/davicafu/querylab/shared/domain"
	sharedQuery "github.com/davicafu/querylab/shared/platform/query"
	"github.com/google/uuid"
)

// InMemoryRecordRepo simula RecordRepository con outbox incluido.
type InMemoryRecordRepo struct {
	Records map[uuid.UUID]*recordDomain.Record
	Outbox  []sharedDomain.OutboxEvent
	mu      sync.Mutex
}

func NewInMemoryRecordRepo() *InMemoryRecordRepo {
	return &InMemoryRecordRepo{
		Records: make(map[uuid.UUID]*recordDomain.Record),
		Outbox:  []sharedDomain.OutboxEvent{},
	}
}

func (r *InMemoryRecordRepo) Create(ctx context.Context, rec *recordDomain.Record, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Records[rec.ID]; ok {
		return recordDomain.ErrRecordAlreadyExists
	}
	r.Records[rec.ID] = rec
	r.Outbox = append(r.Outbox, evt)
	return nil
}

func (r *InMemoryRecordRepo) Update(ctx context.Context, rec *recordDomain.Record, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Records[rec.ID]; !ok {
		return recordDomain.ErrRecordNotFound
	}
	r.Records[rec.ID] = rec
	r.Outbox = append(r.Outbox, evt)
	return nil
}

func (r *InMemoryRecordRepo) GetByID(ctx context.Context, id uuid.UUID) (*recordDomain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.Records[id]
	if !ok {
		return nil, recordDomain.ErrRecordNotFound
	}
	return rec, nil
}

func (r *InMemoryRecordRepo) DeleteByID(ctx context.Context, id uuid.UUID, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Records[id]; !ok {
		return recordDomain.ErrRecordNotFound
	}
	delete(r.Records, id)
	r.Outbox = append(r.Outbox, evt)
	return nil
}

// ListByFilter aplica el filtro saneado en memoria, con la misma semántica
// que los adapters reales (AND entre condiciones).
func (r *InMemoryRecordRepo) ListByFilter(
	ctx context.Context,
	f sharedDomain.Filter,
	pagination sharedQuery.Pagination,
	s sharedQuery.Sort, // renombrado para no colisionar con package sort
) ([]*recordDomain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conds := f.ToConditions()

	var list []*recordDomain.Record
	for _, rec := range r.Records {
		matchesAll := true
		for _, cond := range conds {
			if !matchCriterion(rec, cond) {
				matchesAll = false
				break
			}
		}
		if matchesAll {
			list = append(list, rec)
		}
	}

	sortField := s.Field
	if sortField == "" {
		sortField = "createdAt"
	}
	sort.Slice(list, func(i, j int) bool {
		less := recordLess(list[i], list[j], sortField)
		if s.Desc {
			return !less
		}
		return less
	})

	// Paginación por offset; el mock ignora la paginación por cursor.
	if p, ok := pagination.(sharedQuery.OffsetPagination); ok {
		if p.Offset >= len(list) {
			return nil, nil
		}
		list = list[p.Offset:]
		if p.Limit > 0 && p.Limit < len(list) {
			list = list[:p.Limit]
		}
	}

	return list, nil
}

func recordLess(a, b *recordDomain.Record, field string) bool {
	switch field {
	case "name":
		return a.Name < b.Name
	case "priority":
		return a.Priority < b.Priority
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}

func matchCriterion(rec *recordDomain.Record, cond sharedDomain.Criterion) bool {
	switch value := fieldValue(rec, cond.Field).(type) {
	case string:
		want, ok := cond.Value.(string)
		if !ok {
			return false
		}
		switch cond.Op {
		case sharedDomain.OpEq:
			return value == want
		case sharedDomain.OpLike, sharedDomain.OpILike:
			return strings.Contains(strings.ToLower(value), strings.ToLower(want))
		case sharedDomain.OpGt:
			return value > want
		case sharedDomain.OpGte:
			return value >= want
		case sharedDomain.OpLt:
			return value < want
		case sharedDomain.OpLte:
			return value <= want
		}
	case float64:
		// Los operandos de operador llegan como string salvo fechas; se
		// coercen aquí igual que haría una columna numérica de SQLite.
		want, ok := cond.Value.(float64)
		if !ok {
			s, okStr := cond.Value.(string)
			if !okStr {
				return false
			}
			n, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return false
			}
			want = n
		}
		switch cond.Op {
		case sharedDomain.OpEq:
			return value == want
		case sharedDomain.OpGt:
			return value > want
		case sharedDomain.OpGte:
			return value >= want
		case sharedDomain.OpLt:
			return value < want
		case sharedDomain.OpLte:
			return value <= want
		}
	case time.Time:
		want, ok := cond.Value.(time.Time)
		if !ok {
			return false
		}
		switch cond.Op {
		case sharedDomain.OpEq:
			return value.Equal(want)
		case sharedDomain.OpGt:
			return value.After(want)
		case sharedDomain.OpGte:
			return !value.Before(want)
		case sharedDomain.OpLt:
			return value.Before(want)
		case sharedDomain.OpLte:
			return !value.After(want)
		}
	}
	return false
}

func fieldValue(rec *recordDomain.Record, field string) interface{} {
	switch field {
	case "name":
		return rec.Name
	case "status":
		return string(rec.Status)
	case "priority":
		return float64(rec.Priority)
	case "notes":
		return rec.Notes
	case "createdAt":
		return rec.CreatedAt
	case "updatedAt":
		return rec.UpdatedAt
	default:
		return nil
	}
}

// ---------------- Auditoría de búsquedas ----------------

// InMemorySearchAudit acumula las auditorías para poder asertarlas.
type InMemorySearchAudit struct {
	Entries []recordDomain.SearchAudit
	mu      sync.Mutex
}

func NewInMemorySearchAudit() *InMemorySearchAudit {
	return &InMemorySearchAudit{}
}

func (a *InMemorySearchAudit) LogBatch(ctx context.Context, audits []recordDomain.SearchAudit) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Entries = append(a.Entries, audits...)
	return nil
}

func (a *InMemorySearchAudit) GetDailySearchTrend(ctx context.Context, start, end time.Time) ([]recordDomain.DailySearchTrend, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	byDay := map[time.Time]int{}
	for _, e := range a.Entries {
		if e.At.Before(start) || e.At.After(end) {
			continue
		}
		// Mismo criterio de día que los adaptadores reales: medianoche UTC.
		day := time.Date(e.At.Year(), e.At.Month(), e.At.Day(), 0, 0, 0, 0, time.UTC)
		byDay[day]++
	}

	var trends []recordDomain.DailySearchTrend
	for day, count := range byDay {
		trends = append(trends, recordDomain.DailySearchTrend{Day: day, SearchCount: count})
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].Day.Before(trends[j].Day) })
	return trends, nil
}

func (a *InMemorySearchAudit) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.Entries)
}

// ---------------- Publisher ----------------

// DummyPublisher guarda los eventos publicados para los tests.
type DummyPublisher struct {
	Events []interface{}
	mu     sync.Mutex
}

func (p *DummyPublisher) Publish(ctx context.Context, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
	return nil
}

// Verificaciones estáticas de interfaces
var (
	_ recordDomain.RecordRepository      = (*InMemoryRecordRepo)(nil)
	_ recordDomain.SearchAuditRepository = (*InMemorySearchAudit)(nil)
)
