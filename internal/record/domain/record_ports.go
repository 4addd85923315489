package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	sharedDomain "github.com/davicafu/querylab/shared/domain"
	sharedQuery "github.com/davicafu/querylab/shared/platform/query"
	"github.com/google/uuid"
)

var (
	ErrRecordNotFound      = errors.New("record not found")
	ErrRecordAlreadyExists = errors.New("record already exists")
	ErrInvalidRecord       = errors.New("invalid record")
)

// --- Repositorio de Records ---
type RecordRepository interface {
	Create(ctx context.Context, r *Record, evt sharedDomain.OutboxEvent) error
	Update(ctx context.Context, r *Record, evt sharedDomain.OutboxEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	// ListByFilter recibe un filtro YA saneado por el validador de campos.
	ListByFilter(ctx context.Context, f sharedDomain.Filter, pagination sharedQuery.Pagination, sort sharedQuery.Sort) ([]*Record, error)
	DeleteByID(ctx context.Context, id uuid.UUID, evt sharedDomain.OutboxEvent) error
}

// --- Auditoría de búsquedas (analítica) ---

// SearchAudit es el registro de una búsqueda ejecutada contra el catálogo.
type SearchAudit struct {
	RawFilter  string
	Fields     []string // campos que sobrevivieron al saneado
	ResultSize int
	At         time.Time
}

// DTO para transportar los resultados de la consulta de tendencia.
type DailySearchTrend struct {
	Day         time.Time
	SearchCount int
}

type SearchAuditRepository interface {
	LogBatch(ctx context.Context, audits []SearchAudit) error
	GetDailySearchTrend(ctx context.Context, start, end time.Time) ([]DailySearchTrend, error)
}

// ---------- Helpers comunes (cache keys, etc.) ----------

func RecordCacheKeyByID(id uuid.UUID) string {
	return fmt.Sprintf("record:id:%s", id.String())
}
