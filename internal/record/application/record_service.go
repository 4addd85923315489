package application

import (
	"context"
	"errors"
	"strings"
	"time"

	recordDomain "github.com/davicafu/querylab/internal/record/domain"
	sharedDomain "github.com/davicafu/querylab/shared/domain"
	sharedCache "github.com/davicafu/querylab/shared/platform/cache"
	sharedQuery "github.com/davicafu/querylab/shared/platform/query"
	sharedUtils "github.com/davicafu/querylab/shared/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecordService define los casos de uso del catálogo de records.
// Incorpora repositorio, caché, auditoría de búsquedas y logger.
type RecordService struct {
	repo   recordDomain.RecordRepository
	cache  sharedCache.Cache
	audit  recordDomain.SearchAuditRepository
	schema sharedDomain.Schema
	log    *zap.Logger
}

// NewRecordService es el constructor para el servicio de records.
func NewRecordService(repo recordDomain.RecordRepository, cache sharedCache.Cache, audit recordDomain.SearchAuditRepository, log *zap.Logger) *RecordService {
	return &RecordService{
		repo:   repo,
		cache:  cache,
		audit:  audit,
		schema: recordDomain.NewRecordSchema(),
		log:    log,
	}
}

// ---------------- Búsqueda filtrada ----------------

// ListRecords sanea el filtro crudo de la URL y consulta el repositorio.
// El valor crudo puede venir como texto JSON ({"name":"Bob"}) o en el
// formato con llaves {name=Bob,priority=gte:2}. Un texto JSON malformado
// devuelve ErrInvalidFilterFormat; los campos no consultables simplemente
// se descartan del filtro.
func (s *RecordService) ListRecords(ctx context.Context, rawFilter string, pagination sharedQuery.Pagination, sort sharedQuery.Sort) ([]*recordDomain.Record, error) {
	sanitized, err := s.sanitizeFilter(rawFilter)
	if err != nil {
		return nil, err
	}

	records, err := s.repo.ListByFilter(ctx, sanitized, pagination, sort)
	if err != nil {
		s.log.Error("Failed to list records", zap.Error(err))
		return nil, err
	}

	if s.audit != nil {
		s.logSearch(rawFilter, sanitized, len(records))
	}

	return records, nil
}

// sanitizeFilter decide la ruta de parseo. Un filtro con llave inicial que
// contiene comillas, o que no tiene ningún `=`, se trata como JSON y pasa
// por BuildFilterObject (un JSON inválido es error fatal de la llamada);
// solo la forma {k=v,...} va al parser de llaves. El prefijo `{` a secas no
// basta: `{ "name": "Bob" }` lleva espacios antes de la comilla y aun así
// debe ir por la ruta JSON.
func (s *RecordService) sanitizeFilter(rawFilter string) (sharedDomain.Filter, error) {
	var raw interface{} = rawFilter

	trimmed := strings.TrimSpace(rawFilter)
	looksJSON := strings.HasPrefix(trimmed, "{") &&
		(strings.Contains(trimmed, `"`) || !strings.Contains(trimmed, "="))

	if looksJSON {
		parsed, err := sharedDomain.BuildFilterObject(trimmed)
		if err != nil {
			return nil, err
		}
		raw = map[string]interface{}(parsed)
	}

	return sharedDomain.ValidateFilterFields(raw, s.schema, s.log), nil
}

// logSearch registra la búsqueda en la capa analítica sin bloquear la
// respuesta. Best effort: un fallo solo se loguea.
func (s *RecordService) logSearch(rawFilter string, sanitized sharedDomain.Filter, results int) {
	fields := make([]string, 0, len(sanitized))
	for f := range sanitized {
		fields = append(fields, f)
	}

	entry := recordDomain.SearchAudit{
		RawFilter:  rawFilter,
		Fields:     fields,
		ResultSize: results,
		At:         time.Now().UTC(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.audit.LogBatch(ctx, []recordDomain.SearchAudit{entry}); err != nil {
			s.log.Warn("⚠️ Search audit write failed", zap.Error(err))
		}
	}()
}

// ---------------- CRUD ----------------

// CreateRecord crea un record, su evento de outbox y actualiza la caché.
func (s *RecordService) CreateRecord(ctx context.Context, name string, priority int, notes string) (*recordDomain.Record, error) {
	record := &recordDomain.Record{
		ID:        uuid.New(),
		Name:      name,
		Status:    recordDomain.RecordDraft,
		Priority:  priority,
		Notes:     notes,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	outboxEvent := sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "record",
		AggregateID:   record.ID.String(),
		EventType:     recordDomain.RecordCreated,
		Payload:       record,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, record, outboxEvent); err != nil {
		s.log.Error("Failed to create record", zap.Error(err))
		return nil, err
	}

	s.cacheSet(record)
	return record, nil
}

// UpdateRecord persiste los cambios de un record junto a su evento.
func (s *RecordService) UpdateRecord(ctx context.Context, r *recordDomain.Record) error {
	evt := sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "record",
		AggregateID:   r.ID.String(),
		EventType:     recordDomain.RecordUpdated,
		Payload:       r,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.Update(ctx, r, evt); err != nil {
		return err
	}

	s.cacheSet(r)
	return nil
}

func (s *RecordService) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	evt := sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "record",
		AggregateID:   id.String(),
		EventType:     recordDomain.RecordDeleted,
		Payload:       recordDomain.Record{ID: id},
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.DeleteByID(ctx, id, evt); err != nil {
		return err
	}

	if s.cache != nil {
		go func(rid uuid.UUID) {
			_ = s.cache.Delete(context.Background(), recordDomain.RecordCacheKeyByID(rid))
		}(id)
	}
	return nil
}

// SearchTrend devuelve el volumen diario de búsquedas auditadas en el rango.
// Sin capa analítica configurada el resultado es vacío, no un error.
func (s *RecordService) SearchTrend(ctx context.Context, start, end time.Time) ([]recordDomain.DailySearchTrend, error) {
	if s.audit == nil {
		return nil, nil
	}
	return s.audit.GetDailySearchTrend(ctx, start, end)
}

// GetRecord obtiene un record (primero intenta desde cache).
func (s *RecordService) GetRecord(ctx context.Context, id uuid.UUID) (*recordDomain.Record, error) {
	if s.cache != nil {
		var r recordDomain.Record
		if ok, _ := s.cache.Get(ctx, recordDomain.RecordCacheKeyByID(id), &r); ok {
			return &r, nil
		}
	}

	var record *recordDomain.Record
	err := sharedUtils.Retry(ctx, 3, 100*time.Millisecond, func() error {
		var err error
		record, err = s.repo.GetByID(ctx, id)
		if errors.Is(err, recordDomain.ErrRecordNotFound) {
			// no tiene sentido reintentar un not found
			return nil
		}
		return err
	})
	if err != nil {
		s.log.Error("Failed to fetch record", zap.String("record_id", id.String()), zap.Error(err))
		return nil, err
	}
	if record == nil {
		s.log.Warn("Record not found", zap.String("record_id", id.String()))
		return nil, recordDomain.ErrRecordNotFound
	}

	s.cacheSet(record)
	return record, nil
}

// cacheSet escribe en caché de forma asíncrona y best effort.
func (s *RecordService) cacheSet(r *recordDomain.Record) {
	if s.cache == nil {
		return
	}
	go func(rec *recordDomain.Record) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		if err := s.cache.Set(ctx, recordDomain.RecordCacheKeyByID(rec.ID), rec, 60); err != nil {
			s.log.Warn("⚠️ Cache update failed for record",
				zap.String("record_id", rec.ID.String()),
				zap.Error(err),
			)
		}
	}(r)
}
