package domain

import (
	"time"

	sharedBus "github.com/davicafu/querylab/shared/platform/bus"
	"github.com/google/uuid"
)

type RecordStatus string

const (
	RecordDraft    RecordStatus = "draft"
	RecordActive   RecordStatus = "active"
	RecordArchived RecordStatus = "archived"
)

// Record es la entidad del catálogo consultable.
type Record struct {
	ID        uuid.UUID    `json:"id"`
	Name      string       `json:"name"`
	Status    RecordStatus `json:"status"`
	Priority  int          `json:"priority"`
	Notes     string       `json:"notes"` // uso interno, no consultable vía filtros
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

func (r *Record) PartitionKey() string {
	return r.ID.String()
}

// --- Métodos de dominio ---

func (r *Record) Activate() {
	r.Status = RecordActive
	r.UpdatedAt = time.Now().UTC()
}

func (r *Record) Archive() {
	r.Status = RecordArchived
	r.UpdatedAt = time.Now().UTC()
}

func (r *Record) Update(name string, priority int, notes string) {
	r.Name = name
	r.Priority = priority
	r.Notes = notes
	r.UpdatedAt = time.Now().UTC()
}

// Verificación estática para asegurar que Record implementa la interfaz
var _ sharedBus.Keyer = (*Record)(nil)
