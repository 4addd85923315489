package events

import (
	"encoding/json"
	"reflect"
	"time"

	sharedBus "github.com/davicafu/querylab/shared/platform/bus"
)

// Base de todos los eventos de integración
type IntegrationEvent struct {
	Type        string          `json:"type"`
	AggregateID string          `json:"aggregateId,omitempty"` // clave de partición en el broker
	Timestamp   time.Time       `json:"timestamp"`
	Data        json.RawMessage `json:"data"` // contenido específico del evento
}

// PartitionKey agrupa los eventos de un mismo agregado en la misma partición,
// preservando su orden relativo.
func (e IntegrationEvent) PartitionKey() string {
	return e.AggregateID
}

var _ sharedBus.Keyer = IntegrationEvent{}

type EventMetadata struct {
	Type  reflect.Type
	Topic string
}
