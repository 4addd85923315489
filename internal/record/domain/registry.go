package domain

import (
	"reflect"

	sharedEvents "github.com/davicafu/querylab/shared/events"
)

// Las constantes de los tipos de evento se definen aquí, como valores string.
const (
	RecordCreated = "record.created"
	RecordUpdated = "record.updated"
	RecordDeleted = "record.deleted"
)

const RecordTopic = "record"

func NewEventRegistry() map[string]sharedEvents.EventMetadata {
	return map[string]sharedEvents.EventMetadata{
		RecordCreated: {
			Type:  reflect.TypeOf(Record{}),
			Topic: RecordTopic,
		},
		RecordUpdated: {
			Type:  reflect.TypeOf(Record{}),
			Topic: RecordTopic,
		},
		RecordDeleted: {
			Type:  reflect.TypeOf(Record{}),
			Topic: RecordTopic,
		},
	}
}
