package domain

import (
	"reflect"
	"time"

	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
	sharedEvents "github.com/davicafu/hexacrud/shared/events"
)

const (
	RecordCreated = "record.created"
	RecordUpdated = "record.updated"
	RecordDeleted = "record.deleted"
)

const RecordTopic = "record"

func NewEventRegistry() map[string]sharedEvents.EventMetadata {
	return map[string]sharedEvents.EventMetadata{
		RecordCreated: {
			Type:  reflect.TypeOf(sharedEvents.RecordChanged{}),
			Topic: RecordTopic,
		},
		RecordUpdated: {
			Type:  reflect.TypeOf(sharedEvents.RecordChanged{}),
			Topic: RecordTopic,
		},
		RecordDeleted: {
			Type:  reflect.TypeOf(sharedEvents.RecordChanged{}),
			Topic: RecordTopic,
		},
	}
}

// NewRecordEvent construye el evento de outbox de una mutación. Los borrados
// no llevan documento.
func NewRecordEvent(eventType string, r *Record) sharedDomain.OutboxEvent {
	payload := sharedEvents.RecordChanged{
		ID:         r.ID,
		Collection: r.Collection,
		OccurredAt: time.Now().UTC(),
	}
	if eventType != RecordDeleted {
		payload.Document = r.Document()
	}
	return sharedDomain.NewOutboxEvent(r.Collection, r.ID.String(), eventType, payload)
}
