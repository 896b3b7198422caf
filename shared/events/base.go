package events

import (
	"encoding/json"
	"reflect"
	"time"
)

// Base de todos los eventos de integración
type IntegrationEvent struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"` // contenido específico del evento
	Key       string          `json:"-"`    // clave de partición, no viaja en el cuerpo
}

// PartitionKey implementa bus.Keyer.
func (e IntegrationEvent) PartitionKey() string { return e.Key }

// NewIntegrationEvent serializa data y construye el sobre.
func NewIntegrationEvent(eventType, key string, data interface{}) (IntegrationEvent, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return IntegrationEvent{}, err
	}
	return IntegrationEvent{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      raw,
		Key:       key,
	}, nil
}

type EventMetadata struct {
	Type  reflect.Type
	Topic string
}
