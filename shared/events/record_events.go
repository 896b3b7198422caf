package events

import (
	"time"

	"github.com/google/uuid"
)

// RecordChanged es el contrato publicado para record.created/updated/deleted.
type RecordChanged struct {
	ID         uuid.UUID              `json:"id"`
	Collection string                 `json:"collection"`
	Document   map[string]interface{} `json:"document,omitempty"`
	OccurredAt time.Time              `json:"occurredAt"`
}

func (e RecordChanged) PartitionKey() string { return e.Collection + ":" + e.ID.String() }
