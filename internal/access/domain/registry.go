package domain

import (
	"reflect"
	"time"

	sharedEvents "github.com/davicafu/hexacrud/shared/events"
)

const AccessDecided = "access.decided"

const AccessTopic = "access"

func NewEventRegistry() map[string]sharedEvents.EventMetadata {
	return map[string]sharedEvents.EventMetadata{
		AccessDecided: {
			Type:  reflect.TypeOf(sharedEvents.AccessDecided{}),
			Topic: AccessTopic,
		},
	}
}

// NewDecisionEvent traduce una decisión al contrato publicado.
func NewDecisionEvent(d Decision, at time.Time) sharedEvents.AccessDecided {
	return sharedEvents.AccessDecided{
		PrincipalID: d.PrincipalID,
		Resource:    string(d.Resource),
		Action:      string(d.Action),
		Permission:  d.Permission,
		Allowed:     d.Allowed,
		Reason:      string(d.Reason),
		DecidedAt:   at.UTC(),
	}
}

// EntryFromEvent es la fila que guarda el DecisionLog.
func EntryFromEvent(e sharedEvents.AccessDecided) DecisionEntry {
	return DecisionEntry{
		PrincipalID: e.PrincipalID,
		Resource:    e.Resource,
		Action:      e.Action,
		Permission:  e.Permission,
		Allowed:     e.Allowed,
		Reason:      e.Reason,
		DecidedAt:   e.DecidedAt,
	}
}
