package events

import (
	"context"
	"time"

	accessDomain "github.com/davicafu/hexacrud/internal/access/domain"
	sharedEvents "github.com/davicafu/hexacrud/shared/events"
	sharedBus "github.com/davicafu/hexacrud/shared/platform/bus"
)

// DecisionPublisher publica cada decisión del gate en el topic access. No
// pasa por el outbox: perder una auditoría no invalida la petición.
type DecisionPublisher struct {
	publisher sharedBus.EventPublisher
	now       func() time.Time
}

var _ accessDomain.DecisionRecorder = (*DecisionPublisher)(nil)

func NewDecisionPublisher(publisher sharedBus.EventPublisher) *DecisionPublisher {
	return &DecisionPublisher{publisher: publisher, now: time.Now}
}

func (p *DecisionPublisher) Record(ctx context.Context, d accessDomain.Decision) error {
	payload := accessDomain.NewDecisionEvent(d, p.now())
	evt, err := sharedEvents.NewIntegrationEvent(accessDomain.AccessDecided, payload.PartitionKey(), payload)
	if err != nil {
		return err
	}
	return p.publisher.Publish(ctx, evt)
}
