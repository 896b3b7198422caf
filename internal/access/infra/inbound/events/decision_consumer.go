package events

import (
	"context"
	"encoding/json"
	"time"

	accessDomain "github.com/davicafu/hexacrud/internal/access/domain"
	sharedEvents "github.com/davicafu/hexacrud/shared/events"
	sharedUtils "github.com/davicafu/hexacrud/shared/utils"
	"go.uber.org/zap"
)

// DecisionConsumer vuelca las decisiones publicadas en el DecisionLog.
type DecisionConsumer struct {
	sink accessDomain.DecisionLog
	log  *zap.Logger
}

func NewDecisionConsumer(sink accessDomain.DecisionLog, logger *zap.Logger) *DecisionConsumer {
	return &DecisionConsumer{sink: sink, log: logger}
}

func (c *DecisionConsumer) HandleMessage(ctx context.Context, key string, payload []byte) {
	var base sharedEvents.IntegrationEvent
	if err := json.Unmarshal(payload, &base); err != nil {
		c.log.Warn("Failed to unmarshal integration event", zap.String("key", key), zap.Error(err))
		return
	}
	if base.Type != accessDomain.AccessDecided {
		c.log.Warn("Unknown event type", zap.String("type", base.Type))
		return
	}

	sharedUtils.UnmarshalAndHandle[sharedEvents.AccessDecided](c.log, base.Data, func(evt sharedEvents.AccessDecided) {
		ctxSave, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := c.sink.Save(ctxSave, accessDomain.EntryFromEvent(evt)); err != nil {
			c.log.Warn("Failed to store access decision",
				zap.String("permission", evt.Permission),
				zap.Error(err))
		}
	})
}
