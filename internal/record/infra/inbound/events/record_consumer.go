package events

import (
	"context"
	"encoding/json"
	"time"

	recordDomain "github.com/davicafu/hexacrud/internal/record/domain"
	sharedEvents "github.com/davicafu/hexacrud/shared/events"
	sharedCache "github.com/davicafu/hexacrud/shared/platform/cache"
	sharedUtils "github.com/davicafu/hexacrud/shared/utils"
	"go.uber.org/zap"
)

// RecordConsumer invalida la caché de los registros que otra instancia
// modificó o borró.
type RecordConsumer struct {
	cache sharedCache.Cache
	log   *zap.Logger
}

func NewRecordConsumer(cache sharedCache.Cache, logger *zap.Logger) *RecordConsumer {
	return &RecordConsumer{cache: cache, log: logger}
}

func (c *RecordConsumer) HandleMessage(ctx context.Context, key string, payload []byte) {
	var base sharedEvents.IntegrationEvent
	if err := json.Unmarshal(payload, &base); err != nil {
		c.log.Warn("Failed to unmarshal integration event", zap.String("key", key), zap.Error(err))
		return
	}

	switch base.Type {
	case recordDomain.RecordCreated:
		// nada que invalidar
	case recordDomain.RecordUpdated, recordDomain.RecordDeleted:
		sharedUtils.UnmarshalAndHandle[sharedEvents.RecordChanged](c.log, base.Data, func(evt sharedEvents.RecordChanged) {
			ctxCache, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
			defer cancel()

			cacheKey := recordDomain.CacheKey(evt.Collection, evt.ID)
			if err := c.cache.Delete(ctxCache, cacheKey); err != nil {
				c.log.Warn("Failed to invalidate record cache", zap.String("key", cacheKey), zap.Error(err))
				return
			}
			c.log.Debug("Record cache invalidated", zap.String("type", base.Type), zap.String("key", cacheKey))
		})
	default:
		c.log.Warn("Unknown event type", zap.String("type", base.Type))
	}
}
