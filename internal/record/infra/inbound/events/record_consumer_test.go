package events

import (
	"context"
	"encoding/json"
	"testing"

	recordDomain "github.com/davicafu/hexacrud/internal/record/domain"
	sharedEvents "github.com/davicafu/hexacrud/shared/events"
	"github.com/davicafu/hexacrud/tests/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func message(t *testing.T, eventType string, r *recordDomain.Record) []byte {
	t.Helper()
	evt, err := sharedEvents.NewIntegrationEvent(eventType, "", sharedEvents.RecordChanged{ID: r.ID, Collection: r.Collection})
	require.NoError(t, err)
	payload, err := json.Marshal(evt)
	require.NoError(t, err)
	return payload
}

func TestRecordConsumer_InvalidatesOnUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	cache := mocks.NewDummyCache()
	consumer := NewRecordConsumer(cache, zap.NewNop())

	updated := recordDomain.NewRecord(recordDomain.CollectionBlog, map[string]interface{}{"name": "a"})
	deleted := recordDomain.NewRecord(recordDomain.CollectionBlog, map[string]interface{}{"name": "b"})
	created := recordDomain.NewRecord(recordDomain.CollectionBlog, map[string]interface{}{"name": "c"})
	for _, r := range []*recordDomain.Record{updated, deleted, created} {
		require.NoError(t, cache.Set(ctx, recordDomain.CacheKey(r.Collection, r.ID), r, 60))
	}

	consumer.HandleMessage(ctx, "", message(t, recordDomain.RecordUpdated, updated))
	consumer.HandleMessage(ctx, "", message(t, recordDomain.RecordDeleted, deleted))
	consumer.HandleMessage(ctx, "", message(t, recordDomain.RecordCreated, created))
	consumer.HandleMessage(ctx, "", []byte("{roto"))

	assert.False(t, cache.Has(recordDomain.CacheKey(updated.Collection, updated.ID)))
	assert.False(t, cache.Has(recordDomain.CacheKey(deleted.Collection, deleted.ID)))
	assert.True(t, cache.Has(recordDomain.CacheKey(created.Collection, created.ID)))
}
