package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	accessDomain "github.com/davicafu/hexacrud/internal/access/domain"
	sharedEvents "github.com/davicafu/hexacrud/shared/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryLog struct {
	mu      sync.Mutex
	entries []accessDomain.DecisionEntry
}

func (m *memoryLog) Save(_ context.Context, d accessDomain.DecisionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, d)
	return nil
}

func TestDecisionConsumer_SavesDecisions(t *testing.T) {
	sink := &memoryLog{}
	consumer := NewDecisionConsumer(sink, zap.NewNop())
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	d := accessDomain.Allow("u1", accessDomain.ResourceBlog, accessDomain.ActionRead)
	evt, err := sharedEvents.NewIntegrationEvent(accessDomain.AccessDecided, "u1", accessDomain.NewDecisionEvent(d, at))
	require.NoError(t, err)
	payload, err := json.Marshal(evt)
	require.NoError(t, err)

	consumer.HandleMessage(context.Background(), "u1", payload)
	consumer.HandleMessage(context.Background(), "", []byte(`{"type":"record.created","data":{}}`))

	require.Len(t, sink.entries, 1)
	assert.Equal(t, accessDomain.DecisionEntry{
		PrincipalID: "u1",
		Resource:    "blog",
		Action:      "read",
		Permission:  "blog:read",
		Allowed:     true,
		DecidedAt:   at,
	}, sink.entries[0])
}
