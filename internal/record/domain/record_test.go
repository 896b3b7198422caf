package domain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	sharedEvents "github.com/davicafu/hexacrud/shared/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord_StripsReservedFields(t *testing.T) {
	r := NewRecord(CollectionBlog, map[string]interface{}{
		"name":      "Hola",
		"_id":       "fake",
		"isDeleted": true,
		"status":    false,
		"createdAt": "2020-01-01",
		"content":   nil,
	})

	assert.Equal(t, map[string]interface{}{"name": "Hola"}, r.Fields)
	assert.False(t, r.IsDeleted)
	assert.False(t, r.Status)
	assert.False(t, r.CreatedAt.IsZero())
}

func TestRecord_LookupNested(t *testing.T) {
	r := NewRecord(CollectionBlog, map[string]interface{}{
		"author": map[string]interface{}{"name": "Ana"},
	})

	v, ok := r.Lookup("author.name")
	assert.True(t, ok)
	assert.Equal(t, "Ana", v)

	_, ok = r.Lookup("author.age")
	assert.False(t, ok)

	v, ok = r.Lookup(FieldIsDeleted)
	assert.True(t, ok)
	assert.Equal(t, false, v)
}

func TestRecord_MergeDropsNils(t *testing.T) {
	r := NewRecord(CollectionRole, map[string]interface{}{"name": "admin", "description": "x"})
	before := r.UpdatedAt
	time.Sleep(time.Millisecond)

	r.Merge(map[string]interface{}{"description": nil, "name": "root", "status": false, "isDeleted": true})

	assert.Equal(t, "root", r.String("name"))
	assert.Equal(t, "x", r.String("description"))
	assert.False(t, r.Status)
	assert.False(t, r.IsDeleted)
	assert.True(t, r.UpdatedAt.After(before))
}

func TestRecord_JSONRoundTrip(t *testing.T) {
	r := NewRecord(CollectionUser, map[string]interface{}{"email": "a@b.c"})
	r.IsDeleted = true

	raw, err := json.Marshal(r)
	require.NoError(t, err)

	decoded := Record{Collection: CollectionUser}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, r.ID, decoded.ID)
	assert.Equal(t, CollectionUser, decoded.Collection)
	assert.True(t, decoded.IsDeleted)
	assert.Equal(t, "a@b.c", decoded.String("email"))
	assert.True(t, r.CreatedAt.Equal(decoded.CreatedAt))
}

func TestFromDocument_InvalidID(t *testing.T) {
	_, err := FromDocument(CollectionUser, map[string]interface{}{"_id": "nope"})
	assert.Error(t, err)
}

func TestSchema_Attachments(t *testing.T) {
	s, err := SchemaFor(CollectionBlog)
	require.NoError(t, err)

	r := NewRecord(CollectionBlog, map[string]interface{}{
		"attachment": "uploads/a.png",
		"images":     []interface{}{"uploads/b.png", "", 3},
	})
	assert.Equal(t, []string{"uploads/a.png", "uploads/b.png"}, s.Attachments(r))

	_, err = SchemaFor("nope")
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestNewRecordEvent(t *testing.T) {
	r := NewRecord(CollectionBlog, map[string]interface{}{"name": "x"})

	evt := NewRecordEvent(RecordUpdated, r)
	assert.Equal(t, RecordUpdated, evt.EventType)
	assert.Equal(t, CollectionBlog, evt.AggregateType)
	assert.Equal(t, "x", evt.Payload.(sharedEvents.RecordChanged).Document["name"])

	evt = NewRecordEvent(RecordDeleted, r)
	assert.Nil(t, evt.Payload.(sharedEvents.RecordChanged).Document)
}

func TestHooks_RunInOrderAndStopOnError(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	hooks := Hooks{
		CollectionBlog: {
			HookFunc(func(_ context.Context, _ *Record, _ *Record) error { calls = append(calls, "a"); return nil }),
			HookFunc(func(_ context.Context, _ *Record, _ *Record) error { calls = append(calls, "b"); return boom }),
			HookFunc(func(_ context.Context, _ *Record, _ *Record) error { calls = append(calls, "c"); return nil }),
		},
	}

	err := hooks.Run(context.Background(), NewRecord(CollectionBlog, nil), nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b"}, calls)

	assert.NoError(t, hooks.Run(context.Background(), NewRecord(CollectionRole, nil), nil))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "hola-mundo-nandu", Slugify("  Hola, Mundo Ñandú "))
	assert.Equal(t, "go-122", Slugify("Go 1.22"))
	assert.Equal(t, "a-b", Slugify("a -- b"))
}
