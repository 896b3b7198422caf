package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	recordDomain "github.com/davicafu/hexacrud/internal/record/domain"
	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
	sharedQuery "github.com/davicafu/hexacrud/shared/platform/query"
	"github.com/google/uuid"
)

// InMemoryRecordRepo simula RecordRepository con outbox incluido. Filtra
// evaluando el árbol de criterios, igual que harían los adapters reales.
type InMemoryRecordRepo struct {
	Records map[uuid.UUID]*recordDomain.Record
	Outbox  []sharedDomain.OutboxEvent
	// Err, si no es nil, lo devuelven todas las operaciones.
	Err error
	mu  sync.Mutex
}

var _ recordDomain.RecordRepository = (*InMemoryRecordRepo)(nil)

func NewInMemoryRecordRepo() *InMemoryRecordRepo {
	return &InMemoryRecordRepo{
		Records: make(map[uuid.UUID]*recordDomain.Record),
		Outbox:  []sharedDomain.OutboxEvent{},
	}
}

func clone(r *recordDomain.Record) *recordDomain.Record {
	c := *r
	c.Fields = make(map[string]interface{}, len(r.Fields))
	for k, v := range r.Fields {
		c.Fields[k] = v
	}
	return &c
}

// Seed inserta registros sin pasar por hooks ni outbox.
func (m *InMemoryRecordRepo) Seed(rs ...*recordDomain.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rs {
		m.Records[r.ID] = clone(r)
	}
}

func (m *InMemoryRecordRepo) uniqueViolation(r *recordDomain.Record) error {
	schema, err := recordDomain.SchemaFor(r.Collection)
	if err != nil {
		return nil
	}
	for _, field := range schema.UniqueFields {
		v, ok := r.Lookup(field)
		if !ok {
			continue
		}
		for _, other := range m.Records {
			if other.ID == r.ID || other.Collection != r.Collection {
				continue
			}
			if ov, ok := other.Lookup(field); ok && fmt.Sprint(ov) == fmt.Sprint(v) {
				return recordDomain.ErrRecordAlreadyExists
			}
		}
	}
	return nil
}

func (m *InMemoryRecordRepo) Create(ctx context.Context, r *recordDomain.Record, evt sharedDomain.OutboxEvent) error {
	return m.CreateMany(ctx, []*recordDomain.Record{r}, []sharedDomain.OutboxEvent{evt})
}

func (m *InMemoryRecordRepo) CreateMany(ctx context.Context, rs []*recordDomain.Record, evts []sharedDomain.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, r := range rs {
		if _, ok := m.Records[r.ID]; ok {
			return recordDomain.ErrRecordAlreadyExists
		}
		if err := m.uniqueViolation(r); err != nil {
			return err
		}
	}
	for _, r := range rs {
		m.Records[r.ID] = clone(r)
	}
	m.Outbox = append(m.Outbox, evts...)
	return nil
}

func (m *InMemoryRecordRepo) GetByID(ctx context.Context, collection string, id uuid.UUID) (*recordDomain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	r, ok := m.Records[id]
	if !ok || r.Collection != collection {
		return nil, recordDomain.ErrRecordNotFound
	}
	return clone(r), nil
}

func (m *InMemoryRecordRepo) Update(ctx context.Context, r *recordDomain.Record, evt sharedDomain.OutboxEvent) error {
	return m.UpdateMany(ctx, []*recordDomain.Record{r}, []sharedDomain.OutboxEvent{evt})
}

func (m *InMemoryRecordRepo) UpdateMany(ctx context.Context, rs []*recordDomain.Record, evts []sharedDomain.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, r := range rs {
		if existing, ok := m.Records[r.ID]; !ok || existing.Collection != r.Collection {
			return recordDomain.ErrRecordNotFound
		}
		if err := m.uniqueViolation(r); err != nil {
			return err
		}
	}
	for _, r := range rs {
		m.Records[r.ID] = clone(r)
	}
	m.Outbox = append(m.Outbox, evts...)
	return nil
}

func (m *InMemoryRecordRepo) DeleteMany(ctx context.Context, collection string, ids []uuid.UUID, evts []sharedDomain.OutboxEvent) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	var n int64
	for _, id := range ids {
		if r, ok := m.Records[id]; ok && r.Collection == collection {
			delete(m.Records, id)
			n++
		}
	}
	m.Outbox = append(m.Outbox, evts...)
	return n, nil
}

func (m *InMemoryRecordRepo) matching(collection string, criteria sharedDomain.Criteria) []*recordDomain.Record {
	var out []*recordDomain.Record
	for _, r := range m.Records {
		if r.Collection == collection && sharedDomain.Evaluate(criteria, r.Lookup) {
			out = append(out, clone(r))
		}
	}
	return out
}

func (m *InMemoryRecordRepo) CountByCriteria(ctx context.Context, collection string, criteria sharedDomain.Criteria) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return int64(len(m.matching(collection, criteria))), nil
}

func (m *InMemoryRecordRepo) ListByCriteria(
	ctx context.Context,
	collection string,
	criteria sharedDomain.Criteria,
	window sharedQuery.OffsetPagination,
	sorts []sharedQuery.Sort,
) ([]*recordDomain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	list := m.matching(collection, criteria)

	// Ordenar
	sort.SliceStable(list, func(i, j int) bool {
		for _, s := range sorts {
			a, _ := list[i].Lookup(s.Field)
			b, _ := list[j].Lookup(s.Field)
			cmp := sharedDomain.CompareValues(a, b)
			if cmp == 0 {
				continue
			}
			if s.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	// Paginar
	if window.Offset >= len(list) {
		return []*recordDomain.Record{}, nil
	}
	list = list[window.Offset:]
	if window.Limit > 0 && window.Limit < len(list) {
		list = list[:window.Limit]
	}
	return list, nil
}

// EventTypes devuelve los tipos de evento del outbox, en orden.
func (m *InMemoryRecordRepo) EventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Outbox))
	for _, evt := range m.Outbox {
		out = append(out, evt.EventType)
	}
	return out
}
