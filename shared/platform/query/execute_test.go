package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------- Store en memoria para los tests ----------------

type doc map[string]interface{}

func (d doc) lookup(field string) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(d)
	for _, part := range strings.Split(field, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

type memStore struct {
	docs     []doc
	countErr error
	finds    int
}

func (m *memStore) CountByCriteria(_ context.Context, c sharedDomain.Criteria) (int64, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	var n int64
	for _, d := range m.docs {
		if sharedDomain.Evaluate(c, d.lookup) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) FindByCriteria(_ context.Context, c sharedDomain.Criteria, w OffsetPagination, sorts []Sort) ([]doc, error) {
	m.finds++
	var out []doc
	for _, d := range m.docs {
		if sharedDomain.Evaluate(c, d.lookup) {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		for _, s := range sorts {
			a, _ := out[i].lookup(s.Field)
			b, _ := out[j].lookup(s.Field)
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
	if w.Offset >= len(out) {
		return nil, nil
	}
	out = out[w.Offset:]
	if w.Limit > 0 && w.Limit < len(out) {
		out = out[:w.Limit]
	}
	return out, nil
}

func ids(docs []doc) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d["_id"].(string))
	}
	return out
}

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// ---------------- Tests ----------------

func TestExecute_SearchAndPaginationExample(t *testing.T) {
	store := &memStore{docs: []doc{
		{"_id": "a", "name": "Alpha", "createdAt": t0, "isDeleted": false},
		{"_id": "b", "name": "Beta", "createdAt": t0.Add(time.Hour), "isDeleted": false},
	}}

	page, err := Execute[doc](context.Background(), store, NewSpec(WithSearch("alp", "name")))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(page.Results))

	page, err = Execute[doc](context.Background(), store, NewSpec(WithPage(1, 1)))
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(page.Results))
	assert.Equal(t, PageMeta{Page: 1, Limit: 1, TotalCount: 2, TotalPages: 2}, page.Pagination)
}

func TestExecute_TieBreakAcrossPages(t *testing.T) {
	store := &memStore{docs: []doc{
		{"_id": "r1", "createdAt": t0, "isDeleted": false},
		{"_id": "r2", "createdAt": t0, "isDeleted": false},
	}}

	first, err := Execute[doc](context.Background(), store, NewSpec(WithPage(1, 1)))
	require.NoError(t, err)
	second, err := Execute[doc](context.Background(), store, NewSpec(WithPage(2, 1)))
	require.NoError(t, err)

	got := append(ids(first.Results), ids(second.Results)...)
	assert.ElementsMatch(t, []string{"r1", "r2"}, got)
	assert.Equal(t, []string{"r2", "r1"}, got, "_id desc rompe el empate")
}

func TestExecute_PagesConcatenateToUnpaginated(t *testing.T) {
	store := &memStore{}
	for i := 0; i < 11; i++ {
		store.docs = append(store.docs, doc{
			"_id":       fmt.Sprintf("id-%02d", i),
			"createdAt": t0.Add(time.Duration(i%3) * time.Minute), // empates a propósito
			"isDeleted": i == 7,
		})
	}

	all, err := Execute[doc](context.Background(), store, NewSpec())
	require.NoError(t, err)
	assert.Len(t, all.Results, 10)
	assert.Equal(t, PageMeta{Page: 1, Limit: 10, TotalCount: 10, TotalPages: 1}, all.Pagination)

	var concatenated []string
	for p := 1; ; p++ {
		page, err := Execute[doc](context.Background(), store, NewSpec(WithPage(p, 3)))
		require.NoError(t, err)
		assert.Equal(t, 4, page.Pagination.TotalPages)
		concatenated = append(concatenated, ids(page.Results)...)
		if p >= page.Pagination.TotalPages {
			break
		}
	}
	assert.Equal(t, ids(all.Results), concatenated)
}

func TestExecute_RangeIsInclusive(t *testing.T) {
	store := &memStore{}
	for _, age := range []int{17, 18, 25, 30, 31} {
		store.docs = append(store.docs, doc{"_id": fmt.Sprint(age), "age": age, "createdAt": t0, "isDeleted": false})
	}

	page, err := Execute[doc](context.Background(), store, NewSpec(WithFilter("age", Range(18, 30))))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"18", "25", "30"}, ids(page.Results))
}

func TestExecute_SoftDeleteDefault(t *testing.T) {
	store := &memStore{docs: []doc{
		{"_id": "live", "createdAt": t0, "isDeleted": false},
		{"_id": "gone", "createdAt": t0, "isDeleted": true},
		{"_id": "legacy", "createdAt": t0}, // sin flag: no visible por defecto
	}}

	page, err := Execute[doc](context.Background(), store, NewSpec())
	require.NoError(t, err)
	assert.Equal(t, []string{"live"}, ids(page.Results))

	page, err = Execute[doc](context.Background(), store, NewSpec(WithFilter(SoftDeleteField, Exact(true))))
	require.NoError(t, err)
	assert.Equal(t, []string{"gone"}, ids(page.Results))
}

func TestExecute_EmptyCountSkipsFind(t *testing.T) {
	store := &memStore{}

	page, err := Execute[doc](context.Background(), store, NewSpec(WithPage(2, 10)))
	require.NoError(t, err)
	assert.Empty(t, page.Results)
	assert.NotNil(t, page.Results)
	assert.Equal(t, 0, page.Pagination.TotalPages)
	assert.Equal(t, 0, store.finds)
}

func TestExecute_StoreErrorIsInternalFault(t *testing.T) {
	store := &memStore{countErr: errors.New("connection refused")}

	_, err := Execute[doc](context.Background(), store, NewSpec())
	require.Error(t, err)
	assert.True(t, sharedDomain.IsInternal(err))
}
