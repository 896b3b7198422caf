package http

import (
	"testing"
	"time"

	recordDomain "github.com/davicafu/hexacrud/internal/record/domain"
	"github.com/stretchr/testify/assert"
)

func TestPresenter_Format(t *testing.T) {
	p := NewPresenter("https://api.example.com/")
	r := recordDomain.NewRecord(recordDomain.CollectionUser, map[string]interface{}{
		"firstName":  "Ana",
		"password":   "$2a$12$hash",
		"attachment": `uploads\avatar.png`,
		"images":     []interface{}{"uploads/a.png", "https://elsewhere/b.png", 3},
		"birthDate":  "1990-05-01T10:20:30Z",
		"nested":     map[string]interface{}{"file": "uploads/x.png"},
	})
	r.CreatedAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	out := p.Format(r)

	assert.NotContains(t, out, "password")
	assert.Equal(t, "https://api.example.com/uploads/avatar.png", out["attachment"])
	assert.Equal(t, []interface{}{"https://api.example.com/uploads/a.png", "https://elsewhere/b.png", 3}, out["images"])
	assert.Equal(t, "1990-05-01 10:20:30", out["birthDate"])
	assert.Equal(t, "2024-01-02 03:04:05", out["createdAt"])
	assert.Equal(t, "Ana", out["firstName"])
	// sólo primer nivel y arrays
	assert.Equal(t, map[string]interface{}{"file": "uploads/x.png"}, out["nested"])
	// el registro no cambia
	assert.Equal(t, `uploads\avatar.png`, r.String("attachment"))
}
