package sqldb

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/davicafu/hexacrud/internal/infra/db/sqldb"
	recordDomain "github.com/davicafu/hexacrud/internal/record/domain"
	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
	sharedQuery "github.com/davicafu/hexacrud/shared/platform/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhereBuilder_Postgres(t *testing.T) {
	b := &whereBuilder{d: sqldb.Postgres}
	where := b.build(sharedDomain.And(
		sharedDomain.Criterion{Field: recordDomain.FieldIsDeleted, Op: sharedDomain.OpEq, Value: false},
		sharedDomain.Or(
			sharedDomain.Criterion{Field: "author.name", Op: sharedDomain.OpContains, Value: "50%_off"},
			sharedDomain.Criterion{Field: "views", Op: sharedDomain.OpGte, Value: 10},
		),
	))

	assert.Equal(t,
		`(is_deleted = ? AND (LOWER(doc #>> '{author,name}') LIKE ? ESCAPE '\' OR doc #> '{views}' >= CAST(? AS jsonb)))`,
		where)
	assert.Equal(t, []interface{}{false, `%50\%\_off%`, []byte("10")}, b.args)
}

func TestWhereBuilder_EmptyAndInvalid(t *testing.T) {
	b := &whereBuilder{d: sqldb.SQLite}
	assert.Equal(t, "1=1", b.build(nil))
	assert.Equal(t, "1=1", b.build(sharedDomain.Or()))
	assert.Equal(t, "1=0", b.build(sharedDomain.Criterion{Field: "a b", Op: sharedDomain.OpEq, Value: 1}))
	assert.Equal(t, "1=0", b.build(sharedDomain.Criterion{Field: "tags", Op: sharedDomain.OpIn, Value: []interface{}{}}))
	assert.Empty(t, b.args)
}

func TestOrderBy(t *testing.T) {
	sorts := []sharedQuery.Sort{{Field: "createdAt", Desc: true}, {Field: "author.name"}, {Field: "bad;field"}, {Field: "_id", Desc: true}}

	assert.Equal(t, " ORDER BY created_at DESC, json_extract(doc, '$.author.name') ASC, id DESC", orderBy(sqldb.SQLite, sorts))
	assert.Equal(t, " ORDER BY created_at DESC, doc #> '{author,name}' ASC, id DESC", orderBy(sqldb.Postgres, sorts))
	assert.Equal(t, "", orderBy(sqldb.Postgres, nil))
}

func TestJSONValue_TimesSortAsText(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 5, 0, time.FixedZone("CEST", 2*3600))
	whole := jsonValue(at).(string)
	half := jsonValue(at.Add(500 * time.Millisecond)).(string)

	assert.Equal(t, "2024-05-01T10:00:05.000000000Z", whole)
	assert.Less(t, whole, half)

	doc := docValue(map[string]interface{}{
		"at":    at,
		"tags":  []interface{}{"2024-05-01T10:00:05.5Z", "no-fecha"},
		"inner": map[string]interface{}{"n": 3},
	}).(map[string]interface{})
	assert.Equal(t, whole, doc["at"])
	assert.Equal(t, []interface{}{half, "no-fecha"}, doc["tags"])
	assert.Equal(t, map[string]interface{}{"n": 3}, doc["inner"])
}

func TestRecordRepoPostgres_CreateWritesOutboxInTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRecordRepoSQL(db, sqldb.Postgres)
	r := recordDomain.NewRecord(recordDomain.CollectionRole, map[string]interface{}{"name": "editor"})

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM records WHERE collection = $1 AND`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO records`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO outbox`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), r, recordDomain.NewRecordEvent(recordDomain.RecordCreated, r)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepoPostgres_DuplicateRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRecordRepoSQL(db, sqldb.Postgres)
	r := recordDomain.NewRecord(recordDomain.CollectionRole, map[string]interface{}{"name": "editor"})

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM records`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err = repo.Create(context.Background(), r, recordDomain.NewRecordEvent(recordDomain.RecordCreated, r))
	assert.ErrorIs(t, err, recordDomain.ErrRecordAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
