package clickhouse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	accessDomain "github.com/davicafu/hexacrud/internal/access/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewDecisionLogRepoFromDB(db)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO access_decisions")
	prep.ExpectExec().WithArgs("u1", "blog", "read", "blog:read", true, "", at).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs("", "blog", "update", "blog:update", false, "unauthorized", at).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = repo.SaveBatch(context.Background(), []accessDomain.DecisionEntry{
		{PrincipalID: "u1", Resource: "blog", Action: "read", Permission: "blog:read", Allowed: true, DecidedAt: at},
		{Resource: "blog", Action: "update", Permission: "blog:update", Reason: "unauthorized", DecidedAt: at},
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveBatch_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO access_decisions").ExpectExec().WillReturnError(errors.New("too many parts"))
	mock.ExpectRollback()

	err = NewDecisionLogRepoFromDB(db).Save(context.Background(), accessDomain.DecisionEntry{Permission: "blog:read"})

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDailyTrend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM access_decisions").
		WillReturnRows(sqlmock.NewRows([]string{"day", "allowed", "denied"}).AddRow(day, 7, 2))

	trend, err := NewDecisionLogRepoFromDB(db).DailyTrend(context.Background(), day, day.Add(24*time.Hour))

	require.NoError(t, err)
	require.Len(t, trend, 1)
	assert.Equal(t, DailyDecisions{Day: day, Allowed: 7, Denied: 2}, trend[0])
}
