package task

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*Repo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepo(sqlx.NewDb(db, "pgx")), mock
}

func taskColumns() []string {
	return []string{"id", "message_id", "channel_id", "thread_id", "created_by",
		"title", "note", "status", "created_at", "updated_at"}
}

func taskRow(id int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(taskColumns()).
		AddRow(id, int64(42), int64(5), int64(10), int64(3), "Fix bug", "", "open", now, now)
}

func TestCreateIgnoreInserts(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO tasks .+ON CONFLICT \(message_id\) DO NOTHING`).
		WithArgs(int64(42), int64(5), int64(10), int64(3), "Fix bug", "").
		WillReturnRows(taskRow(1))

	got, created, err := repo.CreateIgnore(context.Background(), 42, 5, 10, 3, "Fix bug", "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1), got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateIgnoreConflictRefetches(t *testing.T) {
	repo, mock := newMockRepo(t)

	// DO NOTHING yields zero rows; the existing task is fetched instead.
	mock.ExpectQuery(`INSERT INTO tasks`).
		WithArgs(int64(42), int64(5), int64(10), int64(3), "Other title", "").
		WillReturnRows(sqlmock.NewRows(taskColumns()))
	mock.ExpectQuery(`SELECT \* FROM tasks WHERE message_id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(taskRow(1))

	got, created, err := repo.CreateIgnore(context.Background(), 42, 5, 10, 3, "Other title", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Fix bug", got.Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBuildsPartialSet(t *testing.T) {
	repo, mock := newMockRepo(t)

	doing := StatusDoing
	mock.ExpectQuery(`UPDATE tasks SET updated_at = now\(\), status = \$1 WHERE id = \$2 RETURNING \*`).
		WithArgs("doing", int64(1)).
		WillReturnRows(taskRow(1))

	_, err := repo.Update(context.Background(), 1, Patch{Status: &doing})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMissing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`DELETE FROM tasks WHERE id = \$1`).
		WithArgs(int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 404)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListDefaultScope(t *testing.T) {
	repo, mock := newMockRepo(t)

	// No status filter: non-done tasks plus recently touched done tasks.
	mock.ExpectQuery(`SELECT \* FROM tasks WHERE \(status <> \$1 OR updated_at > \$2\) ORDER BY id DESC LIMIT 200`).
		WithArgs("done", sqlmock.AnyArg()).
		WillReturnRows(taskRow(1))

	out, err := repo.List(context.Background(), Filter{}, 14*24*time.Hour, 200)
	require.NoError(t, err)
	assert.Len(t, out, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListDoneAppliesRetention(t *testing.T) {
	repo, mock := newMockRepo(t)

	done := StatusDone
	channel := int64(5)
	mock.ExpectQuery(`SELECT \* FROM tasks WHERE channel_id = \$1 AND status = \$2 AND updated_at > \$3 ORDER BY id DESC LIMIT 200`).
		WithArgs(channel, "done", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(taskColumns()))

	out, err := repo.List(context.Background(), Filter{Status: &done, ChannelID: &channel}, 14*24*time.Hour, 200)
	require.NoError(t, err)
	assert.Empty(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListOpenIgnoresRetention(t *testing.T) {
	repo, mock := newMockRepo(t)

	open := StatusOpen
	mock.ExpectQuery(`SELECT \* FROM tasks WHERE status = \$1 ORDER BY id DESC LIMIT 200`).
		WithArgs("open").
		WillReturnRows(taskRow(1))

	_, err := repo.List(context.Background(), Filter{Status: &open}, 14*24*time.Hour, 200)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
