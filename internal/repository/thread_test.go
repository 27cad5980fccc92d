package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"threads/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreadRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewThreadRepository(db)

	thread := &models.Thread{Text: "hello world", AuthorID: 1}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "threads"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), thread))
	assert.Equal(t, uint(11), thread.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestThreadRepository_Create_Errors(t *testing.T) {
	parent := uint(5)
	tests := []struct {
		name     string
		thread   *models.Thread
		dbErr    error
		wantCode string
	}{
		{"missing author", &models.Thread{Text: "abc", AuthorID: 9}, &pgconn.PgError{Code: "23503"}, models.CodeInvalidReference},
		{"missing parent", &models.Thread{Text: "abc", AuthorID: 1, ParentID: &parent}, &pgconn.PgError{Code: "23503"}, models.CodeInvalidReference},
		{"connection lost", &models.Thread{Text: "abc", AuthorID: 1}, errors.New("connection reset by peer"), models.CodeStorageUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewThreadRepository(db)

			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "threads"`)).WillReturnError(tt.dbErr)
			mock.ExpectRollback()

			err := repo.Create(context.Background(), tt.thread)
			require.Error(t, err)
			assert.True(t, models.IsCode(err, tt.wantCode), "got %v", err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestThreadRepository_Create_StorageErrorKeepsCause(t *testing.T) {
	db, mock := setupMockDB(t)
	cause := errors.New("connection reset by peer")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "threads"`)).WillReturnError(cause)
	mock.ExpectRollback()

	err := NewThreadRepository(db).Create(context.Background(), &models.Thread{Text: "abc", AuthorID: 1})
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "Failed to create thread")
}

func TestThreadRepository_GetByID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	_, err := NewThreadRepository(db).GetByID(context.Background(), 404)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	_, err = NewThreadRepository(db).GetWithReplies(context.Background(), 404)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestThreadRepository_CreateWithMissingAuthor_SQLite(t *testing.T) {
	db := setupTestDB(t)
	err := NewThreadRepository(db).Create(context.Background(), &models.Thread{Text: "orphan", AuthorID: 77})
	assert.True(t, models.IsCode(err, models.CodeInvalidReference), "got %v", err)
}

func TestThreadRepository_GetWithReplies(t *testing.T) {
	db := setupTestDB(t)
	repo := NewThreadRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "ext-a", "alice", "Alice")
	bob := seedUser(t, db, "ext-b", "bob", "Bob")

	root := seedThread(t, db, alice.ID, "root post", nil)
	r1 := seedThread(t, db, bob.ID, "first reply", &root.ID)
	seedThread(t, db, alice.ID, "second reply", &root.ID)
	seedThread(t, db, alice.ID, "nested reply", &r1.ID)

	got, err := repo.GetWithReplies(ctx, root.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Author)
	assert.Equal(t, "alice", got.Author.Username)

	require.Len(t, got.Children, 2)
	assert.Equal(t, "first reply", got.Children[0].Text)
	assert.Equal(t, "bob", got.Children[0].Author.Username)
	require.Len(t, got.Children[0].Children, 1)
	assert.Equal(t, "nested reply", got.Children[0].Children[0].Text)
	assert.Equal(t, "alice", got.Children[0].Children[0].Author.Username)
}

func TestThreadRepository_ListTopLevel(t *testing.T) {
	db := setupTestDB(t)
	repo := NewThreadRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "ext-a", "alice", "Alice")
	var last *models.Thread
	for _, text := range []string{"one", "two", "three"} {
		last = seedThread(t, db, alice.ID, text, nil)
	}
	seedThread(t, db, alice.ID, "a reply", &last.ID)

	total, err := repo.CountTopLevel(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	page, err := repo.ListTopLevel(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "three", page[0].Text)
	assert.Equal(t, "two", page[1].Text)
	require.Len(t, page[0].Children, 1)
	assert.Equal(t, "alice", page[0].Children[0].Author.Username)

	rest, err := repo.ListTopLevel(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "one", rest[0].Text)
	assert.Nil(t, rest[0].ParentID)
}

func TestThreadRepository_ActivityQueries(t *testing.T) {
	db := setupTestDB(t)
	repo := NewThreadRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "ext-a", "alice", "Alice")
	bob := seedUser(t, db, "ext-b", "bob", "Bob")

	post := seedThread(t, db, alice.ID, "alice post", nil)
	own := seedThread(t, db, alice.ID, "alice answers herself", &post.ID)
	fromBob := seedThread(t, db, bob.ID, "bob replies", &post.ID)
	fromBobToOwn := seedThread(t, db, bob.ID, "bob replies again", &own.ID)

	ids, err := repo.ListIDsByAuthor(ctx, alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{post.ID, own.ID}, ids)

	replies, err := repo.ListRepliesTo(ctx, ids, alice.ID)
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, fromBobToOwn.ID, replies[0].ID, "newest first")
	assert.Equal(t, fromBob.ID, replies[1].ID)
	for _, r := range replies {
		assert.NotEqual(t, alice.ID, r.AuthorID)
		require.NotNil(t, r.Author)
		assert.Equal(t, "bob", r.Author.Username)
	}

	empty, err := repo.ListRepliesTo(ctx, nil, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
