package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"threads/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreadService_CreateThread(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates top-level thread and revalidates", func(t *testing.T) {
		t.Parallel()
		var created *models.Thread
		threads := noopThreadRepo()
		threads.createFn = func(_ context.Context, th *models.Thread) error {
			th.ID = 42
			created = th
			return nil
		}
		rv := &recordingRevalidator{}
		community := uint(3)
		svc := NewThreadService(threads, noopUserRepo(), rv)

		got, err := svc.CreateThread(ctx, CreateThreadInput{Text: "hello", AuthorID: 7, CommunityID: &community, Path: "/"})
		require.NoError(t, err)
		assert.Equal(t, uint(42), got.ID)
		assert.Same(t, created, got)
		assert.Nil(t, created.ParentID)
		assert.Nil(t, created.CommunityID, "community is never stored")
		assert.Equal(t, uint(7), created.AuthorID)
		assert.Equal(t, []string{"/"}, rv.Paths())
	})

	t.Run("revalidates the author's profile", func(t *testing.T) {
		t.Parallel()
		users := noopUserRepo()
		users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, ExternalID: "ext-7"}, nil
		}
		rv := &recordingRevalidator{}

		_, err := NewThreadService(noopThreadRepo(), users, rv).CreateThread(ctx, CreateThreadInput{Text: "hello", AuthorID: 7, Path: "/somewhere"})
		require.NoError(t, err)
		assert.Equal(t, []string{"/somewhere", "/", "/profile/ext-7"}, rv.Paths())
	})

	t.Run("unknown author is an invalid reference", func(t *testing.T) {
		t.Parallel()
		users := noopUserRepo()
		users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return nil, models.NewNotFoundError("User", id)
		}
		threads := noopThreadRepo()
		threads.createFn = func(context.Context, *models.Thread) error {
			t.Fatal("must not write")
			return nil
		}
		rv := &recordingRevalidator{}

		_, err := NewThreadService(threads, users, rv).CreateThread(ctx, CreateThreadInput{Text: "hello", AuthorID: 9, Path: "/"})
		assertCode(t, err, models.CodeInvalidReference)
		assert.Empty(t, rv.Paths())
	})

	t.Run("storage failure keeps cause and skips revalidation", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("db down")
		threads := noopThreadRepo()
		threads.createFn = func(context.Context, *models.Thread) error {
			return models.NewStorageError("Failed to create thread", cause)
		}
		rv := &recordingRevalidator{}

		_, err := NewThreadService(threads, noopUserRepo(), rv).CreateThread(ctx, CreateThreadInput{Text: "hello", AuthorID: 1, Path: "/"})
		assertCode(t, err, models.CodeStorageUnavailable)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "Failed to create thread")
		assert.Empty(t, rv.Paths())
	})

	t.Run("nil revalidator is allowed", func(t *testing.T) {
		t.Parallel()
		_, err := NewThreadService(noopThreadRepo(), noopUserRepo(), nil).CreateThread(ctx, CreateThreadInput{Text: "hi!", AuthorID: 1, Path: "/"})
		assert.NoError(t, err)
	})
}

func TestThreadService_FetchPosts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var gotLimit, gotOffset int
	threads := noopThreadRepo()
	threads.listTopLevelFn = func(_ context.Context, limit, offset int) ([]*models.Thread, error) {
		gotLimit, gotOffset = limit, offset
		return []*models.Thread{{ID: 6}, {ID: 7}}, nil
	}
	threads.countTopLevelFn = func(context.Context) (int64, error) { return 7, nil }

	page, err := NewThreadService(threads, noopUserRepo(), nil).FetchPosts(ctx, PageRequest{Number: 2, Size: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, gotLimit)
	assert.Equal(t, 5, gotOffset)
	assert.Len(t, page.Posts, 2)
	assert.False(t, page.HasNext)
	assert.Equal(t, int64(7), page.Total)

	threads.countTopLevelFn = func(context.Context) (int64, error) { return 0, errors.New("boom") }
	_, err = NewThreadService(threads, noopUserRepo(), nil).FetchPosts(ctx, PageRequest{})
	assert.Error(t, err)
}

func TestThreadService_FetchThreadByID_PropagatesNotFound(t *testing.T) {
	t.Parallel()
	threads := noopThreadRepo()
	threads.getWithRepliesFn = func(_ context.Context, id uint) (*models.Thread, error) {
		return nil, models.NewNotFoundError("Thread", id)
	}
	_, err := NewThreadService(threads, noopUserRepo(), nil).FetchThreadByID(context.Background(), 5)
	assertCode(t, err, models.CodeNotFound)
}

func TestThreadService_AddCommentToThread(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates reply under parent", func(t *testing.T) {
		t.Parallel()
		var created *models.Thread
		threads := noopThreadRepo()
		threads.createFn = func(_ context.Context, th *models.Thread) error {
			created = th
			return nil
		}
		rv := &recordingRevalidator{}

		_, err := NewThreadService(threads, noopUserRepo(), rv).AddCommentToThread(ctx, AddCommentInput{
			ThreadID: 10, Text: "nice", UserID: 2, Path: "/thread/10",
		})
		require.NoError(t, err)
		require.NotNil(t, created.ParentID)
		assert.Equal(t, uint(10), *created.ParentID)
		assert.Equal(t, uint(2), created.AuthorID)
		assert.Equal(t, []string{"/thread/10", "/"}, rv.Paths())
	})

	t.Run("reply to a post revalidates feed and parent author's profile", func(t *testing.T) {
		t.Parallel()
		threads := noopThreadRepo()
		threads.getByIDFn = func(_ context.Context, id uint) (*models.Thread, error) {
			return &models.Thread{ID: id, AuthorID: 5}, nil
		}
		users := noopUserRepo()
		users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, ExternalID: fmt.Sprintf("ext-%d", id)}, nil
		}
		rv := &recordingRevalidator{}

		_, err := NewThreadService(threads, users, rv).AddCommentToThread(ctx, AddCommentInput{
			ThreadID: 10, Text: "nice", UserID: 2, Path: "/thread/10",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"/thread/10", "/", "/profile/ext-5"}, rv.Paths())
	})

	t.Run("reply to a reply revalidates the grandparent detail", func(t *testing.T) {
		t.Parallel()
		grandparent := uint(3)
		threads := noopThreadRepo()
		threads.getByIDFn = func(_ context.Context, id uint) (*models.Thread, error) {
			return &models.Thread{ID: id, AuthorID: 5, ParentID: &grandparent}, nil
		}
		rv := &recordingRevalidator{}

		_, err := NewThreadService(threads, noopUserRepo(), rv).AddCommentToThread(ctx, AddCommentInput{
			ThreadID: 10, Text: "nice", UserID: 2, Path: "/somewhere",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"/somewhere", "/thread/10", "/thread/3"}, rv.Paths())
	})

	t.Run("missing parent writes nothing", func(t *testing.T) {
		t.Parallel()
		threads := noopThreadRepo()
		threads.getByIDFn = func(_ context.Context, id uint) (*models.Thread, error) {
			return nil, models.NewNotFoundError("Thread", id)
		}
		threads.createFn = func(context.Context, *models.Thread) error {
			t.Fatal("must not write")
			return nil
		}
		rv := &recordingRevalidator{}

		_, err := NewThreadService(threads, noopUserRepo(), rv).AddCommentToThread(ctx, AddCommentInput{ThreadID: 99, Text: "nice", UserID: 2})
		assertCode(t, err, models.CodeNotFound)
		assert.Equal(t, "Thread not found", err.Error())
		assert.Empty(t, rv.Paths())
	})

	t.Run("missing user is an invalid reference", func(t *testing.T) {
		t.Parallel()
		users := noopUserRepo()
		users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return nil, models.NewNotFoundError("User", id)
		}
		_, err := NewThreadService(noopThreadRepo(), users, nil).AddCommentToThread(ctx, AddCommentInput{ThreadID: 1, Text: "nice", UserID: 404})
		assertCode(t, err, models.CodeInvalidReference)
	})

	t.Run("parent lookup failure propagates", func(t *testing.T) {
		t.Parallel()
		threads := noopThreadRepo()
		threads.getByIDFn = func(context.Context, uint) (*models.Thread, error) {
			return nil, models.NewStorageError("Failed to fetch thread", errors.New("timeout"))
		}
		_, err := NewThreadService(threads, noopUserRepo(), nil).AddCommentToThread(ctx, AddCommentInput{ThreadID: 1, Text: "nice", UserID: 1})
		assertCode(t, err, models.CodeStorageUnavailable)
	})
}
