package service

import (
	"context"
	"sync"
	"testing"

	"threads/internal/models"
	"threads/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threadRepoStub is a stub for repository.ThreadRepository.
type threadRepoStub struct {
	createFn          func(context.Context, *models.Thread) error
	getByIDFn         func(context.Context, uint) (*models.Thread, error)
	getWithRepliesFn  func(context.Context, uint) (*models.Thread, error)
	listTopLevelFn    func(context.Context, int, int) ([]*models.Thread, error)
	countTopLevelFn   func(context.Context) (int64, error)
	listIDsByAuthorFn func(context.Context, uint) ([]uint, error)
	listRepliesToFn   func(context.Context, []uint, uint) ([]*models.Thread, error)
}

func (s *threadRepoStub) Create(ctx context.Context, thread *models.Thread) error {
	return s.createFn(ctx, thread)
}
func (s *threadRepoStub) GetByID(ctx context.Context, id uint) (*models.Thread, error) {
	return s.getByIDFn(ctx, id)
}
func (s *threadRepoStub) GetWithReplies(ctx context.Context, id uint) (*models.Thread, error) {
	return s.getWithRepliesFn(ctx, id)
}
func (s *threadRepoStub) ListTopLevel(ctx context.Context, limit, offset int) ([]*models.Thread, error) {
	return s.listTopLevelFn(ctx, limit, offset)
}
func (s *threadRepoStub) CountTopLevel(ctx context.Context) (int64, error) {
	return s.countTopLevelFn(ctx)
}
func (s *threadRepoStub) ListIDsByAuthor(ctx context.Context, authorID uint) ([]uint, error) {
	return s.listIDsByAuthorFn(ctx, authorID)
}
func (s *threadRepoStub) ListRepliesTo(ctx context.Context, parentIDs []uint, excludeAuthorID uint) ([]*models.Thread, error) {
	return s.listRepliesToFn(ctx, parentIDs, excludeAuthorID)
}

func noopThreadRepo() *threadRepoStub {
	return &threadRepoStub{
		createFn: func(_ context.Context, th *models.Thread) error {
			th.ID = 1
			return nil
		},
		getByIDFn:         func(_ context.Context, id uint) (*models.Thread, error) { return &models.Thread{ID: id}, nil },
		getWithRepliesFn:  func(_ context.Context, id uint) (*models.Thread, error) { return &models.Thread{ID: id}, nil },
		listTopLevelFn:    func(_ context.Context, _, _ int) ([]*models.Thread, error) { return nil, nil },
		countTopLevelFn:   func(_ context.Context) (int64, error) { return 0, nil },
		listIDsByAuthorFn: func(_ context.Context, _ uint) ([]uint, error) { return nil, nil },
		listRepliesToFn:   func(_ context.Context, _ []uint, _ uint) ([]*models.Thread, error) { return nil, nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn         func(context.Context, uint) (*models.User, error)
	getByExternalIDFn func(context.Context, string) (*models.User, error)
	getWithThreadsFn  func(context.Context, string) (*models.User, error)
	upsertFn          func(context.Context, *models.User) error
	searchFn          func(context.Context, repository.UserFilter) ([]*models.User, int64, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return s.getByExternalIDFn(ctx, externalID)
}
func (s *userRepoStub) GetWithThreads(ctx context.Context, externalID string) (*models.User, error) {
	return s.getWithThreadsFn(ctx, externalID)
}
func (s *userRepoStub) Upsert(ctx context.Context, user *models.User) error {
	return s.upsertFn(ctx, user)
}
func (s *userRepoStub) Search(ctx context.Context, filter repository.UserFilter) ([]*models.User, int64, error) {
	return s.searchFn(ctx, filter)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByExternalIDFn: func(_ context.Context, ext string) (*models.User, error) {
			return &models.User{ID: 1, ExternalID: ext}, nil
		},
		getWithThreadsFn: func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		upsertFn:         func(_ context.Context, _ *models.User) error { return nil },
		searchFn: func(_ context.Context, _ repository.UserFilter) ([]*models.User, int64, error) {
			return nil, 0, nil
		},
	}
}

// recordingRevalidator remembers every revalidated path.
type recordingRevalidator struct {
	mu    sync.Mutex
	paths []string
}

func (r *recordingRevalidator) Revalidate(_ context.Context, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *recordingRevalidator) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, models.IsCode(err, code), "expected %s, got %v", code, err)
}
