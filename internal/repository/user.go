package repository

import (
	"context"
	"errors"
	"strings"

	"threads/internal/models"
	"threads/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserFilter selects a page of users for search.
type UserFilter struct {
	ExcludeExternalID string

	// Term matches username or name as a case-insensitive literal substring.
	Term    string
	SortAsc bool
	Limit   int
	Offset  int
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	GetWithThreads(ctx context.Context, externalID string) (*models.User, error)
	Upsert(ctx context.Context, user *models.User) error
	Search(ctx context.Context, filter UserFilter) ([]*models.User, int64, error)
}

type userRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, log: observability.NewRepoLogger("users")}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	ctx, done := instrument(ctx, "users", "get_by_id")
	defer done()

	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewStorageError("Failed to fetch user", err)
	}
	return &user, nil
}

// GetByExternalID returns nil, nil when no user has externalID.
func (r *userRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	ctx, done := instrument(ctx, "users", "get_by_external_id")
	defer done()

	var user models.User
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewStorageError("Failed to fetch user", err)
	}
	return &user, nil
}

// GetWithThreads loads the user's top-level threads oldest first, each with
// its author and its replies with their authors. Returns nil, nil when absent.
func (r *userRepository) GetWithThreads(ctx context.Context, externalID string) (*models.User, error) {
	ctx, done := instrument(ctx, "users", "get_with_threads")
	defer done()

	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Threads", func(db *gorm.DB) *gorm.DB {
			return orderOldestFirst(db.Where("parent_id IS NULL"))
		}).
		Preload("Threads.Author").
		Preload("Threads.Children", orderOldestFirst).
		Preload("Threads.Children.Author").
		Where("external_id = ?", externalID).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.LogError(ctx, err, "get_with_threads")
		return nil, models.NewStorageError("Failed to fetch user posts", err)
	}
	return &user, nil
}

// Upsert inserts user or, when its ExternalID exists, overwrites the profile
// fields. A username held by another user is a validation error.
func (r *userRepository) Upsert(ctx context.Context, user *models.User) error {
	ctx, done := instrument(ctx, "users", "upsert")
	defer done()

	err := r.db.WithContext(ctx).
		Omit("Threads").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "name", "bio", "image", "onboarded", "updated_at"}),
		}).
		Create(user).Error
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("Username already taken")
		}
		r.log.LogError(ctx, err, "upsert")
		return models.NewStorageError("Failed to create/update user", err)
	}
	r.log.LogUpsert(ctx, map[string]any{"external_id": user.ExternalID, "username": user.Username})
	return nil
}

// Search returns one page of users matching filter and the total match count.
func (r *userRepository) Search(ctx context.Context, filter UserFilter) ([]*models.User, int64, error) {
	ctx, done := instrument(ctx, "users", "search")
	defer done()

	query := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.User{}).Where("external_id <> ?", filter.ExcludeExternalID)
		if term := strings.TrimSpace(filter.Term); term != "" {
			like := "%" + escapeLike(strings.ToLower(term)) + "%"
			q = q.Where(`(LOWER(username) LIKE ? ESCAPE '\' OR LOWER(name) LIKE ? ESCAPE '\')`, like, like)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, models.NewStorageError("Failed to fetch users", err)
	}

	order := "created_at DESC, id DESC"
	if filter.SortAsc {
		order = "created_at ASC, id ASC"
	}

	var users []*models.User
	if err := query().Order(order).Limit(filter.Limit).Offset(filter.Offset).Find(&users).Error; err != nil {
		r.log.LogError(ctx, err, "search")
		return nil, 0, models.NewStorageError("Failed to fetch users", err)
	}
	return users, total, nil
}
