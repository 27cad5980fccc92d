package repository

import (
	"context"
	"errors"

	"threads/internal/models"
	"threads/internal/observability"

	"gorm.io/gorm"
)

// ThreadRepository defines persistence operations for threads and replies.
type ThreadRepository interface {
	Create(ctx context.Context, thread *models.Thread) error
	GetByID(ctx context.Context, id uint) (*models.Thread, error)
	GetWithReplies(ctx context.Context, id uint) (*models.Thread, error)
	ListTopLevel(ctx context.Context, limit, offset int) ([]*models.Thread, error)
	CountTopLevel(ctx context.Context) (int64, error)
	ListIDsByAuthor(ctx context.Context, authorID uint) ([]uint, error)
	ListRepliesTo(ctx context.Context, parentIDs []uint, excludeAuthorID uint) ([]*models.Thread, error)
}

type threadRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewThreadRepository returns a new ThreadRepository implementation.
func NewThreadRepository(db *gorm.DB) ThreadRepository {
	return &threadRepository{db: db, log: observability.NewRepoLogger("threads")}
}

func (r *threadRepository) Create(ctx context.Context, thread *models.Thread) error {
	ctx, done := instrument(ctx, "threads", "create")
	defer done()

	if err := r.db.WithContext(ctx).Omit("Author", "Children").Create(thread).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		if isForeignKeyError(err) {
			if thread.IsReply() {
				return models.NewInvalidReferenceError("thread", *thread.ParentID)
			}
			return models.NewInvalidReferenceError("user", thread.AuthorID)
		}
		return models.NewStorageError("Failed to create thread", err)
	}
	r.log.LogCreate(ctx, map[string]any{"id": thread.ID, "author_id": thread.AuthorID, "reply": thread.IsReply()})
	return nil
}

func (r *threadRepository) GetByID(ctx context.Context, id uint) (*models.Thread, error) {
	ctx, done := instrument(ctx, "threads", "get_by_id")
	defer done()

	var thread models.Thread
	if err := r.db.WithContext(ctx).First(&thread, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Thread", id)
		}
		return nil, models.NewStorageError("Failed to fetch thread", err)
	}
	return &thread, nil
}

// GetWithReplies loads a thread with its author, its replies and their replies,
// each with its author. Replies are ordered oldest first.
func (r *threadRepository) GetWithReplies(ctx context.Context, id uint) (*models.Thread, error) {
	ctx, done := instrument(ctx, "threads", "get_with_replies")
	defer done()

	var thread models.Thread
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Children", orderOldestFirst).
		Preload("Children.Author").
		Preload("Children.Children", orderOldestFirst).
		Preload("Children.Children.Author").
		First(&thread, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Thread", id)
		}
		r.log.LogError(ctx, err, "get_with_replies")
		return nil, models.NewStorageError("Failed to fetch thread", err)
	}
	return &thread, nil
}

// ListTopLevel returns top-level threads newest first with authors and replies.
func (r *threadRepository) ListTopLevel(ctx context.Context, limit, offset int) ([]*models.Thread, error) {
	ctx, done := instrument(ctx, "threads", "list_top_level")
	defer done()

	var threads []*models.Thread
	err := r.db.WithContext(ctx).
		Where("parent_id IS NULL").
		Preload("Author").
		Preload("Children", orderOldestFirst).
		Preload("Children.Author").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&threads).Error
	if err != nil {
		r.log.LogError(ctx, err, "list_top_level")
		return nil, models.NewStorageError("Failed to fetch posts", err)
	}
	return threads, nil
}

func (r *threadRepository) CountTopLevel(ctx context.Context) (int64, error) {
	ctx, done := instrument(ctx, "threads", "count_top_level")
	defer done()

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Thread{}).Where("parent_id IS NULL").Count(&total).Error; err != nil {
		return 0, models.NewStorageError("Failed to count posts", err)
	}
	return total, nil
}

// ListIDsByAuthor returns the ids of every thread, post or reply, written by authorID.
func (r *threadRepository) ListIDsByAuthor(ctx context.Context, authorID uint) ([]uint, error) {
	ctx, done := instrument(ctx, "threads", "list_ids_by_author")
	defer done()

	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.Thread{}).Where("author_id = ?", authorID).Pluck("id", &ids).Error; err != nil {
		return nil, models.NewStorageError("Failed to fetch activity", err)
	}
	return ids, nil
}

// ListRepliesTo returns replies to any of parentIDs not written by excludeAuthorID,
// newest first, each with its author.
func (r *threadRepository) ListRepliesTo(ctx context.Context, parentIDs []uint, excludeAuthorID uint) ([]*models.Thread, error) {
	if len(parentIDs) == 0 {
		return []*models.Thread{}, nil
	}
	ctx, done := instrument(ctx, "threads", "list_replies_to")
	defer done()

	var replies []*models.Thread
	err := r.db.WithContext(ctx).
		Where("parent_id IN ? AND author_id <> ?", parentIDs, excludeAuthorID).
		Preload("Author").
		Order("created_at DESC, id DESC").
		Find(&replies).Error
	if err != nil {
		r.log.LogError(ctx, err, "list_replies_to")
		return nil, models.NewStorageError("Failed to fetch activity", err)
	}
	return replies, nil
}
