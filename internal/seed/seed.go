package seed

import (
	"context"
	"fmt"

	"threads/internal/middleware"
	"threads/internal/models"

	"gorm.io/gorm"
)

// Summary counts what a seeding run created.
type Summary struct {
	Users   int `yaml:"users" json:"users"`
	Threads int `yaml:"threads" json:"threads"`
	Replies int `yaml:"replies" json:"replies"`
}

// Seed populates the database with random users, threads and replies.
// Replies are spread over the created threads and, when there is more than
// one user, never written by the thread's own author.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	middleware.Logger.InfoContext(ctx, "seeding database",
		"users", opts.Users, "threads", opts.Threads, "replies", opts.Replies, "dry_run", opts.DryRun)

	if opts.Clean && !opts.DryRun {
		if err := clearData(ctx, db); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}
	if opts.Users <= 0 && (opts.Threads > 0 || opts.Replies > 0) {
		return nil, fmt.Errorf("threads and replies need at least one user")
	}

	f := NewFactory(db, opts)
	summary := &Summary{}

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		u, err := f.CreateUser(ctx)
		if err != nil {
			return summary, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, u)
		summary.Users++
	}

	threads := make([]*models.Thread, 0, opts.Threads)
	for i := 0; i < opts.Threads; i++ {
		author := users[f.rng.Intn(len(users))]
		t, err := f.CreateThread(ctx, author)
		if err != nil {
			return summary, fmt.Errorf("failed to create thread: %w", err)
		}
		threads = append(threads, t)
		summary.Threads++
	}

	if len(threads) == 0 {
		if opts.Replies > 0 {
			return summary, fmt.Errorf("replies need at least one thread")
		}
		return summary, nil
	}

	for i := 0; i < opts.Replies; i++ {
		parent := threads[f.rng.Intn(len(threads))]
		author := pickOther(f, users, parent.AuthorID)
		if _, err := f.CreateReply(ctx, author, parent); err != nil {
			return summary, fmt.Errorf("failed to create reply: %w", err)
		}
		summary.Replies++
	}

	middleware.Logger.InfoContext(ctx, "seeding complete",
		"users", summary.Users, "threads", summary.Threads, "replies", summary.Replies)
	return summary, nil
}

// pickOther returns a random user other than excludeID when one exists.
func pickOther(f *Factory, users []*models.User, excludeID uint) *models.User {
	if len(users) == 1 {
		return users[0]
	}
	for {
		u := users[f.rng.Intn(len(users))]
		if u.ID != excludeID {
			return u
		}
	}
}

func clearData(ctx context.Context, db *gorm.DB) error {
	middleware.Logger.InfoContext(ctx, "clearing existing threads and users")
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Replies first; parent_id references threads.
		if err := tx.Where("parent_id IS NOT NULL").Delete(&models.Thread{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&models.Thread{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&models.User{}).Error
	})
}
