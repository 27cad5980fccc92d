// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"threads/internal/middleware"
	"threads/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Options configures a seeding run.
type Options struct {
	Users   int
	Threads int
	Replies int
	// MaxDays spreads generated created_at values over the last MaxDays days.
	MaxDays int
	// DryRun builds entities and assigns synthetic ids without writing.
	DryRun bool
	// Clean deletes all threads and users first.
	Clean bool
}

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by Seed and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

var usernameDisallowed = regexp.MustCompile(`[^a-z0-9_-]+`)

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := time.Now().UnixNano()
	gofakeit.Seed(seed)
	//nolint:gosec // Weak random number generator is fine for seeding
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(seed)), nextID: 1000}
}

// sanitizeUsername lowercases raw and strips anything a profile username
// may not contain, padding short results.
func sanitizeUsername(raw string) string {
	u := usernameDisallowed.ReplaceAllString(strings.ToLower(raw), "")
	u = strings.Trim(u, "_-")
	if len(u) > 24 {
		u = u[:24]
	}
	for len(u) < 3 {
		u += "x"
	}
	return u
}

// pastTime picks a creation time within the configured window.
func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	back := time.Duration(f.rng.Int63n(int64(maxDays) * int64(24*time.Hour)))
	return time.Now().Add(-back)
}

// BuildUser constructs an onboarded user without persisting it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	user := &models.User{
		ExternalID: "seed_" + uuid.NewString(),
		Username:   fmt.Sprintf("%s%d", sanitizeUsername(gofakeit.Username()), gofakeit.Number(100, 999)),
		Name:       gofakeit.Name(),
		Bio:        gofakeit.Sentence(10),
		Image:      fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		Onboarded:  true,
	}
	user.CreatedAt = f.pastTime()

	for _, override := range overrides {
		override(user)
	}
	user.Username = strings.ToLower(user.Username)
	return user
}

// CreateUser constructs and persists a sample user.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if err := f.persist(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateThread constructs and persists a top-level thread by author.
func (f *Factory) CreateThread(ctx context.Context, author *models.User, overrides ...func(*models.Thread)) (*models.Thread, error) {
	thread := &models.Thread{
		Text:     gofakeit.Sentence(gofakeit.Number(4, 16)),
		AuthorID: author.ID,
	}
	thread.CreatedAt = f.pastTime()
	if thread.CreatedAt.Before(author.CreatedAt) {
		thread.CreatedAt = author.CreatedAt
	}

	for _, override := range overrides {
		override(thread)
	}
	if err := f.persist(ctx, thread); err != nil {
		return nil, err
	}
	return thread, nil
}

// CreateReply constructs and persists a reply by author to parent. The reply
// is timestamped after its parent.
func (f *Factory) CreateReply(ctx context.Context, author *models.User, parent *models.Thread, overrides ...func(*models.Thread)) (*models.Thread, error) {
	parentID := parent.ID
	reply := &models.Thread{
		Text:     gofakeit.Sentence(gofakeit.Number(3, 10)),
		AuthorID: author.ID,
		ParentID: &parentID,
	}
	window := time.Since(parent.CreatedAt)
	if window > 0 {
		reply.CreatedAt = parent.CreatedAt.Add(time.Duration(f.rng.Int63n(int64(window))))
	}

	for _, override := range overrides {
		override(reply)
	}
	if err := f.persist(ctx, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (f *Factory) persist(ctx context.Context, v any) error {
	if f.opts.DryRun {
		f.nextID++
		switch e := v.(type) {
		case *models.User:
			e.ID = f.nextID
		case *models.Thread:
			e.ID = f.nextID
		}
		middleware.Logger.DebugContext(ctx, "dry-run create", "entity", fmt.Sprintf("%T", v), "id", f.nextID)
		return nil
	}
	return f.db.WithContext(ctx).Omit(clause.Associations).Create(v).Error
}
