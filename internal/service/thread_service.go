package service

import (
	"context"

	"threads/internal/models"
	"threads/internal/observability"
	"threads/internal/repository"
)

// ThreadService implements posting, replying and reading threads.
type ThreadService struct {
	threads     repository.ThreadRepository
	users       repository.UserRepository
	revalidator Revalidator
}

// CreateThreadInput describes a new top-level thread. CommunityID is accepted
// and ignored.
type CreateThreadInput struct {
	Text        string
	AuthorID    uint
	CommunityID *uint
	Path        string
}

// AddCommentInput describes a reply to ThreadID.
type AddCommentInput struct {
	ThreadID uint
	Text     string
	UserID   uint
	Path     string
}

// PostsPage is one page of the top-level feed.
type PostsPage struct {
	Posts   []*models.Thread `json:"posts"`
	Page    int              `json:"page"`
	Size    int              `json:"size"`
	Total   int64            `json:"total"`
	HasNext bool             `json:"has_next"`
}

// NewThreadService wires a ThreadService. revalidator may be nil.
func NewThreadService(
	threads repository.ThreadRepository,
	users repository.UserRepository,
	revalidator Revalidator,
) *ThreadService {
	return &ThreadService{
		threads:     threads,
		users:       users,
		revalidator: orNoop(revalidator),
	}
}

// requireUser turns a missing user into an invalid reference.
func requireUser(ctx context.Context, users repository.UserRepository, id uint) (*models.User, error) {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewInvalidReferenceError("user", id)
		}
		return nil, err
	}
	return user, nil
}

// profileOf is the profile view of user, or "" when it has none.
func profileOf(user *models.User) string {
	if user == nil || user.ExternalID == "" {
		return ""
	}
	return ProfilePath(user.ExternalID)
}

// CreateThread stores a top-level thread. It revalidates in.Path together with
// the feed and the author's profile, both of which list the new thread.
func (s *ThreadService) CreateThread(ctx context.Context, in CreateThreadInput) (*models.Thread, error) {
	ctx, span := observability.StartServiceSpan(ctx, "ThreadService", "CreateThread")
	defer span.End()

	author, err := requireUser(ctx, s.users, in.AuthorID)
	if err != nil {
		return nil, err
	}

	thread := &models.Thread{
		Text:     in.Text,
		AuthorID: in.AuthorID,
	}
	if err := s.threads.Create(ctx, thread); err != nil {
		return nil, err
	}
	observability.ThreadsCreated.WithLabelValues("post").Inc()

	revalidateAll(ctx, s.revalidator, in.Path, FeedPath, profileOf(author))
	return thread, nil
}

// FetchPosts returns one page of top-level threads, newest first.
func (s *ThreadService) FetchPosts(ctx context.Context, page PageRequest) (*PostsPage, error) {
	ctx, span := observability.StartServiceSpan(ctx, "ThreadService", "FetchPosts")
	defer span.End()

	page = page.Normalize()
	posts, err := s.threads.ListTopLevel(ctx, page.Size, page.Offset())
	if err != nil {
		return nil, err
	}
	total, err := s.threads.CountTopLevel(ctx)
	if err != nil {
		return nil, err
	}

	return &PostsPage{
		Posts:   posts,
		Page:    page.Number,
		Size:    page.Size,
		Total:   total,
		HasNext: hasNext(total, page.Offset(), len(posts)),
	}, nil
}

// FetchThreadByID returns a thread with two levels of replies.
func (s *ThreadService) FetchThreadByID(ctx context.Context, id uint) (*models.Thread, error) {
	ctx, span := observability.StartServiceSpan(ctx, "ThreadService", "FetchThreadByID")
	defer span.End()

	return s.threads.GetWithReplies(ctx, id)
}

// AddCommentToThread stores a reply to an existing thread. It revalidates
// in.Path and every view the reply shows up in: the parent's detail and,
// for a reply to a reply, the grandparent's detail; for a reply to a
// top-level thread, the feed and the parent author's profile.
// Nothing is written when the parent thread does not exist.
func (s *ThreadService) AddCommentToThread(ctx context.Context, in AddCommentInput) (*models.Thread, error) {
	ctx, span := observability.StartServiceSpan(ctx, "ThreadService", "AddCommentToThread")
	defer span.End()

	parent, err := s.threads.GetByID(ctx, in.ThreadID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, &models.AppError{Code: models.CodeNotFound, Message: "Thread not found"}
		}
		return nil, err
	}
	if _, err := requireUser(ctx, s.users, in.UserID); err != nil {
		return nil, err
	}
	views, err := s.replyViews(ctx, parent)
	if err != nil {
		return nil, err
	}

	parentID := in.ThreadID
	reply := &models.Thread{
		Text:     in.Text,
		AuthorID: in.UserID,
		ParentID: &parentID,
	}
	if err := s.threads.Create(ctx, reply); err != nil {
		return nil, err
	}
	observability.ThreadsCreated.WithLabelValues("reply").Inc()

	revalidateAll(ctx, s.revalidator, append([]string{in.Path}, views...)...)
	return reply, nil
}

// replyViews lists the cached views that render the replies of parent.
func (s *ThreadService) replyViews(ctx context.Context, parent *models.Thread) ([]string, error) {
	views := []string{ThreadPath(parent.ID)}
	if parent.IsReply() {
		return append(views, ThreadPath(*parent.ParentID)), nil
	}

	author, err := s.users.GetByID(ctx, parent.AuthorID)
	if err != nil && !models.IsCode(err, models.CodeNotFound) {
		return nil, err
	}
	return append(views, FeedPath, profileOf(author)), nil
}
