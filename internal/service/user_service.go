package service

import (
	"context"
	"errors"
	"strings"

	"threads/internal/models"
	"threads/internal/observability"
	"threads/internal/repository"
)

// ProfileEditPath is the only path UpdateUser revalidates.
const ProfileEditPath = "/profile/edit"

// UserService implements profiles, user search and activity.
type UserService struct {
	users       repository.UserRepository
	threads     repository.ThreadRepository
	revalidator Revalidator
}

// UpdateUserInput is an onboarding or profile edit submission.
type UpdateUserInput struct {
	ExternalID string
	Username   string
	Name       string
	Bio        string
	Image      string
	Path       string
}

// FetchUsersInput selects a page of other users.
type FetchUsersInput struct {
	ExcludeExternalID string
	SearchTerm        string
	Page              PageRequest
	// Sort is "asc" for oldest first; anything else is newest first.
	Sort string
}

// UsersPage is one page of user search results.
type UsersPage struct {
	Users   []*models.User `json:"users"`
	Page    int            `json:"page"`
	Size    int            `json:"size"`
	Total   int64          `json:"total"`
	HasNext bool           `json:"has_next"`
}

// NewUserService wires a UserService. revalidator may be nil.
func NewUserService(
	users repository.UserRepository,
	threads repository.ThreadRepository,
	revalidator Revalidator,
) *UserService {
	return &UserService{
		users:       users,
		threads:     threads,
		revalidator: orNoop(revalidator),
	}
}

// UpdateUser creates or overwrites the profile keyed by in.ExternalID and marks
// it onboarded. The username is stored lowercase.
func (s *UserService) UpdateUser(ctx context.Context, in UpdateUserInput) (*models.User, error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "UpdateUser")
	defer span.End()

	if strings.TrimSpace(in.ExternalID) == "" {
		return nil, models.NewValidationError("external id is required")
	}

	user := &models.User{
		ExternalID: in.ExternalID,
		Username:   strings.ToLower(strings.TrimSpace(in.Username)),
		Name:       strings.TrimSpace(in.Name),
		Bio:        in.Bio,
		Image:      in.Image,
		Onboarded:  true,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, err
	}

	if in.Path == ProfileEditPath {
		s.revalidator.Revalidate(ctx, in.Path)
	}

	saved, err := s.users.GetByExternalID(ctx, in.ExternalID)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, models.NewInternalError(errors.New("user missing after upsert"))
	}
	return saved, nil
}

// FetchUser returns the user with externalID, or nil when there is none.
func (s *UserService) FetchUser(ctx context.Context, externalID string) (*models.User, error) {
	return s.users.GetByExternalID(ctx, externalID)
}

// FetchUserPosts returns the user with their top-level threads and the replies
// to them, or nil when there is no such user.
func (s *UserService) FetchUserPosts(ctx context.Context, externalID string) (*models.User, error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "FetchUserPosts")
	defer span.End()

	return s.users.GetWithThreads(ctx, externalID)
}

// FetchUsers searches users other than in.ExcludeExternalID.
func (s *UserService) FetchUsers(ctx context.Context, in FetchUsersInput) (*UsersPage, error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "FetchUsers")
	defer span.End()

	page := in.Page.Normalize()
	users, total, err := s.users.Search(ctx, repository.UserFilter{
		ExcludeExternalID: in.ExcludeExternalID,
		Term:              in.SearchTerm,
		SortAsc:           strings.EqualFold(in.Sort, "asc"),
		Limit:             page.Size,
		Offset:            page.Offset(),
	})
	if err != nil {
		return nil, err
	}

	return &UsersPage{
		Users:   users,
		Page:    page.Number,
		Size:    page.Size,
		Total:   total,
		HasNext: hasNext(total, page.Offset(), len(users)),
	}, nil
}

// GetActivity returns replies written by others to any thread userID wrote,
// newest first.
func (s *UserService) GetActivity(ctx context.Context, userID uint) ([]*models.Thread, error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "GetActivity")
	defer span.End()

	ids, err := s.threads.ListIDsByAuthor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*models.Thread{}, nil
	}
	return s.threads.ListRepliesTo(ctx, ids, userID)
}
