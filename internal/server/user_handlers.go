package server

import (
	"threads/internal/models"
	"threads/internal/service"
	"threads/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// UpdateProfileRequest is the body of PUT /api/users/me.
type UpdateProfileRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`
	// Path is the page the edit was submitted from, e.g. "/profile/edit".
	Path string `json:"path"`
}

// GetMyProfile handles GET /api/users/me. It answers 404 until the caller
// has saved a profile.
// @Summary Get the caller's profile
// @Description Answers 404 until the caller has saved a profile.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	externalID := currentExternalID(c)
	user, err := s.userService.FetchUser(c.UserContext(), externalID)
	if err != nil {
		return respondError(c, err)
	}
	if user == nil {
		return respondError(c, models.NewNotFoundError("User", externalID))
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me. Saving completes onboarding.
// @Summary Save the caller's profile
// @Description Saving completes onboarding.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Profile"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /users/me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}
	err := validation.ValidateProfile(validation.Profile{
		Username: req.Username,
		Name:     req.Name,
		Bio:      req.Bio,
		Image:    req.Image,
	})
	if err != nil {
		return respondError(c, models.NewValidationError(err.Error()))
	}

	user, err := s.userService.UpdateUser(c.UserContext(), service.UpdateUserInput{
		ExternalID: currentExternalID(c),
		Username:   req.Username,
		Name:       req.Name,
		Bio:        req.Bio,
		Image:      req.Image,
		Path:       req.Path,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetUsers handles GET /api/users?q=&page=&size=&sort=. The caller is never
// part of the result.
// @Summary Search other users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param q query string false "Username or name contains"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Param sort query string false "asc or desc" default(desc)
// @Success 200 {object} service.UsersPage
// @Router /users [get]
func (s *Server) GetUsers(c *fiber.Ctx) error {
	page, err := s.userService.FetchUsers(c.UserContext(), service.FetchUsersInput{
		ExcludeExternalID: currentExternalID(c),
		SearchTerm:        c.Query("q"),
		Page:              parsePage(c),
		Sort:              c.Query("sort", "desc"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GetUser handles GET /api/users/:externalId.
// @Summary Get a user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param externalId path string true "External ID"
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{externalId} [get]
func (s *Server) GetUser(c *fiber.Ctx) error {
	externalID := c.Params("externalId")
	user, err := s.userService.FetchUser(c.UserContext(), externalID)
	if err != nil {
		return respondError(c, err)
	}
	if user == nil {
		return respondError(c, models.NewNotFoundError("User", externalID))
	}
	return c.JSON(user)
}

// GetUserThreads handles GET /api/users/:externalId/threads, the profile view.
// @Summary Get a user's profile with their threads
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param externalId path string true "External ID"
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{externalId}/threads [get]
func (s *Server) GetUserThreads(c *fiber.Ctx) error {
	externalID := c.Params("externalId")
	ctx := c.UserContext()

	var user models.User
	return s.serveView(c, service.ProfilePath(externalID), &user, func() error {
		u, err := s.userService.FetchUserPosts(ctx, externalID)
		if err != nil {
			return err
		}
		if u == nil {
			return models.NewNotFoundError("User", externalID)
		}
		user = *u
		return nil
	})
}

// GetActivity handles GET /api/activity: replies others wrote to the
// caller's threads, newest first.
// @Summary Replies others wrote to the caller's threads
// @Description Newest first.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{activity=[]models.Thread}
// @Router /activity [get]
func (s *Server) GetActivity(c *fiber.Ctx) error {
	items, err := s.userService.GetActivity(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"activity": items})
}
