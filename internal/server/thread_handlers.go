package server

import (
	"strings"

	"threads/internal/models"
	"threads/internal/service"
	"threads/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// CreateThreadRequest is the body of POST /api/threads.
type CreateThreadRequest struct {
	Text        string `json:"text"`
	CommunityID *uint  `json:"community_id"`
	// Path is the view to revalidate; defaults to the feed.
	Path string `json:"path"`
}

// AddCommentRequest is the body of POST /api/threads/:id/comments.
type AddCommentRequest struct {
	Text string `json:"text"`
	Path string `json:"path"`
}

// GetThreads handles GET /api/threads. The first default-sized page is the
// feed view and is served from the view cache.
// @Summary List top-level threads
// @Description Newest first. The first default-sized page is served from the view cache.
// @Tags threads
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} service.PostsPage
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /threads [get]
func (s *Server) GetThreads(c *fiber.Ctx) error {
	page := parsePage(c)
	ctx := c.UserContext()

	var out service.PostsPage
	fetch := func() error {
		p, err := s.threadService.FetchPosts(ctx, page)
		if err != nil {
			return err
		}
		out = *p
		return nil
	}

	if page.Number == 1 && page.Size == service.DefaultPageSize {
		return s.serveView(c, service.FeedPath, &out, fetch)
	}
	if err := fetch(); err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// CreateThread handles POST /api/threads.
// @Summary Create a thread
// @Tags threads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateThreadRequest true "Thread"
// @Success 201 {object} models.Thread
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /threads [post]
func (s *Server) CreateThread(c *fiber.Ctx) error {
	var req CreateThreadRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}
	if err := validation.ValidateThreadText(req.Text); err != nil {
		return respondError(c, models.NewValidationError(err.Error()))
	}
	if req.Path == "" {
		req.Path = service.FeedPath
	}

	thread, err := s.threadService.CreateThread(c.UserContext(), service.CreateThreadInput{
		Text:        strings.TrimSpace(req.Text),
		AuthorID:    currentUserID(c),
		CommunityID: req.CommunityID,
		Path:        req.Path,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(thread)
}

// GetThread handles GET /api/threads/:id.
// @Summary Get a thread with two levels of replies
// @Tags threads
// @Produce json
// @Security BearerAuth
// @Param id path int true "Thread ID"
// @Success 200 {object} models.Thread
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /threads/{id} [get]
func (s *Server) GetThread(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()

	var thread models.Thread
	return s.serveView(c, service.ThreadPath(id), &thread, func() error {
		t, err := s.threadService.FetchThreadByID(ctx, id)
		if err != nil {
			return err
		}
		thread = *t
		return nil
	})
}

// AddComment handles POST /api/threads/:id/comments.
// @Summary Reply to a thread
// @Tags threads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Parent thread ID"
// @Param request body AddCommentRequest true "Reply"
// @Success 201 {object} models.Thread
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /threads/{id}/comments [post]
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var req AddCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}
	if err := validation.ValidateThreadText(req.Text); err != nil {
		return respondError(c, models.NewValidationError(err.Error()))
	}
	if req.Path == "" {
		req.Path = service.ThreadPath(id)
	}

	reply, err := s.threadService.AddCommentToThread(c.UserContext(), service.AddCommentInput{
		ThreadID: id,
		Text:     strings.TrimSpace(req.Text),
		UserID:   currentUserID(c),
		Path:     req.Path,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(reply)
}
