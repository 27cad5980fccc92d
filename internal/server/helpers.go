package server

import (
	"errors"
	"strings"
	"unicode"

	"threads/internal/featureflags"
	"threads/internal/middleware"
	"threads/internal/models"
	"threads/internal/observability"
	"threads/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// respondError writes err with the status its code maps to.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"path", c.Path(), "error", err)
	}
	return models.RespondWithError(c, status, err)
}

// parsePage reads ?page= and ?size= into a normalized page request.
func parsePage(c *fiber.Ctx) service.PageRequest {
	return service.PageRequest{
		Number: c.QueryInt("page", 1),
		Size:   c.QueryInt("size", service.DefaultPageSize),
	}.Normalize()
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "threadId" -> "thread ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// currentUserID is the local user id set by OnboardingRequired.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

// currentExternalID is the auth subject set by middleware.AuthRequired.
func currentExternalID(c *fiber.Ctx) string {
	id, _ := c.Locals(middleware.ExternalIDLocal).(string)
	return id
}

// serveView answers with the cached view for path, filling the cache from
// fetch on a miss. fetch must populate dest. The view_cache flag turns the
// cache off per user; without Redis there is no cache.
func (s *Server) serveView(c *fiber.Ctx, path string, dest any, fetch func() error) error {
	if s.views == nil || !s.featureFlags.Enabled(featureflags.ViewCache, currentUserID(c)) {
		if err := fetch(); err != nil {
			return respondError(c, err)
		}
		return c.JSON(dest)
	}

	result, err := s.views.Serve(c.UserContext(), path, dest, fetch)
	if err != nil {
		return respondError(c, err)
	}
	observability.ViewCacheResults.WithLabelValues(result).Inc()
	c.Set("X-View-Cache", result)

	return c.JSON(dest)
}
