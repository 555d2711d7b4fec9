package middleware

import (
	"strconv"

	"canvas-backend/internal/auth"
	"canvas-backend/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ProjectMiddleware tenant guard for project-scoped routes
type ProjectMiddleware struct {
	memberService *service.MemberService
}

// NewProjectMiddleware creates a ProjectMiddleware
func NewProjectMiddleware(memberService *service.MemberService) *ProjectMiddleware {
	return &ProjectMiddleware{memberService: memberService}
}

// getProjectIDFromContext extracts the project id from the URL
func getProjectIDFromContext(c *fiber.Ctx) (int64, error) {
	idStr := c.Params("projectId")
	if idStr == "" {
		idStr = c.Params("id")
	}
	if idStr == "" {
		return 0, fiber.NewError(fiber.StatusBadRequest, "project ID is required")
	}
	return strconv.ParseInt(idStr, 10, 64)
}

// RequireMembership active project membership (or ownership) required
func (m *ProjectMiddleware) RequireMembership() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := auth.GetClaimsFromContext(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}

		projectID, err := getProjectIDFromContext(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid project ID",
			})
		}

		if !m.memberService.IsProjectMemberOrOwner(projectID, claims.UserID) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "not a project member",
			})
		}

		c.Locals("projectID", projectID)
		return c.Next()
	}
}

// RequireOwnership project ownership required
func (m *ProjectMiddleware) RequireOwnership() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := auth.GetClaimsFromContext(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}

		projectID, err := getProjectIDFromContext(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid project ID",
			})
		}

		if !m.memberService.IsProjectOwner(projectID, claims.UserID) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "owner permission required",
			})
		}

		c.Locals("projectID", projectID)
		return c.Next()
	}
}
