// handlers/progression_routes.go
package handlers

import (
	"strconv"

	"battle-seoul/middleware"
	"battle-seoul/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProgressionRoutes(app *fiber.App, pointsService *services.PointsService) {
	secured := middleware.UserContextMiddleware()

	app.Get("/users/me/points", secured, func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		points, err := pointsService.GetPoints(c.UserContext(), userID)
		if err != nil {
			return err
		}
		limit, _ := strconv.Atoi(c.Query("recent", "10"))
		recent, err := pointsService.RecentEntries(c.UserContext(), userID, limit)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"user_id":          userID,
			"total_points":     points.TotalPoints,
			"level":            points.Level,
			"votes_cast":       points.VotesCast,
			"progress":         services.ProgressFor(points),
			"last_level_up_at": points.LastLevelUpAt,
			"recent":           recent,
		})
	})

	// Admin grant for support corrections.
	app.Post("/admin/points/grant", secured, func(c *fiber.Ctx) error {
		if !middleware.HasRole(c, middleware.RoleAdmin) {
			return fiber.NewError(fiber.StatusForbidden, "admin role required")
		}

		type Req struct {
			UserID string `json:"user_id"`
			Points int64  `json:"points"`
			Reason string `json:"reason"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON")
		}
		if req.Reason != "" && req.Reason != services.RewardAdminGrant {
			return fiber.NewError(fiber.StatusBadRequest, "admin grants must use the admin_grant reason")
		}

		updated, err := pointsService.GrantPoints(c.UserContext(), req.UserID, req.Points)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"message":      "points granted",
			"user_id":      updated.UserID,
			"total_points": updated.TotalPoints,
			"level":        updated.Level,
		})
	})
}
