package handlers

import (
	"strconv"

	"battle-seoul/middleware"
	"battle-seoul/models"
	"battle-seoul/services"

	"github.com/gofiber/fiber/v2"
)

type manualBattleRequest struct {
	ContenderAID string `json:"contender_a_id"`
	ContenderBID string `json:"contender_b_id"`
}

type voteRequest struct {
	Side models.Side `json:"side"`
}

type runMatchingRequest struct {
	MaxMatches int  `json:"max_matches"`
	Force      bool `json:"force"`
}

func SetupBattleRoutes(app *fiber.App, matchingService *services.MatchingService, votingService *services.VotingService, streamService *services.BattleStreamService) {
	secured := middleware.UserContextMiddleware()

	app.Get("/battles", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "20"))
		battles, err := votingService.ListBattles(c.UserContext(),
			models.Category(c.Query("category")), models.BattleStatus(c.Query("status")), limit)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"battles": battles, "count": len(battles)})
	})

	app.Get("/battles/:id", func(c *fiber.Ctx) error {
		battle, err := votingService.GetBattle(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(battle)
	})

	app.Get("/battles/:id/stream", streamService.StreamBattleSSE)

	app.Post("/battles", secured, func(c *fiber.Ctx) error {
		var req manualBattleRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		battle, err := matchingService.CreateManualBattle(c.UserContext(), middleware.UserID(c), req.ContenderAID, req.ContenderBID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(battle)
	})

	app.Post("/battles/:id/votes", secured, func(c *fiber.Ctx) error {
		var req voteRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		res, err := votingService.CastVote(c.UserContext(), c.Params("id"), req.Side, middleware.UserID(c))
		if err != nil {
			return err
		}
		if !res.Success {
			extra := fiber.Map{}
			if res.PreviousSide != "" {
				extra["previousSide"] = res.PreviousSide
			}
			return reasonResponse(c, res.Reason, extra)
		}
		return c.JSON(res)
	})

	app.Post("/matching/run", secured, func(c *fiber.Ctx) error {
		var req runMatchingRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
			}
		}
		if req.Force && !middleware.HasRole(c, middleware.RoleAdmin) {
			return fiber.NewError(fiber.StatusForbidden, "force matching requires the admin role")
		}

		res, err := matchingService.RunSmartMatching(c.UserContext(), req.MaxMatches, req.Force)
		if err != nil {
			return err
		}
		if !res.Success {
			extra := fiber.Map{"matchesCreated": 0, "skipped": res.Skipped}
			if res.NextMatchingTime != nil {
				extra["nextMatchingTime"] = res.NextMatchingTime
			}
			return reasonResponse(c, res.Reason, extra)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	})

	app.Get("/matching/stats", func(c *fiber.Ctx) error {
		stats, err := matchingService.GetMatchingStatistics(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(stats)
	})
}
