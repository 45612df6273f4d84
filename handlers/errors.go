package handlers

import (
	"errors"

	"battle-seoul/models"
	"battle-seoul/services"
	"battle-seoul/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var reasonStatus = map[models.Reason]int{
	models.ReasonCooldown:               fiber.StatusTooManyRequests,
	models.ReasonInsufficientContenders: fiber.StatusUnprocessableEntity,
	models.ReasonNoValidMatches:         fiber.StatusUnprocessableEntity,
	models.ReasonAlreadyVoted:           fiber.StatusConflict,
	models.ReasonBattleEnded:            fiber.StatusGone,
	models.ReasonBattleNotFound:         fiber.StatusNotFound,
}

// StatusForReason maps an expected outcome code to its HTTP status.
func StatusForReason(r models.Reason) int {
	if code, ok := reasonStatus[r]; ok {
		return code
	}
	return fiber.StatusBadRequest
}

// reasonResponse writes a refused outcome with a localized message merged into extra.
func reasonResponse(c *fiber.Ctx, reason models.Reason, extra fiber.Map) error {
	body := fiber.Map{
		"success": false,
		"reason":  reason,
		"message": utils.ReasonMessage(utils.MatchLanguage(c.Get(fiber.HeaderAcceptLanguage)), reason),
	}
	for k, v := range extra {
		body[k] = v
	}
	return c.Status(StatusForReason(reason)).JSON(body)
}

// NewErrorHandler converts service errors into JSON responses.
func NewErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "internal server error"

		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			code, message = fe.Code, fe.Message
		case errors.Is(err, services.ErrInvalidInput),
			errors.Is(err, services.ErrInvalidSide),
			errors.Is(err, utils.ErrInvalidImage):
			code, message = fiber.StatusBadRequest, err.Error()
		case errors.Is(err, services.ErrContenderNotFound),
			errors.Is(err, services.ErrBattleNotFound):
			code, message = fiber.StatusNotFound, err.Error()
		case errors.Is(err, services.ErrForbidden):
			code, message = fiber.StatusForbidden, err.Error()
		case errors.Is(err, services.ErrContenderUnavailable),
			errors.Is(err, services.ErrVersionConflict):
			code, message = fiber.StatusConflict, err.Error()
		}

		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{"error": message})
	}
}
