package handlers

import (
	"strings"

	"battle-seoul/middleware"
	"battle-seoul/models"
	"battle-seoul/services"
	"battle-seoul/utils"

	"github.com/gofiber/fiber/v2"
)

type createContenderRequest struct {
	Title    string          `json:"title" form:"title"`
	Category models.Category `json:"category" form:"category"`
	Platform models.Platform `json:"platform" form:"platform"`
	Link     string          `json:"link" form:"link"`
}

type engagementRequest struct {
	Likes int64 `json:"likes"`
	Views int64 `json:"views"`
}

func SetupContenderRoutes(app *fiber.App, contenderService *services.ContenderService) {
	secured := middleware.UserContextMiddleware()

	app.Get("/contenders", func(c *fiber.Ctx) error {
		list, err := contenderService.ListAvailable(c.UserContext(), models.Category(c.Query("category")))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"contenders": list, "count": len(list)})
	})

	app.Get("/contenders/:id", func(c *fiber.Ctx) error {
		contender, err := contenderService.GetContender(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(contender)
	})

	// Accepts JSON with a link, or multipart with an "image" file for image contenders.
	app.Post("/contenders", secured, func(c *fiber.Ctx) error {
		var req createContenderRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		input := services.ContenderInput{
			CreatorID: middleware.UserID(c),
			Title:     req.Title,
			Category:  req.Category,
			Platform:  req.Platform,
			Link:      req.Link,
		}

		if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
			if fileHeader, err := c.FormFile("image"); err == nil {
				data, contentType, ext, err := utils.ReadImageUpload(fileHeader)
				if err != nil {
					return err
				}
				input.Platform = models.PlatformImage
				input.Image = data
				input.ImageContentType = contentType
				input.ImageExt = ext
			}
		}

		contender, err := contenderService.CreateContender(c.UserContext(), input)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(contender)
	})

	app.Post("/contenders/:id/engagement", secured, func(c *fiber.Ctx) error {
		var req engagementRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		contender, err := contenderService.RecordEngagement(c.UserContext(), c.Params("id"), req.Likes, req.Views)
		if err != nil {
			return err
		}
		return c.JSON(contender)
	})
}
