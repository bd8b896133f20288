package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/communityhq/opportunity-board/services"
)

type TagHandler struct {
	Service *services.TagService
}

func NewTagHandler(service *services.TagService) *TagHandler {
	return &TagHandler{Service: service}
}

func (h *TagHandler) List(c *fiber.Ctx) error {
	tags, err := h.Service.ListTags(c.Context())
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    tags,
		"count":   len(tags),
	})
}

type createTagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (h *TagHandler) Create(c *fiber.Ctx) error {
	if _, err := memberIDFromRequest(c); err != nil {
		return respondError(c, err)
	}

	var req createTagRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	tag, err := h.Service.CreateTag(c.Context(), req.Name, req.Color)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    tag,
	})
}
