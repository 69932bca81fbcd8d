package api

import (
	"account-service/internal/apperr"
	"account-service/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ActivityHandler struct {
	activity service.ActivityService
}

func NewActivityHandler(activity service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

func (h *ActivityHandler) Recent(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return apperr.Auth("Unauthorized request", err)
	}

	events, err := h.activity.RecentActivity(c.UserContext(), userID, c.QueryInt("limit", service.DefaultActivityLimit))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(NewApiResponse(fiber.StatusOK, events, "Account activity fetched successfully"))
}
