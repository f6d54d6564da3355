package controller

import (
	"time"

	"eaglearn-be/internal/pkg/serverutils"
	"eaglearn-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IDashboardController interface {
	RegisterRoutes(r fiber.Router)
	SessionSummary(ctx *fiber.Ctx) error
}

type dashboardController struct {
	dashboardService service.IDashboardService
}

func NewDashboardController(dashboardService service.IDashboardService) IDashboardController {
	return &dashboardController{
		dashboardService: dashboardService,
	}
}

func (c *dashboardController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/dashboard/v1")
	h.Get("sessions/:id/summary", c.SessionSummary)
}

func (c *dashboardController) SessionSummary(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	// default to the last 24 hours
	to := time.Now().UTC()
	from := to.Add(-24 * time.Hour)
	if v := ctx.Query("from"); v != "" {
		if from, err = time.Parse(time.RFC3339, v); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid 'from' timestamp")
		}
	}
	if v := ctx.Query("to"); v != "" {
		if to, err = time.Parse(time.RFC3339, v); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid 'to' timestamp")
		}
	}

	res, err := c.dashboardService.SessionSummary(ctx.Context(), id, from, to)
	if err != nil {
		return mapSessionError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success session summary", res))
}
