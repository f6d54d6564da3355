package controller

import (
	"errors"

	"eaglearn-be/internal/dto"
	"eaglearn-be/internal/pkg/serverutils"
	"eaglearn-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ICalibrationController interface {
	RegisterRoutes(r fiber.Router)
	Start(ctx *fiber.Ctx) error
	Complete(ctx *fiber.Ctx) error
	ShowActive(ctx *fiber.Ctx) error
}

type calibrationController struct {
	calibrationService service.ICalibrationService
}

func NewCalibrationController(calibrationService service.ICalibrationService) ICalibrationController {
	return &calibrationController{
		calibrationService: calibrationService,
	}
}

func (c *calibrationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/calibration/v1")
	h.Post("", c.Start)
	h.Post(":id/complete", c.Complete)
	h.Get("active/:user_id", c.ShowActive)
}

func (c *calibrationController) Start(ctx *fiber.Ctx) error {
	var req dto.StartCalibrationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.calibrationService.Start(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success start calibration", res))
}

func (c *calibrationController) Complete(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid calibration id")
	}

	var req dto.CompleteCalibrationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	req.Id = id
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.calibrationService.Complete(ctx.Context(), &req)
	if err != nil {
		return mapCalibrationError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success complete calibration", res))
}

func (c *calibrationController) ShowActive(ctx *fiber.Ctx) error {
	res, err := c.calibrationService.ShowActive(ctx.Context(), ctx.Params("user_id"))
	if err != nil {
		return mapCalibrationError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show active calibration", res))
}

func mapCalibrationError(err error) error {
	switch {
	case errors.Is(err, service.ErrCalibrationNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrCalibrationCompleted):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return err
}
