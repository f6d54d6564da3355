package controller

import (
	"errors"

	"eaglearn-be/internal/dto"
	"eaglearn-be/internal/fusion"
	"eaglearn-be/internal/pkg/serverutils"
	"eaglearn-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Start(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	SubmitObservation(ctx *fiber.Ctx) error
	End(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type sessionController struct {
	monitorService service.IMonitorService
}

func NewSessionController(monitorService service.IMonitorService) ISessionController {
	return &sessionController{
		monitorService: monitorService,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/session/v1")
	h.Post("", c.Start)
	h.Get("", c.List)
	h.Get(":id", c.Show)
	h.Post(":id/observations", c.SubmitObservation)
	h.Post(":id/end", c.End)
	h.Delete(":id", c.Delete)
}

func (c *sessionController) Start(ctx *fiber.Ctx) error {
	var req dto.StartSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	res, err := c.monitorService.StartSession(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success start session", res))
}

func (c *sessionController) Show(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	res, err := c.monitorService.ShowSession(ctx.Context(), id)
	if err != nil {
		return mapSessionError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show session", res))
}

func (c *sessionController) List(ctx *fiber.Ctx) error {
	page := ctx.QueryInt("page", 1)
	limit := ctx.QueryInt("limit", 20)

	res, err := c.monitorService.ListSessions(ctx.Context(), page, limit)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list sessions", res))
}

// SubmitObservation returns accepted/rejected rather than an HTTP error for
// fusion-level rejections: stale or malformed readings are an expected part
// of a lossy signal stream.
func (c *sessionController) SubmitObservation(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	var req dto.SubmitObservationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	err = c.monitorService.SubmitObservation(ctx.Context(), id, req.Family, req.Payload, req.Confidence, req.CapturedAt)
	if err != nil {
		if isRejection(err) {
			return ctx.JSON(serverutils.SuccessResponse("Observation rejected", &dto.SubmitObservationResponse{
				Accepted: false,
				Reason:   err.Error(),
			}))
		}
		return mapSessionError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Observation accepted", &dto.SubmitObservationResponse{
		Accepted: true,
	}))
}

func (c *sessionController) End(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	if err := c.monitorService.EndSession(ctx.Context(), id); err != nil {
		return mapSessionError(err)
	}

	res, err := c.monitorService.ShowSession(ctx.Context(), id)
	if err != nil {
		return mapSessionError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success end session", &dto.EndSessionResponse{
		Id:      res.Id,
		EndedAt: res.EndedAt,
	}))
}

func (c *sessionController) Delete(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	if err := c.monitorService.DeleteSession(ctx.Context(), id); err != nil {
		return mapSessionError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete session", nil))
}

func isRejection(err error) bool {
	return errors.Is(err, fusion.ErrStaleObservation) ||
		errors.Is(err, fusion.ErrInvalidFamily) ||
		errors.Is(err, fusion.ErrInvalidPayload) ||
		errors.Is(err, fusion.ErrInvalidConfidence)
}

func mapSessionError(err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSessionEnded):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrSessionActive):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return err
}
