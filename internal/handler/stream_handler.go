package handler

import (
	"eaglearn-be/internal/broker"
	"eaglearn-be/internal/pkg/logger"
	"eaglearn-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// StreamHandler upgrades HTTP requests to websocket connections managed by
// the hub. Inbound observation submissions on the socket are forwarded to
// the monitor service.
type StreamHandler struct {
	hub            *broker.Hub
	monitorService service.IMonitorService
	logger         logger.ILogger
}

func NewStreamHandler(hub *broker.Hub, monitorService service.IMonitorService, log logger.ILogger) *StreamHandler {
	return &StreamHandler{
		hub:            hub,
		monitorService: monitorService,
		logger:         log,
	}
}

func (h *StreamHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.ServeWs)
}

func (h *StreamHandler) ServeWs(c *fiber.Ctx) error {
	if c.Query("channel") == "" {
		return fiber.NewError(fiber.StatusBadRequest, "query parameter 'channel' is required")
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("StreamHandler", "Websocket session starting", map[string]interface{}{
				"channel": conn.Query("channel"),
			})
			broker.ServeWs(h.hub, h.monitorService, conn)
			h.logger.Info("StreamHandler", "Websocket session ended", map[string]interface{}{
				"channel": conn.Query("channel"),
			})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}
