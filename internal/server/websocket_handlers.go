package server

import (
	"encoding/json"
	"log/slog"

	"garagebook/internal/featureflags"
	"garagebook/internal/middleware"
	"garagebook/internal/models"
	"garagebook/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type inboundFrame struct {
	Type string `json:"type"`
}

// WebSocketUpgrade rejects plain HTTP requests and members outside the realtime rollout.
func (s *Server) WebSocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return models.RespondWithError(c, fiber.StatusUpgradeRequired,
			models.NewValidationError("WebSocket upgrade required"))
	}
	if !s.featureFlags.Enabled(featureflags.RealtimeFeed, currentUserID(c)) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Realtime feed is not enabled for this account"))
	}
	return c.Next()
}

// WebSocketHandler streams notifications and store changes to the caller.
// Clients may send {"type":"ping"} and get {"type":"pong"} back.
func (s *Server) WebSocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(string)
		if userID == "" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket register failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
			msg, _ := json.Marshal(fiber.Map{"error": err.Error()})
			_ = conn.WriteMessage(websocket.TextMessage, msg)
			_ = conn.Close()
			return
		}

		client.IncomingHandler = func(c *notifications.Client, message []byte) {
			var frame inboundFrame
			if err := json.Unmarshal(message, &frame); err != nil {
				return
			}
			if frame.Type == "ping" {
				c.TrySend([]byte(`{"type":"pong"}`))
			}
		}

		hello, _ := json.Marshal(notifications.Message{
			Type:    "connected",
			Payload: fiber.Map{"userId": userID},
		})
		client.TrySend(hello)

		go client.WritePump()
		client.ReadPump()
	})
}
