package server

import (
	"slices"

	"garagebook/internal/models"

	"github.com/gofiber/fiber/v2"
)

// NotificationsResponse is the caller's notification list with its unread count.
type NotificationsResponse struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int64                 `json:"unread"`
}

// GetNotifications lists the caller's notifications, newest first.
// @Summary List notifications
// @Tags notifications
// @Success 200 {object} NotificationsResponse
// @Router /notifications [get]
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	list, err := s.garage.Notifications(ctx, userID)
	if err != nil {
		return respondError(c, err)
	}
	if list == nil {
		list = []models.Notification{}
	}
	unread, err := s.garage.UnreadCount(ctx, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(NotificationsResponse{Notifications: list, Unread: unread})
}

// MarkNotificationRead marks one of the caller's notifications read. Another
// member's notification is reported as not found.
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()

	list, err := s.garage.Notifications(ctx, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	if !slices.ContainsFunc(list, func(n models.Notification) bool { return n.ID == id }) {
		return notFound(c, "Notification", id)
	}

	if err := s.garage.MarkNotificationAsRead(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"id": id, "read": true})
}

func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	n, err := s.garage.MarkAllNotificationsAsRead(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"updated": n})
}
