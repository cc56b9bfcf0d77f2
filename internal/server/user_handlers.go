package server

import (
	"strings"

	"garagebook/internal/models"
	"garagebook/internal/service"
	"garagebook/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// UserStats is a member's garage summary plus their follow counts.
type UserStats struct {
	service.GarageStats
	Followers int `json:"followers"`
	Following int `json:"following"`
}

// GetAllUsers lists members.
// @Summary List members
// @Tags users
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {array} models.User
// @Router /users [get]
func (s *Server) GetAllUsers(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	users, err := s.directory.ListUsers(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.directory.GetUserByID(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile merges the supplied fields into the caller's profile.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var patch models.ProfilePatch
	if err := bindJSON(c, &patch); err != nil {
		return nil
	}
	trim(patch.Username)
	trim(patch.Email)
	trim(patch.FullName)

	if err := validation.ValidateProfile(patch); err != nil {
		return respondError(c, err)
	}

	user, err := s.directory.Patch(c.UserContext(), currentUserID(c), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.directory.GetUserByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetUserVehicles lists a member's garage. Unknown members have an empty garage.
func (s *Server) GetUserVehicles(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	vs, err := s.garage.VehiclesByUser(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(vs)
}

func (s *Server) GetUserStats(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.directory.GetUserByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	stats, err := s.garage.Stats(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(UserStats{
		GarageStats: *stats,
		Followers:   len(user.Followers),
		Following:   len(user.Following),
	})
}

// FollowUser follows another member. What that changes is up to the activity hook.
func (s *Server) FollowUser(c *fiber.Ctx) error {
	return s.changeFollow(c, true)
}

func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	return s.changeFollow(c, false)
}

func (s *Server) changeFollow(c *fiber.Ctx, follow bool) error {
	targetID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	userID := currentUserID(c)
	if targetID == userID {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("You cannot follow yourself"))
	}
	if _, err := s.directory.GetUserByID(c.UserContext(), targetID); err != nil {
		return respondError(c, err)
	}

	if follow {
		err = s.garage.FollowUser(c.UserContext(), userID, targetID)
	} else {
		err = s.garage.UnfollowUser(c.UserContext(), userID, targetID)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"following": follow})
}

func trim(p *string) {
	if p != nil {
		*p = strings.TrimSpace(*p)
	}
}
