package server

import (
	"garagebook/internal/models"
	"garagebook/internal/service"
	"garagebook/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// CommentRequest is the body of AddComment.
type CommentRequest struct {
	Text string `json:"text"`
}

// LikeResponse reports the caller's like state after a toggle.
type LikeResponse struct {
	Liked   bool            `json:"liked"`
	Likes   int             `json:"likes"`
	Vehicle *models.Vehicle `json:"vehicle"`
}

// ExploreVehicles lists the collection filtered by ?q= and ?make=, sorted by ?sort=.
// @Summary Explore vehicles
// @Tags vehicles
// @Param q query string false "Search make, model or description"
// @Param make query string false "Exact make"
// @Param sort query string false "recent, popular or year"
// @Success 200 {object} service.ExploreResult
// @Router /vehicles [get]
func (s *Server) ExploreVehicles(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	sort := c.Query("sort", service.SortRecent)
	switch sort {
	case service.SortRecent, service.SortPopular, service.SortYear:
	default:
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("sort must be recent, popular or year"))
	}

	res, err := s.garage.Explore(c.UserContext(), service.ExploreQuery{
		Search: c.Query("q"),
		Make:   c.Query("make"),
		Sort:   sort,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// GetMakes lists the distinct makes for the explore filter.
func (s *Server) GetMakes(c *fiber.Ctx) error {
	makes, err := s.garage.Makes(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(makes)
}

func (s *Server) GetVehicle(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	v, err := s.garage.Vehicle(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	if v == nil {
		return notFound(c, "Vehicle", id)
	}
	return c.JSON(v)
}

// CreateVehicle adds a vehicle to the caller's garage. Any ownerId in the body is ignored.
// @Summary Add a vehicle
// @Tags vehicles
// @Accept json
// @Success 201 {object} models.Vehicle
// @Router /vehicles [post]
func (s *Server) CreateVehicle(c *fiber.Ctx) error {
	var in models.VehicleInput
	if err := bindJSON(c, &in); err != nil {
		return nil
	}
	in.OwnerID = currentUserID(c)
	in.Modifications = validation.CleanList(in.Modifications)
	in.Images = validation.CleanList(in.Images)

	if err := validation.ValidateVehicle(in, s.now()); err != nil {
		return respondError(c, err)
	}

	v, err := s.garage.AddVehicle(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(v)
}

// UpdateVehicle applies a partial update. Only the owner may edit.
func (s *Server) UpdateVehicle(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var patch models.VehiclePatch
	if err := bindJSON(c, &patch); err != nil {
		return nil
	}
	if patch.Modifications != nil {
		cleaned := validation.CleanList(*patch.Modifications)
		patch.Modifications = &cleaned
	}
	if patch.Images != nil {
		cleaned := validation.CleanList(*patch.Images)
		patch.Images = &cleaned
	}
	if err := validation.ValidateVehiclePatch(patch, s.now()); err != nil {
		return respondError(c, err)
	}

	if _, err := s.ownedVehicle(c, id); err != nil {
		return nil
	}

	v, err := s.garage.UpdateVehicle(c.UserContext(), id, patch)
	if err != nil {
		return respondError(c, err)
	}
	if v == nil {
		return notFound(c, "Vehicle", id)
	}
	return c.JSON(v)
}

// DeleteVehicle removes one of the caller's vehicles.
func (s *Server) DeleteVehicle(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.ownedVehicle(c, id); err != nil {
		return nil
	}
	if err := s.garage.DeleteVehicle(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// LikeVehicle toggles the caller's like.
// @Summary Like or unlike a vehicle
// @Tags vehicles
// @Success 200 {object} LikeResponse
// @Router /vehicles/{id}/like [post]
func (s *Server) LikeVehicle(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	userID := currentUserID(c)
	v, err := s.garage.LikeVehicle(c.UserContext(), id, userID)
	if err != nil {
		return respondError(c, err)
	}
	if v == nil {
		return notFound(c, "Vehicle", id)
	}
	return c.JSON(LikeResponse{Liked: v.LikedBy(userID), Likes: len(v.Likes), Vehicle: v})
}

// AddComment posts a comment as the caller. The comment keeps the caller's
// username and avatar as they are now.
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req CommentRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	text, err := validation.NormalizeComment(req.Text)
	if err != nil {
		return respondError(c, err)
	}

	author, err := s.directory.GetUserByID(c.UserContext(), currentUserID(c))
	if err != nil {
		if models.IsNotFound(err) {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Account no longer exists"))
		}
		return respondError(c, err)
	}

	comment, err := s.garage.AddComment(c.UserContext(), id, author.ID, author.Username, author.Avatar, text)
	if err != nil {
		return respondError(c, err)
	}
	if comment == nil {
		return notFound(c, "Vehicle", id)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// ownedVehicle loads the vehicle and checks the caller owns it. On failure it
// writes 404 or 403 and returns errResponseWritten.
func (s *Server) ownedVehicle(c *fiber.Ctx, id string) (*models.Vehicle, error) {
	v, err := s.garage.Vehicle(c.UserContext(), id)
	if err != nil {
		_ = respondError(c, err)
		return nil, errResponseWritten
	}
	if v == nil {
		_ = notFound(c, "Vehicle", id)
		return nil, errResponseWritten
	}
	if v.OwnerID != currentUserID(c) {
		_ = models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("You can only change your own vehicles"))
		return nil, errResponseWritten
	}
	return v, nil
}
