package service

import (
	"context"

	"garagebook/internal/models"
)

// ActivityHook receives social side effects after the Garage has applied them.
// Errors are logged and never undo the mutation.
type ActivityHook interface {
	VehicleLiked(ctx context.Context, vehicle *models.Vehicle, userID string, liked bool) error
	CommentAdded(ctx context.Context, vehicle *models.Vehicle, comment *models.Comment) error
	FollowChanged(ctx context.Context, userID, targetID string, following bool) error
}

// NopHook ignores every event.
type NopHook struct{}

func (NopHook) VehicleLiked(context.Context, *models.Vehicle, string, bool) error     { return nil }
func (NopHook) CommentAdded(context.Context, *models.Vehicle, *models.Comment) error { return nil }
func (NopHook) FollowChanged(context.Context, string, string, bool) error            { return nil }

// HookFuncs adapts plain functions to ActivityHook. Nil fields are skipped.
type HookFuncs struct {
	OnVehicleLiked  func(ctx context.Context, vehicle *models.Vehicle, userID string, liked bool) error
	OnCommentAdded  func(ctx context.Context, vehicle *models.Vehicle, comment *models.Comment) error
	OnFollowChanged func(ctx context.Context, userID, targetID string, following bool) error
}

func (h HookFuncs) VehicleLiked(ctx context.Context, v *models.Vehicle, userID string, liked bool) error {
	if h.OnVehicleLiked == nil {
		return nil
	}
	return h.OnVehicleLiked(ctx, v, userID, liked)
}

func (h HookFuncs) CommentAdded(ctx context.Context, v *models.Vehicle, c *models.Comment) error {
	if h.OnCommentAdded == nil {
		return nil
	}
	return h.OnCommentAdded(ctx, v, c)
}

func (h HookFuncs) FollowChanged(ctx context.Context, userID, targetID string, following bool) error {
	if h.OnFollowChanged == nil {
		return nil
	}
	return h.OnFollowChanged(ctx, userID, targetID, following)
}
