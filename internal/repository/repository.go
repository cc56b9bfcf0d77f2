// Package repository implements the data access layer behind the identity and social stores.
package repository

import (
	"context"

	"garagebook/internal/models"
)

// UserRepository defines persistence operations for the user directory.
type UserRepository interface {
	// Create fails with models.ErrUserExists when the username or email is taken.
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByEmail and GetByUsername return (nil, nil) on a miss.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	// List returns users in registration order.
	List(ctx context.Context, limit, offset int) ([]models.User, error)
}

// VehicleRepository defines persistence operations for vehicles, their likes and comments.
// Listing order is newest first.
type VehicleRepository interface {
	Create(ctx context.Context, vehicle *models.Vehicle) error
	GetByID(ctx context.Context, id string) (*models.Vehicle, error)
	List(ctx context.Context) ([]models.Vehicle, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Vehicle, error)
	// Update writes the descriptive fields. Likes, comments, owner and createdAt are untouched.
	Update(ctx context.Context, vehicle *models.Vehicle) error
	// Delete is idempotent.
	Delete(ctx context.Context, id string) error
	// ToggleLike adds userID to the likes set or removes it, reporting the new state.
	ToggleLike(ctx context.Context, vehicleID, userID string) (bool, error)
	AppendComment(ctx context.Context, vehicleID string, comment *models.Comment) error
}

// NotificationRepository defines persistence operations for notifications. Listing order is newest first.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	// ListByRecipient returns every notification when recipientID is empty.
	ListByRecipient(ctx context.Context, recipientID string) ([]models.Notification, error)
	// MarkRead reports whether a notification with id exists.
	MarkRead(ctx context.Context, id string) (bool, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
}

// Set bundles the three repositories of one backend.
type Set struct {
	Users         UserRepository
	Vehicles      VehicleRepository
	Notifications NotificationRepository
}
