package models

import "time"

// NotificationKind names what an actor did.
type NotificationKind string

const (
	NotificationLike    NotificationKind = "like"
	NotificationComment NotificationKind = "comment"
	NotificationFollow  NotificationKind = "follow"
)

// Valid reports whether k is one of the known kinds.
func (k NotificationKind) Valid() bool {
	switch k {
	case NotificationLike, NotificationComment, NotificationFollow:
		return true
	}
	return false
}

// Notification tells a recipient that someone liked, commented or followed.
type Notification struct {
	ID            string           `gorm:"primaryKey;size:64" json:"id"`
	RecipientID   string           `gorm:"index;size:64;not null" json:"recipientUserId"`
	Kind          NotificationKind `gorm:"size:16;not null" json:"kind"`
	ActorID       string           `gorm:"size:64" json:"actorUserId"`
	ActorUsername string           `json:"actorUsername"`
	VehicleID     string           `gorm:"size:64" json:"vehicleId,omitempty"`
	VehicleName   string           `json:"vehicleName,omitempty"`
	Message       string           `json:"message"`
	CreatedAt     time.Time        `gorm:"index" json:"createdAt"`
	Read          bool             `gorm:"index" json:"read"`
}

// NotificationInput is everything but the id, timestamp and read flag.
type NotificationInput struct {
	RecipientID   string           `json:"recipientUserId"`
	Kind          NotificationKind `json:"kind"`
	ActorID       string           `json:"actorUserId"`
	ActorUsername string           `json:"actorUsername"`
	VehicleID     string           `json:"vehicleId,omitempty"`
	VehicleName   string           `json:"vehicleName,omitempty"`
	Message       string           `json:"message"`
}
