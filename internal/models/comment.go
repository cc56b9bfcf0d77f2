package models

import "time"

// Comment is an append-only remark on a vehicle. Author fields are a snapshot
// taken when the comment was written and are not refreshed on profile edits.
type Comment struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	VehicleID      string    `gorm:"index;size:64;not null" json:"-"`
	AuthorID       string    `gorm:"size:64;not null" json:"authorId"`
	AuthorUsername string    `json:"authorUsername"`
	AuthorAvatar   string    `json:"authorAvatar"`
	Text           string    `gorm:"type:text" json:"text"`
	CreatedAt      time.Time `gorm:"index" json:"createdAt"`
}
