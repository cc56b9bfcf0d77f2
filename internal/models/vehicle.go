package models

import (
	"fmt"
	"slices"
	"time"
)

// Vehicle is one car listed in a user's garage.
type Vehicle struct {
	ID            string    `gorm:"primaryKey;size:64" json:"id"`
	OwnerID       string    `gorm:"index;size:64;not null" json:"ownerId"`
	Make          string    `gorm:"index;size:64" json:"make"`
	Model         string    `gorm:"size:128" json:"model"`
	Year          int       `json:"year"`
	Color         string    `json:"color"`
	Engine        string    `json:"engine"`
	Transmission  string    `json:"transmission"`
	Drivetrain    string    `json:"drivetrain"`
	Modifications []string  `gorm:"serializer:json" json:"modifications"`
	Description   string    `json:"description"`
	Images        []string  `gorm:"serializer:json" json:"images"`
	Likes         []string  `gorm:"-" json:"likes"`
	Comments      []Comment `gorm:"foreignKey:VehicleID;constraint:OnDelete:CASCADE" json:"comments"`
	CreatedAt     time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time `json:"-"`
}

// DisplayName renders the vehicle the way notifications refer to it, e.g. "1998 Toyota Supra".
func (v *Vehicle) DisplayName() string {
	return fmt.Sprintf("%d %s %s", v.Year, v.Make, v.Model)
}

// LikedBy reports whether userID is in the likes set.
func (v *Vehicle) LikedBy(userID string) bool {
	return slices.Contains(v.Likes, userID)
}

// Clone returns a deep copy of the vehicle including its comments.
func (v *Vehicle) Clone() *Vehicle {
	if v == nil {
		return nil
	}
	out := *v
	out.Modifications = cloneStrings(v.Modifications)
	out.Images = cloneStrings(v.Images)
	out.Likes = cloneStrings(v.Likes)
	out.Comments = slices.Clone(v.Comments)
	if out.Comments == nil {
		out.Comments = []Comment{}
	}
	return &out
}

// VehicleLike is one row of the likes set in relational storage.
type VehicleLike struct {
	VehicleID string    `gorm:"primaryKey;size:64"`
	UserID    string    `gorm:"primaryKey;size:64"`
	CreatedAt time.Time `gorm:"index"`
}

// TableName pins the join table name.
func (VehicleLike) TableName() string {
	return "vehicle_likes"
}

// VehicleInput carries the owner-supplied fields of a new vehicle.
type VehicleInput struct {
	OwnerID       string   `json:"ownerId"`
	Make          string   `json:"make"`
	Model         string   `json:"model"`
	Year          int      `json:"year"`
	Color         string   `json:"color"`
	Engine        string   `json:"engine"`
	Transmission  string   `json:"transmission"`
	Drivetrain    string   `json:"drivetrain"`
	Modifications []string `json:"modifications"`
	Description   string   `json:"description"`
	Images        []string `json:"images"`
}

// VehiclePatch is a partial update. Identity, owner, likes, comments and
// creation time are not patchable.
type VehiclePatch struct {
	Make          *string   `json:"make,omitempty"`
	Model         *string   `json:"model,omitempty"`
	Year          *int      `json:"year,omitempty"`
	Color         *string   `json:"color,omitempty"`
	Engine        *string   `json:"engine,omitempty"`
	Transmission  *string   `json:"transmission,omitempty"`
	Drivetrain    *string   `json:"drivetrain,omitempty"`
	Modifications *[]string `json:"modifications,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Images        *[]string `json:"images,omitempty"`
}

// Apply merges the patch into v.
func (p VehiclePatch) Apply(v *Vehicle) {
	if p.Make != nil {
		v.Make = *p.Make
	}
	if p.Model != nil {
		v.Model = *p.Model
	}
	if p.Year != nil {
		v.Year = *p.Year
	}
	if p.Color != nil {
		v.Color = *p.Color
	}
	if p.Engine != nil {
		v.Engine = *p.Engine
	}
	if p.Transmission != nil {
		v.Transmission = *p.Transmission
	}
	if p.Drivetrain != nil {
		v.Drivetrain = *p.Drivetrain
	}
	if p.Modifications != nil {
		v.Modifications = cloneStrings(*p.Modifications)
	}
	if p.Description != nil {
		v.Description = *p.Description
	}
	if p.Images != nil {
		v.Images = cloneStrings(*p.Images)
	}
}
