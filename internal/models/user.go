// Package models contains data structures for the application's domain models.
package models

import (
	"slices"
	"time"
)

// User is a registered GarageBook member.
type User struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Username  string    `gorm:"index;size:64;not null" json:"username"`
	Email     string    `gorm:"index;size:254;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	FullName  string    `json:"fullName"`
	Bio       string    `json:"bio"`
	Avatar    string    `json:"avatar"`
	JoinDate  string    `gorm:"size:10" json:"joinDate"`
	Followers []string  `gorm:"serializer:json" json:"followers"`
	Following []string  `gorm:"serializer:json" json:"following"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Clone returns a deep copy so callers cannot reach shared slices.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.Followers = cloneStrings(u.Followers)
	out.Following = cloneStrings(u.Following)
	return &out
}

// Public returns a copy with the password hash removed.
func (u *User) Public() *User {
	out := u.Clone()
	if out != nil {
		out.Password = ""
	}
	return out
}

// ProfilePatch holds the profile fields a user may change. Nil fields are left untouched.
type ProfilePatch struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	FullName *string `json:"fullName,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

// Apply merges the patch into u.
func (p ProfilePatch) Apply(u *User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.FullName == nil && p.Bio == nil && p.Avatar == nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return slices.Clone(in)
}
