// Package validation holds the form rules applied before input reaches the stores.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"garagebook/internal/models"
)

const (
	MinPasswordLength = 6
	MinVehicleYear    = 1900
	MaxCommentLength  = 2000
)

var (
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_.]{3,30}$`)
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Registration is the register form.
type Registration struct {
	Username        string
	Email           string
	FullName        string
	Password        string
	ConfirmPassword string
}

// ValidateRegistration checks the register form in the order the form reports problems.
func ValidateRegistration(r Registration) error {
	if err := required(map[string]string{
		"username": r.Username,
		"email":    r.Email,
		"fullName": r.FullName,
	}, "username", "email", "fullName"); err != nil {
		return err
	}
	if err := ValidatePassword(r.Password, r.ConfirmPassword); err != nil {
		return err
	}
	if err := ValidateUsername(r.Username); err != nil {
		return err
	}
	return ValidateEmail(r.Email)
}

// ValidatePassword enforces the minimum length and that the confirmation matches.
func ValidatePassword(password, confirm string) error {
	if password != confirm {
		return models.NewValidationError("Passwords do not match")
	}
	if len(password) < MinPasswordLength {
		return models.NewValidationError(fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength))
	}
	return nil
}

func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return models.NewValidationError("Username must be 3-30 characters of letters, numbers, underscores or dots")
	}
	return nil
}

func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return models.NewValidationError("Email address is invalid")
	}
	return nil
}

// ValidateProfile checks the fields a settings form is changing.
func ValidateProfile(p models.ProfilePatch) error {
	if p.Username != nil {
		if err := ValidateUsername(*p.Username); err != nil {
			return err
		}
	}
	if p.Email != nil {
		if err := ValidateEmail(*p.Email); err != nil {
			return err
		}
	}
	if p.FullName != nil && strings.TrimSpace(*p.FullName) == "" {
		return models.NewValidationError("fullName is required")
	}
	return nil
}

// ValidateVehicle checks the vehicle form. now bounds the model year.
func ValidateVehicle(in models.VehicleInput, now time.Time) error {
	if err := required(map[string]string{
		"make":         in.Make,
		"model":        in.Model,
		"color":        in.Color,
		"engine":       in.Engine,
		"transmission": in.Transmission,
		"drivetrain":   in.Drivetrain,
		"description":  in.Description,
	}, "make", "model", "color", "engine", "transmission", "drivetrain", "description"); err != nil {
		return err
	}
	return ValidateYear(in.Year, now)
}

// ValidateVehiclePatch applies the vehicle rules to the fields being changed.
func ValidateVehiclePatch(p models.VehiclePatch, now time.Time) error {
	fields := map[string]*string{
		"make":         p.Make,
		"model":        p.Model,
		"color":        p.Color,
		"engine":       p.Engine,
		"transmission": p.Transmission,
		"drivetrain":   p.Drivetrain,
		"description":  p.Description,
	}
	for _, name := range []string{"make", "model", "color", "engine", "transmission", "drivetrain", "description"} {
		if v := fields[name]; v != nil && strings.TrimSpace(*v) == "" {
			return models.NewValidationError(name + " is required")
		}
	}
	if p.Year != nil {
		return ValidateYear(*p.Year, now)
	}
	return nil
}

func ValidateYear(year int, now time.Time) error {
	maxYear := now.Year() + 1
	if year < MinVehicleYear || year > maxYear {
		return models.NewValidationError(fmt.Sprintf("year must be between %d and %d", MinVehicleYear, maxYear))
	}
	return nil
}

// NormalizeComment trims text and rejects empty or oversized comments.
func NormalizeComment(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", models.NewValidationError("Comment cannot be empty")
	}
	if len(text) > MaxCommentLength {
		return "", models.NewValidationError(fmt.Sprintf("Comment must be at most %d characters", MaxCommentLength))
	}
	return text, nil
}

// CleanList trims entries and drops empty ones. Used for modifications and image URLs.
func CleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func required(values map[string]string, order ...string) error {
	for _, name := range order {
		if strings.TrimSpace(values[name]) == "" {
			return models.NewValidationError(name + " is required")
		}
	}
	return nil
}
