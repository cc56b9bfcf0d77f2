// Package service holds the identity and social stores on top of the repositories.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"garagebook/internal/idgen"
	"garagebook/internal/middleware"
	"garagebook/internal/models"
	"garagebook/internal/observability"
	"garagebook/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost used for new password hashes.
var PasswordCost = bcrypt.DefaultCost

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return string(hashed), nil
}

// RegisterInput is what a new member supplies.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Bio      string `json:"bio"`
	Avatar   string `json:"avatar"`
	Password string `json:"password"`
}

// Directory is the registry of members. It holds no per-caller state, so the
// HTTP server uses it directly while the CLI goes through Identity.
type Directory struct {
	users repository.UserRepository
	now   func() time.Time
}

func NewDirectory(users repository.UserRepository) *Directory {
	return &Directory{users: users, now: time.Now}
}

// Authenticate returns the member whose email and password match. Unknown
// email and wrong password both yield models.ErrInvalidCredentials.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := d.users.GetByEmail(ctx, email)
	if err != nil {
		observability.AuthAttemptsTotal.WithLabelValues("login", "error").Inc()
		return nil, err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		observability.AuthAttemptsTotal.WithLabelValues("login", "rejected").Inc()
		return nil, models.ErrInvalidCredentials
	}
	observability.AuthAttemptsTotal.WithLabelValues("login", "ok").Inc()
	return user.Public(), nil
}

// Register adds a member. It fails with models.ErrUserExists when the email
// or the username is already registered and leaves the directory unchanged.
func (d *Directory) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := d.ensureAvailable(ctx, in.Email, in.Username); err != nil {
		observability.AuthAttemptsTotal.WithLabelValues("register", "rejected").Inc()
		return nil, err
	}

	hashed, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := d.now().UTC()
	user := &models.User{
		ID:        idgen.New(),
		Username:  in.Username,
		Email:     in.Email,
		Password:  hashed,
		FullName:  in.FullName,
		Bio:       in.Bio,
		Avatar:    in.Avatar,
		JoinDate:  now.Format(time.DateOnly),
		Followers: []string{},
		Following: []string{},
		CreatedAt: now,
	}
	if err := d.users.Create(ctx, user); err != nil {
		outcome := "error"
		if errors.Is(err, models.ErrUserExists) {
			outcome = "rejected"
		}
		observability.AuthAttemptsTotal.WithLabelValues("register", outcome).Inc()
		return nil, err
	}

	observability.AuthAttemptsTotal.WithLabelValues("register", "ok").Inc()
	middleware.Logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID), slog.String("username", user.Username))
	return user.Public(), nil
}

func (d *Directory) ensureAvailable(ctx context.Context, email, username string) error {
	byEmail, err := d.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	byName, err := d.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if byEmail != nil || byName != nil {
		return models.ErrUserExists
	}
	return nil
}

// Patch merges the non-nil fields of patch into the member's entry.
// Uniqueness is not re-checked; two members may end up sharing a username.
func (d *Directory) Patch(ctx context.Context, id string, patch models.ProfilePatch) (*models.User, error) {
	user, err := d.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return user.Public(), nil
	}
	patch.Apply(user)
	if err := d.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user.Public(), nil
}

// GetUserByID returns the member without the password hash.
func (d *Directory) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := d.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

// ListUsers returns a page of members in join order, password hashes stripped.
func (d *Directory) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	users, err := d.users.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Password = ""
	}
	return users, nil
}
