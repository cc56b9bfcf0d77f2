package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"garagebook/internal/middleware"
	"garagebook/internal/models"
	"garagebook/internal/session"
)

// Identity tracks the one signed-in member of a single-user client and keeps
// the persisted current-user record in step with it.
type Identity struct {
	dir      *Directory
	sessions session.Store

	mu      sync.RWMutex
	current *models.User
}

func NewIdentity(dir *Directory, sessions session.Store) *Identity {
	return &Identity{dir: dir, sessions: sessions}
}

// Restore loads the persisted record. No record means logged out. A record
// that cannot be decoded is discarded and also means logged out.
func (i *Identity) Restore(ctx context.Context) error {
	user, err := i.sessions.Load(ctx)
	if errors.Is(err, session.ErrCorrupt) {
		middleware.Logger.WarnContext(ctx, "discarding unreadable session", slog.String("error", err.Error()))
		if clearErr := i.sessions.Clear(ctx); clearErr != nil {
			return clearErr
		}
		user, err = nil, nil
	}
	if err != nil {
		return err
	}

	i.mu.Lock()
	i.current = user
	i.mu.Unlock()
	return nil
}

// CurrentUser returns a copy of the signed-in member, or nil.
func (i *Identity) CurrentUser() *models.User {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.current.Clone()
}

// Login signs in the member with the given credentials.
func (i *Identity) Login(ctx context.Context, email, password string) error {
	user, err := i.dir.Authenticate(ctx, email, password)
	if err != nil {
		return err
	}
	return i.setCurrent(ctx, user)
}

// Register adds a member and signs them in.
func (i *Identity) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	user, err := i.dir.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := i.setCurrent(ctx, user); err != nil {
		return nil, err
	}
	return user.Clone(), nil
}

// Logout forgets the current member and the persisted record.
func (i *Identity) Logout(ctx context.Context) error {
	i.mu.Lock()
	i.current = nil
	i.mu.Unlock()
	return i.sessions.Clear(ctx)
}

// UpdateProfile patches the directory entry and then commits the merged
// member locally. A rejected patch leaves the current member and the persisted
// record untouched. The directory entry may be gone; that is not an error.
func (i *Identity) UpdateProfile(ctx context.Context, patch models.ProfilePatch) (*models.User, error) {
	i.mu.RLock()
	if i.current == nil {
		i.mu.RUnlock()
		return nil, models.ErrNotAuthenticated
	}
	updated := i.current.Clone()
	i.mu.RUnlock()
	patch.Apply(updated)

	if _, err := i.dir.Patch(ctx, updated.ID, patch); err != nil && !models.IsNotFound(err) {
		return nil, err
	}
	if err := i.sessions.Save(ctx, updated); err != nil {
		return nil, models.NewInternalError(err)
	}

	i.mu.Lock()
	i.current = updated
	i.mu.Unlock()
	return updated.Clone(), nil
}

func (i *Identity) setCurrent(ctx context.Context, user *models.User) error {
	i.mu.Lock()
	i.current = user.Public()
	i.mu.Unlock()

	if err := i.sessions.Save(ctx, user); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
