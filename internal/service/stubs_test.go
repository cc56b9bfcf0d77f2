package service

import (
	"context"

	"garagebook/internal/models"
	"garagebook/internal/repository"
)

// userRepoStub delegates to an in-memory repository unless a fn field overrides the call.
type userRepoStub struct {
	repository.UserRepository
	getByIDFn func(ctx context.Context, id string) (*models.User, error)
	updateFn  func(ctx context.Context, u *models.User) error
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{UserRepository: repository.NewMemoryUserRepository()}
}

func (s *userRepoStub) GetByID(ctx context.Context, id string) (*models.User, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return s.UserRepository.GetByID(ctx, id)
}

func (s *userRepoStub) Update(ctx context.Context, u *models.User) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, u)
	}
	return s.UserRepository.Update(ctx, u)
}

type vehicleRepoStub struct {
	repository.VehicleRepository
	listFn   func(ctx context.Context) ([]models.Vehicle, error)
	createFn func(ctx context.Context, v *models.Vehicle) error
}

func noopVehicleRepo() *vehicleRepoStub {
	return &vehicleRepoStub{VehicleRepository: repository.NewMemoryVehicleRepository()}
}

func (s *vehicleRepoStub) List(ctx context.Context) ([]models.Vehicle, error) {
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return s.VehicleRepository.List(ctx)
}

func (s *vehicleRepoStub) Create(ctx context.Context, v *models.Vehicle) error {
	if s.createFn != nil {
		return s.createFn(ctx, v)
	}
	return s.VehicleRepository.Create(ctx, v)
}

// recordingHook captures every activity event.
type recordingHook struct {
	likes    []likeEvent
	comments []*models.Comment
	follows  []followEvent
	err      error
}

type likeEvent struct {
	vehicleID, userID string
	liked             bool
}

type followEvent struct {
	userID, targetID string
	following        bool
}

func (h *recordingHook) VehicleLiked(_ context.Context, v *models.Vehicle, userID string, liked bool) error {
	h.likes = append(h.likes, likeEvent{v.ID, userID, liked})
	return h.err
}

func (h *recordingHook) CommentAdded(_ context.Context, _ *models.Vehicle, c *models.Comment) error {
	h.comments = append(h.comments, c)
	return h.err
}

func (h *recordingHook) FollowChanged(_ context.Context, userID, targetID string, following bool) error {
	h.follows = append(h.follows, followEvent{userID, targetID, following})
	return h.err
}
