package repository

import (
	"context"
	"errors"

	"garagebook/internal/models"
	"garagebook/internal/observability"

	"gorm.io/gorm"
)

// NewGormSet returns repositories backed by db.
func NewGormSet(db *gorm.DB) Set {
	return Set{
		Users:         NewUserRepository(db),
		Vehicles:      NewVehicleRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}

type userRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewUserRepository returns a GORM-backed UserRepository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, log: observability.NewRepoLogger("users")}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) (err error) {
	ctx, end := instrument(ctx, backendGorm, "users.create")
	defer func() { end(err) }()

	// Username and email are unique only when a member is created; profile
	// edits may later share them, so there is no unique index to lean on.
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.User{}).
			Where("email = ? OR username = ?", user.Email, user.Username).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return models.ErrUserExists
		}
		return tx.Create(user).Error
	})
	if err != nil {
		if errors.Is(err, models.ErrUserExists) || isUniqueViolation(err) {
			return models.ErrUserExists
		}
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, map[string]any{"id": user.ID, "username": user.Username})
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return user.Clone(), nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findBy(ctx, "email", email)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findBy(ctx, "username", username)
}

func (r *userRepository) findBy(ctx context.Context, column, value string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(column+" = ?", value).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return user.Clone(), nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) (err error) {
	ctx, end := instrument(ctx, backendGorm, "users.update")
	defer func() { end(err) }()

	res := r.db.WithContext(ctx).Model(&models.User{ID: user.ID}).
		Select("username", "email", "password", "full_name", "bio", "avatar", "followers", "following").
		Updates(user)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "update")
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", user.ID)
	}
	r.log.LogUpdate(ctx, map[string]any{"id": user.ID})
	return nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	var users []models.User
	q := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for i := range users {
		users[i] = *users[i].Clone()
	}
	return users, nil
}
