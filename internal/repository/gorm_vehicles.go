package repository

import (
	"context"

	"garagebook/internal/cache"
	"garagebook/internal/models"
	"garagebook/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// vehicleOrder is the listing order for the relational store.
const vehicleOrder = "created_at DESC, id DESC"

var descriptiveColumns = []string{
	"make", "model", "year", "color", "engine", "transmission",
	"drivetrain", "modifications", "description", "images",
}

type vehicleRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewVehicleRepository returns a GORM-backed VehicleRepository. Likes live in
// vehicle_likes and comments in comments; GetByID reads through the Redis cache.
func NewVehicleRepository(db *gorm.DB) VehicleRepository {
	return &vehicleRepository{db: db, log: observability.NewRepoLogger("vehicles")}
}

func (r *vehicleRepository) Create(ctx context.Context, vehicle *models.Vehicle) (err error) {
	ctx, end := instrument(ctx, backendGorm, "vehicles.create")
	defer func() { end(err) }()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(vehicle).Error; err != nil {
			return err
		}
		for _, userID := range vehicle.Likes {
			like := models.VehicleLike{VehicleID: vehicle.ID, UserID: userID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
				return err
			}
		}
		for i := range vehicle.Comments {
			vehicle.Comments[i].VehicleID = vehicle.ID
			if err := tx.Create(&vehicle.Comments[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("Vehicle " + vehicle.ID + " already exists")
		}
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, map[string]any{"id": vehicle.ID, "owner_id": vehicle.OwnerID})
	return nil
}

func (r *vehicleRepository) GetByID(ctx context.Context, id string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := cache.Aside(ctx, cache.VehicleKey(id), &vehicle, cache.VehicleTTL, func() error {
		var found []models.Vehicle
		if err := r.load(ctx, r.db.WithContext(ctx).Where("id = ?", id), &found); err != nil {
			return err
		}
		if len(found) == 0 {
			return models.NewNotFoundError("Vehicle", id)
		}
		vehicle = found[0]
		return nil
	})
	if err != nil {
		return nil, internal(err)
	}
	return vehicle.Clone(), nil
}

func (r *vehicleRepository) List(ctx context.Context) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	if err := r.load(ctx, r.db.WithContext(ctx), &vehicles); err != nil {
		return nil, internal(err)
	}
	return vehicles, nil
}

func (r *vehicleRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	if err := r.load(ctx, r.db.WithContext(ctx).Where("owner_id = ?", ownerID), &vehicles); err != nil {
		return nil, internal(err)
	}
	return vehicles, nil
}

// load runs q with comments preloaded and attaches the likes sets.
func (r *vehicleRepository) load(ctx context.Context, q *gorm.DB, out *[]models.Vehicle) error {
	err := q.Preload("Comments", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	}).Order(vehicleOrder).Find(out).Error
	if err != nil {
		return err
	}
	if len(*out) == 0 {
		*out = []models.Vehicle{}
		return nil
	}

	ids := make([]string, len(*out))
	for i, v := range *out {
		ids[i] = v.ID
	}
	var likes []models.VehicleLike
	if err := r.db.WithContext(ctx).Where("vehicle_id IN ?", ids).
		Order("created_at ASC, user_id ASC").Find(&likes).Error; err != nil {
		return err
	}
	byVehicle := make(map[string][]string, len(ids))
	for _, l := range likes {
		byVehicle[l.VehicleID] = append(byVehicle[l.VehicleID], l.UserID)
	}
	for i := range *out {
		v := &(*out)[i]
		v.Likes = byVehicle[v.ID]
		*v = *v.Clone()
	}
	return nil
}

func (r *vehicleRepository) Update(ctx context.Context, vehicle *models.Vehicle) (err error) {
	ctx, end := instrument(ctx, backendGorm, "vehicles.update")
	defer func() { end(err) }()

	res := r.db.WithContext(ctx).Model(&models.Vehicle{ID: vehicle.ID}).
		Select(descriptiveColumns).
		Updates(vehicle)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "update")
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Vehicle", vehicle.ID)
	}
	cache.InvalidateVehicle(ctx, vehicle.ID)
	r.log.LogUpdate(ctx, map[string]any{"id": vehicle.ID})
	return nil
}

func (r *vehicleRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, end := instrument(ctx, backendGorm, "vehicles.delete")
	defer func() { end(err) }()

	// sqlite does not enforce the cascade unless foreign keys are switched on
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("vehicle_id = ?", id).Delete(&models.VehicleLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("vehicle_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Vehicle{}).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return models.NewInternalError(err)
	}
	cache.InvalidateVehicle(ctx, id)
	r.log.LogDelete(ctx, map[string]any{"id": id})
	return nil
}

func (r *vehicleRepository) ToggleLike(ctx context.Context, vehicleID, userID string) (liked bool, err error) {
	ctx, end := instrument(ctx, backendGorm, "vehicles.toggle_like")
	defer func() { end(err) }()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.requireVehicle(tx, vehicleID); err != nil {
			return err
		}
		res := tx.Where("vehicle_id = ? AND user_id = ?", vehicleID, userID).Delete(&models.VehicleLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			liked = false
			return nil
		}
		liked = true
		like := models.VehicleLike{VehicleID: vehicleID, UserID: userID}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error
	})
	if err != nil {
		return false, internal(err)
	}
	cache.InvalidateVehicle(ctx, vehicleID)
	return liked, nil
}

func (r *vehicleRepository) AppendComment(ctx context.Context, vehicleID string, comment *models.Comment) (err error) {
	ctx, end := instrument(ctx, backendGorm, "vehicles.append_comment")
	defer func() { end(err) }()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.requireVehicle(tx, vehicleID); err != nil {
			return err
		}
		comment.VehicleID = vehicleID
		return tx.Create(comment).Error
	})
	if err != nil {
		return internal(err)
	}
	cache.InvalidateVehicle(ctx, vehicleID)
	r.log.LogCreate(ctx, map[string]any{"comment_id": comment.ID, "vehicle_id": vehicleID})
	return nil
}

func (r *vehicleRepository) requireVehicle(tx *gorm.DB, id string) error {
	var count int64
	if err := tx.Model(&models.Vehicle{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return models.NewNotFoundError("Vehicle", id)
	}
	return nil
}
