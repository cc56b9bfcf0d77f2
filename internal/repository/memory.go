package repository

import (
	"context"
	"slices"
	"sync"

	"garagebook/internal/models"
)

// NewMemorySet returns repositories that keep everything in process memory.
func NewMemorySet() Set {
	return Set{
		Users:         NewMemoryUserRepository(),
		Vehicles:      NewMemoryVehicleRepository(),
		Notifications: NewMemoryNotificationRepository(),
	}
}

type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*models.User
	order []string
}

// NewMemoryUserRepository returns an in-memory UserRepository.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: make(map[string]*models.User)}
}

func (r *memoryUserRepository) Create(ctx context.Context, user *models.User) (err error) {
	_, end := instrument(ctx, backendMemory, "users.create")
	defer func() { end(err) }()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; ok {
		return models.ErrUserExists
	}
	for _, u := range r.users {
		if u.Email == user.Email || u.Username == user.Username {
			return models.ErrUserExists
		}
	}
	r.users[user.ID] = user.Clone()
	r.order = append(r.order, user.ID)
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	return u.Clone(), nil
}

func (r *memoryUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email }), nil
}

func (r *memoryUserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username == username }), nil
}

func (r *memoryUserRepository) find(match func(*models.User) bool) *models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if u := r.users[id]; match(u) {
			return u.Clone()
		}
	}
	return nil
}

func (r *memoryUserRepository) Update(ctx context.Context, user *models.User) (err error) {
	_, end := instrument(ctx, backendMemory, "users.update")
	defer func() { end(err) }()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return models.NewNotFoundError("User", user.ID)
	}
	r.users[user.ID] = user.Clone()
	return nil
}

func (r *memoryUserRepository) List(_ context.Context, limit, offset int) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.User, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.users[id].Clone())
	}
	return page(out, limit, offset), nil
}

type memoryVehicleRepository struct {
	mu       sync.RWMutex
	vehicles map[string]*models.Vehicle
	// order is newest first
	order []string
}

// NewMemoryVehicleRepository returns an in-memory VehicleRepository.
func NewMemoryVehicleRepository() VehicleRepository {
	return &memoryVehicleRepository{vehicles: make(map[string]*models.Vehicle)}
}

func (r *memoryVehicleRepository) Create(ctx context.Context, vehicle *models.Vehicle) (err error) {
	_, end := instrument(ctx, backendMemory, "vehicles.create")
	defer func() { end(err) }()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.vehicles[vehicle.ID]; ok {
		return models.NewConflictError("Vehicle " + vehicle.ID + " already exists")
	}
	r.vehicles[vehicle.ID] = vehicle.Clone()
	r.order = slices.Insert(r.order, 0, vehicle.ID)
	return nil
}

func (r *memoryVehicleRepository) GetByID(_ context.Context, id string) (*models.Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vehicles[id]
	if !ok {
		return nil, models.NewNotFoundError("Vehicle", id)
	}
	return v.Clone(), nil
}

func (r *memoryVehicleRepository) List(_ context.Context) ([]models.Vehicle, error) {
	return r.filter(func(*models.Vehicle) bool { return true }), nil
}

func (r *memoryVehicleRepository) ListByOwner(_ context.Context, ownerID string) ([]models.Vehicle, error) {
	return r.filter(func(v *models.Vehicle) bool { return v.OwnerID == ownerID }), nil
}

func (r *memoryVehicleRepository) filter(keep func(*models.Vehicle) bool) []models.Vehicle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Vehicle, 0, len(r.order))
	for _, id := range r.order {
		if v := r.vehicles[id]; keep(v) {
			out = append(out, *v.Clone())
		}
	}
	return out
}

func (r *memoryVehicleRepository) Update(ctx context.Context, vehicle *models.Vehicle) (err error) {
	_, end := instrument(ctx, backendMemory, "vehicles.update")
	defer func() { end(err) }()

	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.vehicles[vehicle.ID]
	if !ok {
		return models.NewNotFoundError("Vehicle", vehicle.ID)
	}
	next := vehicle.Clone()
	next.OwnerID = cur.OwnerID
	next.Likes = cur.Likes
	next.Comments = cur.Comments
	next.CreatedAt = cur.CreatedAt
	r.vehicles[vehicle.ID] = next
	return nil
}

func (r *memoryVehicleRepository) Delete(ctx context.Context, id string) (err error) {
	_, end := instrument(ctx, backendMemory, "vehicles.delete")
	defer func() { end(err) }()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.vehicles[id]; !ok {
		return nil
	}
	delete(r.vehicles, id)
	r.order = slices.DeleteFunc(r.order, func(item string) bool { return item == id })
	return nil
}

func (r *memoryVehicleRepository) ToggleLike(ctx context.Context, vehicleID, userID string) (liked bool, err error) {
	_, end := instrument(ctx, backendMemory, "vehicles.toggle_like")
	defer func() { end(err) }()

	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vehicles[vehicleID]
	if !ok {
		return false, models.NewNotFoundError("Vehicle", vehicleID)
	}
	// replace rather than mutate so earlier clones never observe the change
	if i := slices.Index(v.Likes, userID); i >= 0 {
		v.Likes = slices.Delete(slices.Clone(v.Likes), i, i+1)
		return false, nil
	}
	v.Likes = append(slices.Clone(v.Likes), userID)
	return true, nil
}

func (r *memoryVehicleRepository) AppendComment(ctx context.Context, vehicleID string, comment *models.Comment) (err error) {
	_, end := instrument(ctx, backendMemory, "vehicles.append_comment")
	defer func() { end(err) }()

	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vehicles[vehicleID]
	if !ok {
		return models.NewNotFoundError("Vehicle", vehicleID)
	}
	c := *comment
	c.VehicleID = vehicleID
	v.Comments = append(slices.Clone(v.Comments), c)
	return nil
}

type memoryNotificationRepository struct {
	mu sync.RWMutex
	// newest first
	items []models.Notification
}

// NewMemoryNotificationRepository returns an in-memory NotificationRepository.
func NewMemoryNotificationRepository() NotificationRepository {
	return &memoryNotificationRepository{}
}

func (r *memoryNotificationRepository) Create(ctx context.Context, n *models.Notification) (err error) {
	_, end := instrument(ctx, backendMemory, "notifications.create")
	defer func() { end(err) }()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = slices.Insert(r.items, 0, *n)
	return nil
}

func (r *memoryNotificationRepository) ListByRecipient(_ context.Context, recipientID string) ([]models.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Notification, 0, len(r.items))
	for _, n := range r.items {
		if recipientID == "" || n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *memoryNotificationRepository) MarkRead(ctx context.Context, id string) (found bool, err error) {
	_, end := instrument(ctx, backendMemory, "notifications.mark_read")
	defer func() { end(err) }()

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == id {
			r.items[i].Read = true
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryNotificationRepository) MarkAllRead(ctx context.Context, recipientID string) (n int64, err error) {
	_, end := instrument(ctx, backendMemory, "notifications.mark_all_read")
	defer func() { end(err) }()

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].RecipientID == recipientID && !r.items[i].Read {
			r.items[i].Read = true
			n++
		}
	}
	return n, nil
}

func (r *memoryNotificationRepository) CountUnread(_ context.Context, recipientID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, item := range r.items {
		if item.RecipientID == recipientID && !item.Read {
			n++
		}
	}
	return n, nil
}
