package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"garagebook/internal/idgen"
	"garagebook/internal/middleware"
	"garagebook/internal/models"
	"garagebook/internal/observability"
	"garagebook/internal/repository"
)

// Explore sort orders.
const (
	SortRecent  = "recent"
	SortPopular = "popular"
	SortYear    = "year"
)

// ExploreQuery filters and orders the vehicle collection.
type ExploreQuery struct {
	// Search matches make, model or description, case-insensitively.
	Search string
	// Make must equal the vehicle make exactly when set.
	Make   string
	Sort   string
	Limit  int
	Offset int
}

// ExploreResult is one page of matches plus the size of the whole collection.
type ExploreResult struct {
	Vehicles []models.Vehicle `json:"vehicles"`
	Matched  int              `json:"matched"`
	Total    int              `json:"total"`
}

// GarageStats summarises one member's garage.
type GarageStats struct {
	Vehicles      int `json:"vehicles"`
	TotalLikes    int `json:"totalLikes"`
	TotalComments int `json:"totalComments"`
}

// Garage is the social data store: vehicles with their likes and comments, and notifications.
// Operations on an id that does not exist are no-ops and return nil results.
type Garage struct {
	vehicles      repository.VehicleRepository
	notifications repository.NotificationRepository
	now           func() time.Time

	hookMu sync.RWMutex
	hook   ActivityHook

	events broadcaster
}

// NewGarage builds the store. A nil hook means NopHook.
func NewGarage(vehicles repository.VehicleRepository, notifications repository.NotificationRepository, hook ActivityHook) *Garage {
	g := &Garage{vehicles: vehicles, notifications: notifications, now: time.Now}
	g.SetActivityHook(hook)
	return g
}

// SetActivityHook swaps the side-effect hook. Nil restores NopHook.
func (g *Garage) SetActivityHook(hook ActivityHook) {
	if hook == nil {
		hook = NopHook{}
	}
	g.hookMu.Lock()
	g.hook = hook
	g.hookMu.Unlock()
}

func (g *Garage) activity() ActivityHook {
	g.hookMu.RLock()
	defer g.hookMu.RUnlock()
	return g.hook
}

// Subscribe registers fn for every applied mutation and returns its cancel func.
// fn runs on the mutating goroutine and must not block.
func (g *Garage) Subscribe(fn func(ChangeEvent)) (cancel func()) {
	return g.events.subscribe(fn)
}

func (g *Garage) emit(kind ChangeKind, id, userID string) {
	observability.StoreMutationsTotal.WithLabelValues(string(kind)).Inc()
	g.events.publish(ChangeEvent{Kind: kind, ID: id, UserID: userID, At: g.now().UTC()})
}

func (g *Garage) hookFailed(ctx context.Context, event string, err error) {
	middleware.Logger.WarnContext(ctx, "activity hook failed",
		slog.String("event", event),
		slog.String("error", err.Error()),
	)
}

// AddVehicle stores a new vehicle at the front of the collection with no likes or comments.
func (g *Garage) AddVehicle(ctx context.Context, in models.VehicleInput) (*models.Vehicle, error) {
	v := &models.Vehicle{
		ID:            idgen.New(),
		OwnerID:       in.OwnerID,
		Make:          in.Make,
		Model:         in.Model,
		Year:          in.Year,
		Color:         in.Color,
		Engine:        in.Engine,
		Transmission:  in.Transmission,
		Drivetrain:    in.Drivetrain,
		Modifications: in.Modifications,
		Description:   in.Description,
		Images:        in.Images,
		Likes:         []string{},
		Comments:      []models.Comment{},
		CreatedAt:     g.now().UTC(),
	}
	v = v.Clone()
	if err := g.vehicles.Create(ctx, v); err != nil {
		return nil, err
	}
	g.emit(VehicleCreated, v.ID, v.OwnerID)
	return v.Clone(), nil
}

// UpdateVehicle merges patch into the vehicle. A missing id yields (nil, nil).
func (g *Garage) UpdateVehicle(ctx context.Context, id string, patch models.VehiclePatch) (*models.Vehicle, error) {
	v, err := g.lookup(ctx, id)
	if err != nil || v == nil {
		return nil, err
	}
	patch.Apply(v)
	if err := g.vehicles.Update(ctx, v); err != nil {
		if models.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	g.emit(VehicleUpdated, v.ID, v.OwnerID)
	return g.lookup(ctx, id)
}

// DeleteVehicle removes the vehicle. Deleting an absent id succeeds.
func (g *Garage) DeleteVehicle(ctx context.Context, id string) error {
	v, err := g.lookup(ctx, id)
	if err != nil {
		return err
	}
	if err := g.vehicles.Delete(ctx, id); err != nil {
		return err
	}
	if v != nil {
		g.emit(VehicleDeleted, id, v.OwnerID)
	}
	return nil
}

// LikeVehicle toggles userID in the vehicle's likes. Applying it twice restores
// the original set. A missing vehicle yields (nil, nil).
func (g *Garage) LikeVehicle(ctx context.Context, vehicleID, userID string) (*models.Vehicle, error) {
	liked, err := g.vehicles.ToggleLike(ctx, vehicleID, userID)
	if models.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	v, err := g.lookup(ctx, vehicleID)
	if err != nil || v == nil {
		return nil, err
	}
	kind := VehicleLiked
	if !liked {
		kind = VehicleUnliked
	}
	g.emit(kind, vehicleID, v.OwnerID)

	if err := g.activity().VehicleLiked(ctx, v.Clone(), userID, liked); err != nil {
		g.hookFailed(ctx, "vehicle_liked", err)
	}
	return v, nil
}

// AddComment appends a comment carrying a snapshot of the author's username
// and avatar. A missing vehicle yields (nil, nil).
func (g *Garage) AddComment(ctx context.Context, vehicleID, userID, username, avatar, text string) (*models.Comment, error) {
	c := &models.Comment{
		ID:             idgen.New(),
		AuthorID:       userID,
		AuthorUsername: username,
		AuthorAvatar:   avatar,
		Text:           text,
		CreatedAt:      g.now().UTC(),
	}
	if err := g.vehicles.AppendComment(ctx, vehicleID, c); err != nil {
		if models.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	v, err := g.lookup(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	owner := ""
	if v != nil {
		owner = v.OwnerID
	}
	g.emit(CommentAdded, c.ID, owner)

	if v != nil {
		if err := g.activity().CommentAdded(ctx, v, c); err != nil {
			g.hookFailed(ctx, "comment_added", err)
		}
	}
	out := *c
	return &out, nil
}

// AddNotification stores an unread notification at the front of the list.
func (g *Garage) AddNotification(ctx context.Context, in models.NotificationInput) (*models.Notification, error) {
	n := &models.Notification{
		ID:            idgen.New(),
		RecipientID:   in.RecipientID,
		Kind:          in.Kind,
		ActorID:       in.ActorID,
		ActorUsername: in.ActorUsername,
		VehicleID:     in.VehicleID,
		VehicleName:   in.VehicleName,
		Message:       in.Message,
		CreatedAt:     g.now().UTC(),
		Read:          false,
	}
	if err := g.notifications.Create(ctx, n); err != nil {
		return nil, err
	}
	g.emit(NotificationAdded, n.ID, n.RecipientID)
	out := *n
	return &out, nil
}

// MarkNotificationAsRead sets read on the notification. A missing id is a no-op.
func (g *Garage) MarkNotificationAsRead(ctx context.Context, id string) error {
	found, err := g.notifications.MarkRead(ctx, id)
	if err != nil {
		return err
	}
	if found {
		g.emit(NotificationRead, id, "")
	}
	return nil
}

// MarkAllNotificationsAsRead marks every notification of recipientID read and reports how many changed.
func (g *Garage) MarkAllNotificationsAsRead(ctx context.Context, recipientID string) (int64, error) {
	n, err := g.notifications.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		g.emit(NotificationsClear, recipientID, recipientID)
	}
	return n, nil
}

// Notifications lists the recipient's notifications, newest first.
func (g *Garage) Notifications(ctx context.Context, recipientID string) ([]models.Notification, error) {
	return g.notifications.ListByRecipient(ctx, recipientID)
}

// UnreadCount counts the recipient's unread notifications.
func (g *Garage) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	return g.notifications.CountUnread(ctx, recipientID)
}

// FollowUser records that userID follows targetID. Follower sets are not
// changed here; the activity hook decides what following means.
func (g *Garage) FollowUser(ctx context.Context, userID, targetID string) error {
	if err := g.activity().FollowChanged(ctx, userID, targetID, true); err != nil {
		g.hookFailed(ctx, "follow_changed", err)
	}
	return nil
}

// UnfollowUser is the inverse of FollowUser and likewise only informs the hook.
func (g *Garage) UnfollowUser(ctx context.Context, userID, targetID string) error {
	if err := g.activity().FollowChanged(ctx, userID, targetID, false); err != nil {
		g.hookFailed(ctx, "follow_changed", err)
	}
	return nil
}

// Vehicle returns the vehicle or (nil, nil) when absent.
func (g *Garage) Vehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	return g.lookup(ctx, id)
}

// Vehicles returns the whole collection in store order.
func (g *Garage) Vehicles(ctx context.Context) ([]models.Vehicle, error) {
	return g.vehicles.List(ctx)
}

// VehiclesByUser returns the member's vehicles in store order, never nil.
func (g *Garage) VehiclesByUser(ctx context.Context, userID string) ([]models.Vehicle, error) {
	vs, err := g.vehicles.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	if vs == nil {
		vs = []models.Vehicle{}
	}
	return vs, nil
}

// RecentVehicles returns the first n vehicles in store order.
func (g *Garage) RecentVehicles(ctx context.Context, n int) ([]models.Vehicle, error) {
	vs, err := g.vehicles.List(ctx)
	if err != nil {
		return nil, err
	}
	if n >= 0 && n < len(vs) {
		vs = vs[:n]
	}
	return vs, nil
}

// Explore filters and sorts the collection. Sorting is stable, so ties keep store order.
func (g *Garage) Explore(ctx context.Context, q ExploreQuery) (*ExploreResult, error) {
	all, err := g.vehicles.List(ctx)
	if err != nil {
		return nil, err
	}

	term := strings.ToLower(strings.TrimSpace(q.Search))
	matched := make([]models.Vehicle, 0, len(all))
	for _, v := range all {
		if q.Make != "" && v.Make != q.Make {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(v.Make), term) &&
			!strings.Contains(strings.ToLower(v.Model), term) &&
			!strings.Contains(strings.ToLower(v.Description), term) {
			continue
		}
		matched = append(matched, v)
	}

	switch q.Sort {
	case SortPopular:
		slices.SortStableFunc(matched, func(a, b models.Vehicle) int { return cmp.Compare(len(b.Likes), len(a.Likes)) })
	case SortYear:
		slices.SortStableFunc(matched, func(a, b models.Vehicle) int { return cmp.Compare(b.Year, a.Year) })
	case SortRecent, "":
		slices.SortStableFunc(matched, func(a, b models.Vehicle) int { return b.CreatedAt.Compare(a.CreatedAt) })
	}

	res := &ExploreResult{Matched: len(matched), Total: len(all)}
	start := min(max(q.Offset, 0), len(matched))
	end := len(matched)
	if q.Limit > 0 {
		end = min(start+q.Limit, end)
	}
	res.Vehicles = matched[start:end]
	return res, nil
}

// Makes returns the distinct makes in the collection, sorted.
func (g *Garage) Makes(ctx context.Context) ([]string, error) {
	all, err := g.vehicles.List(ctx)
	if err != nil {
		return nil, err
	}
	makes := make([]string, 0, len(all))
	for _, v := range all {
		makes = append(makes, v.Make)
	}
	slices.Sort(makes)
	return slices.Compact(makes), nil
}

// Stats counts the member's vehicles and the likes and comments they received.
func (g *Garage) Stats(ctx context.Context, userID string) (*GarageStats, error) {
	vs, err := g.VehiclesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := &GarageStats{Vehicles: len(vs)}
	for _, v := range vs {
		stats.TotalLikes += len(v.Likes)
		stats.TotalComments += len(v.Comments)
	}
	return stats, nil
}

func (g *Garage) lookup(ctx context.Context, id string) (*models.Vehicle, error) {
	v, err := g.vehicles.GetByID(ctx, id)
	if models.IsNotFound(err) {
		return nil, nil
	}
	return v, err
}
