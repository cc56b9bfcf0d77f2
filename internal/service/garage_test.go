package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"garagebook/internal/models"
	"garagebook/internal/repository"
	"garagebook/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

func newTestGarage(hook ActivityHook) *Garage {
	g := NewGarage(repository.NewMemoryVehicleRepository(), repository.NewMemoryNotificationRepository(), hook)
	clock := &fakeClock{now: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	g.now = clock.Now
	return g
}

func supra(owner string) models.VehicleInput {
	return models.VehicleInput{OwnerID: owner, Make: "Toyota", Model: "Supra", Year: 1998}
}

func TestGarage_AddVehiclePrepends(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := newTestGarage(nil)

	first, err := g.AddVehicle(ctx, supra("1"))
	require.NoError(t, err)
	second, err := g.AddVehicle(ctx, models.VehicleInput{OwnerID: "2", Make: "Honda", Model: "Civic Type R", Year: 2023})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotNil(t, first.Likes)
	assert.Empty(t, first.Likes)
	assert.NotNil(t, first.Comments)
	assert.Empty(t, first.Comments)
	assert.False(t, first.CreatedAt.IsZero())

	all, err := g.Vehicles(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")
	assert.Equal(t, first.ID, all[1].ID)
}

func TestGarage_UpdateVehicle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := newTestGarage(nil)
	v, err := g.AddVehicle(ctx, supra("1"))
	require.NoError(t, err)

	color := "Deep Purple Pearl"
	mods := []string{"Single Turbo Conversion"}
	updated, err := g.UpdateVehicle(ctx, v.ID, models.VehiclePatch{Color: &color, Modifications: &mods})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, color, updated.Color)
	assert.Equal(t, mods, updated.Modifications)
	assert.Equal(t, v.ID, updated.ID)
	assert.Equal(t, "1", updated.OwnerID)
	assert.Equal(t, "Supra", updated.Model)
	assert.True(t, v.CreatedAt.Equal(updated.CreatedAt))

	missing, err := g.UpdateVehicle(ctx, "missing", models.VehiclePatch{Color: &color})
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGarage_DeleteVehicleIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := newTestGarage(nil)
	v, err := g.AddVehicle(ctx, supra("1"))
	require.NoError(t, err)

	var deletes int
	cancel := g.Subscribe(func(ev ChangeEvent) {
		if ev.Kind == VehicleDeleted {
			deletes++
		}
	})
	defer cancel()

	require.NoError(t, g.DeleteVehicle(ctx, v.ID))
	require.NoError(t, g.DeleteVehicle(ctx, v.ID))
	require.NoError(t, g.DeleteVehicle(ctx, "never-existed"))

	all, err := g.Vehicles(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, 1, deletes)
}

func TestGarage_LikeVehicleIsAnInvolution(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	hook := &recordingHook{}
	g := newTestGarage(hook)
	v, err := g.AddVehicle(ctx, supra("1"))
	require.NoError(t, err)

	liked, err := g.LikeVehicle(ctx, v.ID, "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, liked.Likes)

	liked, err = g.LikeVehicle(ctx, v.ID, "3")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, liked.Likes)

	unliked, err := g.LikeVehicle(ctx, v.ID, "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, unliked.Likes)

	missing, err := g.LikeVehicle(ctx, "missing", "2")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	assert.Equal(t, []likeEvent{
		{v.ID, "2", true},
		{v.ID, "3", true},
		{v.ID, "2", false},
	}, hook.likes)
}

func TestGarage_AddComment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	hook := &recordingHook{}
	g := newTestGarage(hook)
	v, err := g.AddVehicle(ctx, supra("1"))
	require.NoError(t, err)

	c1, err := g.AddComment(ctx, v.ID, "2", "sarahwilson", "https://img/sarah.jpg", "Absolutely beautiful build!")
	require.NoError(t, err)
	require.NotNil(t, c1)
	assert.Equal(t, "sarahwilson", c1.AuthorUsername)
	assert.Equal(t, "https://img/sarah.jpg", c1.AuthorAvatar)

	_, err = g.AddComment(ctx, v.ID, "3", "mikejohnson", "", "Clean!")
	require.NoError(t, err)

	got, err := g.Vehicle(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 2)
	assert.Equal(t, c1.ID, got.Comments[0].ID, "comments are appended")
	assert.Equal(t, "Clean!", got.Comments[1].Text)

	missing, err := g.AddComment(ctx, "missing", "2", "sarahwilson", "", "hi")
	assert.NoError(t, err)
	assert.Nil(t, missing)
	assert.Len(t, hook.comments, 2)
}

func TestGarage_Notifications(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := newTestGarage(nil)

	in := models.NotificationInput{
		RecipientID:   "1",
		Kind:          models.NotificationLike,
		ActorID:       "2",
		ActorUsername: "sarahwilson",
		Message:       "liked your 1998 Toyota Supra",
	}
	first, err := g.AddNotification(ctx, in)
	require.NoError(t, err)
	assert.False(t, first.Read)
	second, err := g.AddNotification(ctx, in)
	require.NoError(t, err)

	list, err := g.Notifications(ctx, "1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	require.NoError(t, g.MarkNotificationAsRead(ctx, first.ID))
	require.NoError(t, g.MarkNotificationAsRead(ctx, "missing"))
	unread, err := g.UnreadCount(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	n, err := g.MarkAllNotificationsAsRead(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	unread, err = g.UnreadCount(ctx, "1")
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestGarage_VehiclesByUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := newTestGarage(nil)
	a, _ := g.AddVehicle(ctx, supra("1"))
	_, _ = g.AddVehicle(ctx, supra("2"))
	b, _ := g.AddVehicle(ctx, supra("1"))

	mine, err := g.VehiclesByUser(ctx, "1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, b.ID, mine[0].ID)
	assert.Equal(t, a.ID, mine[1].ID)

	none, err := g.VehiclesByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestGarage_FollowOnlyInformsHook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	hook := &recordingHook{}
	g := newTestGarage(hook)

	require.NoError(t, g.FollowUser(ctx, "1", "3"))
	require.NoError(t, g.UnfollowUser(ctx, "1", "3"))
	assert.Equal(t, []followEvent{{"1", "3", true}, {"1", "3", false}}, hook.follows)

	g.SetActivityHook(nil)
	assert.NoError(t, g.FollowUser(ctx, "1", "3"), "default hook is a no-op")
	assert.Len(t, hook.follows, 2)
}

func TestGarage_HookErrorDoesNotUndoMutation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := newTestGarage(&recordingHook{err: errors.New("hook down")})
	v, err := g.AddVehicle(ctx, supra("1"))
	require.NoError(t, err)

	liked, err := g.LikeVehicle(ctx, v.ID, "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, liked.Likes)
}

func TestGarage_FollowHookErrorIsLogged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	var calls int
	g := newTestGarage(HookFuncs{OnFollowChanged: func(context.Context, string, string, bool) error {
		calls++
		return errors.New("relay down")
	}})

	assert.NoError(t, g.FollowUser(ctx, "1", "2"))
	assert.NoError(t, g.UnfollowUser(ctx, "1", "2"))
	assert.Equal(t, 2, calls)
}

func TestGarage_Subscribe(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := newTestGarage(nil)

	var kinds []ChangeKind
	cancel := g.Subscribe(func(ev ChangeEvent) {
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.At.IsZero())
		kinds = append(kinds, ev.Kind)
	})

	v, err := g.AddVehicle(ctx, supra("1"))
	require.NoError(t, err)
	_, err = g.LikeVehicle(ctx, v.ID, "2")
	require.NoError(t, err)
	_, err = g.LikeVehicle(ctx, v.ID, "2")
	require.NoError(t, err)
	_, err = g.AddComment(ctx, v.ID, "2", "sarah", "", "nice")
	require.NoError(t, err)

	cancel()
	cancel()
	_, err = g.AddVehicle(ctx, supra("1"))
	require.NoError(t, err)

	assert.Equal(t, []ChangeKind{VehicleCreated, VehicleLiked, VehicleUnliked, CommentAdded}, kinds)
}

func TestGarage_Explore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := newTestGarage(nil)

	supraV, _ := g.AddVehicle(ctx, models.VehicleInput{OwnerID: "1", Make: "Toyota", Model: "Supra", Year: 1998, Description: "Single turbo conversion"})
	civic, _ := g.AddVehicle(ctx, models.VehicleInput{OwnerID: "2", Make: "Honda", Model: "Civic Type R", Year: 2023, Description: "Street and track"})
	m3, _ := g.AddVehicle(ctx, models.VehicleInput{OwnerID: "3", Make: "BMW", Model: "M3", Year: 2020, Description: "Daily driver, TURBO six"})
	_, _ = g.LikeVehicle(ctx, m3.ID, "1")
	_, _ = g.LikeVehicle(ctx, m3.ID, "2")
	_, _ = g.LikeVehicle(ctx, supraV.ID, "2")

	tests := []struct {
		name  string
		query ExploreQuery
		want  []string
		total int
	}{
		{"default is most recent first", ExploreQuery{}, []string{m3.ID, civic.ID, supraV.ID}, 3},
		{"search is case-insensitive across fields", ExploreQuery{Search: "turbo"}, []string{m3.ID, supraV.ID}, 2},
		{"search matches model", ExploreQuery{Search: "civic"}, []string{civic.ID}, 1},
		{"make filter is exact", ExploreQuery{Make: "BMW"}, []string{m3.ID}, 1},
		{"make filter is case-sensitive", ExploreQuery{Make: "bmw"}, []string{}, 0},
		{"popular", ExploreQuery{Sort: SortPopular}, []string{m3.ID, supraV.ID, civic.ID}, 3},
		{"year", ExploreQuery{Sort: SortYear}, []string{civic.ID, m3.ID, supraV.ID}, 3},
		{"paged", ExploreQuery{Sort: SortYear, Limit: 1, Offset: 1}, []string{m3.ID}, 3},
		{"offset past end", ExploreQuery{Offset: 10}, []string{}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := g.Explore(ctx, tt.query)
			require.NoError(t, err)
			got := make([]string, 0, len(res.Vehicles))
			for _, v := range res.Vehicles {
				got = append(got, v.ID)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.total, res.Matched)
			assert.Equal(t, 3, res.Total)
		})
	}
}

func TestGarage_MakesStatsRecent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := newTestGarage(nil)

	a, _ := g.AddVehicle(ctx, supra("1"))
	_, _ = g.AddVehicle(ctx, models.VehicleInput{OwnerID: "1", Make: "BMW", Model: "M3", Year: 2020})
	_, _ = g.AddVehicle(ctx, supra("2"))
	_, _ = g.LikeVehicle(ctx, a.ID, "2")
	_, _ = g.LikeVehicle(ctx, a.ID, "3")
	_, _ = g.AddComment(ctx, a.ID, "2", "sarah", "", "nice")

	makes, err := g.Makes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"BMW", "Toyota"}, makes)

	stats, err := g.Stats(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, &GarageStats{Vehicles: 2, TotalLikes: 2, TotalComments: 1}, stats)

	empty, err := g.Stats(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, &GarageStats{}, empty)

	recent, err := g.RecentVehicles(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
	recent, err = g.RecentVehicles(ctx, 6)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}

func TestGarage_StorageErrorsPropagate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	boom := models.NewInternalError(errors.New("disk full"))
	repo := noopVehicleRepo()
	repo.listFn = func(context.Context) ([]models.Vehicle, error) { return nil, boom }
	repo.createFn = func(context.Context, *models.Vehicle) error { return boom }
	g := NewGarage(repo, repository.NewMemoryNotificationRepository(), nil)

	_, err := g.AddVehicle(ctx, supra("1"))
	assert.ErrorIs(t, err, boom)
	_, err = g.Explore(ctx, ExploreQuery{})
	assert.ErrorIs(t, err, boom)
	_, err = g.Makes(ctx)
	assert.ErrorIs(t, err, boom)
}

func TestEndToEnd_RegisterAddLikeUnlike(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	identity := NewIdentity(newTestDirectory(), session.NewMemoryStore())
	g := newTestGarage(nil)

	a, err := identity.Register(ctx, RegisterInput{Username: "a", Email: "a@x.com", Password: "password123"})
	require.NoError(t, err)
	require.NotNil(t, identity.CurrentUser())
	assert.Equal(t, a.ID, identity.CurrentUser().ID)

	_, err = identity.Register(ctx, RegisterInput{Username: "a2", Email: "a@x.com", Password: "password123"})
	assert.ErrorIs(t, err, models.ErrUserExists)

	v, err := g.AddVehicle(ctx, models.VehicleInput{OwnerID: a.ID, Make: "Toyota", Model: "Supra", Year: 1998})
	require.NoError(t, err)
	all, err := g.Vehicles(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, a.ID, all[0].OwnerID)
	assert.Empty(t, all[0].Likes)
	assert.Empty(t, all[0].Comments)

	liked, err := g.LikeVehicle(ctx, v.ID, a.ID)
	require.NoError(t, err)
	assert.Len(t, liked.Likes, 1)

	liked, err = g.LikeVehicle(ctx, v.ID, a.ID)
	require.NoError(t, err)
	assert.Empty(t, liked.Likes)
}
