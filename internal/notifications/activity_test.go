package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"garagebook/internal/models"
	"garagebook/internal/repository"
	"garagebook/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupStub map[string]string

func (s lookupStub) GetUserByID(_ context.Context, id string) (*models.User, error) {
	name, ok := s[id]
	if !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	return &models.User{ID: id, Username: name}, nil
}

type activityFixture struct {
	garage *service.Garage
	hub    *Hub
	owner  *Client
	fan    *Client
	car    *models.Vehicle
}

func newActivityFixture(t *testing.T) *activityFixture {
	t.Helper()
	set := repository.NewMemorySet()
	garage := service.NewGarage(set.Vehicles, set.Notifications, nil)
	hub := NewHub()
	t.Cleanup(func() { _ = hub.Shutdown(context.Background()) })

	users := lookupStub{"owner": "speedracer", "fan": "jdmlover"}
	garage.SetActivityHook(NewActivityNotifier(users, garage, NewRelay(hub, NewNotifier(nil))))

	owner, err := hub.Register("owner", nil)
	require.NoError(t, err)
	fan, err := hub.Register("fan", nil)
	require.NoError(t, err)

	car, err := garage.AddVehicle(context.Background(), models.VehicleInput{
		OwnerID: "owner", Make: "Toyota", Model: "Supra", Year: 1998,
	})
	require.NoError(t, err)

	return &activityFixture{garage: garage, hub: hub, owner: owner, fan: fan, car: car}
}

func decodeNotification(t *testing.T, raw string) models.Notification {
	t.Helper()
	var frame struct {
		Type    string              `json:"type"`
		Payload models.Notification `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &frame))
	require.Equal(t, TypeNotification, frame.Type)
	return frame.Payload
}

func TestActivityNotifier_Like(t *testing.T) {
	f := newActivityFixture(t)
	ctx := context.Background()

	_, err := f.garage.LikeVehicle(ctx, f.car.ID, "fan")
	require.NoError(t, err)

	n := decodeNotification(t, recv(t, f.owner))
	assert.Equal(t, models.NotificationLike, n.Kind)
	assert.Equal(t, "owner", n.RecipientID)
	assert.Equal(t, "jdmlover", n.ActorUsername)
	assert.Equal(t, "liked your 1998 Toyota Supra", n.Message)
	assert.Equal(t, f.car.ID, n.VehicleID)
	assert.False(t, n.Read)
	assertSilent(t, f.fan)

	stored, err := f.garage.Notifications(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, stored, 1)

	// Unliking does not notify.
	_, err = f.garage.LikeVehicle(ctx, f.car.ID, "fan")
	require.NoError(t, err)
	assertSilent(t, f.owner)
	stored, err = f.garage.Notifications(ctx, "owner")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestActivityNotifier_SelfActivityIsQuiet(t *testing.T) {
	f := newActivityFixture(t)
	ctx := context.Background()

	_, err := f.garage.LikeVehicle(ctx, f.car.ID, "owner")
	require.NoError(t, err)
	_, err = f.garage.AddComment(ctx, f.car.ID, "owner", "speedracer", "", "thanks all")
	require.NoError(t, err)
	require.NoError(t, f.garage.FollowUser(ctx, "owner", "owner"))

	assertSilent(t, f.owner)
	stored, err := f.garage.Notifications(ctx, "owner")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestActivityNotifier_Comment(t *testing.T) {
	f := newActivityFixture(t)

	_, err := f.garage.AddComment(context.Background(), f.car.ID, "fan", "jdmlover", "", "Clean build!")
	require.NoError(t, err)

	n := decodeNotification(t, recv(t, f.owner))
	assert.Equal(t, models.NotificationComment, n.Kind)
	assert.Equal(t, "commented on your 1998 Toyota Supra", n.Message)
	assert.Equal(t, "jdmlover", n.ActorUsername)
}

func TestActivityNotifier_Follow(t *testing.T) {
	f := newActivityFixture(t)
	ctx := context.Background()

	require.NoError(t, f.garage.FollowUser(ctx, "owner", "fan"))
	n := decodeNotification(t, recv(t, f.fan))
	assert.Equal(t, models.NotificationFollow, n.Kind)
	assert.Equal(t, "started following you", n.Message)
	assert.Equal(t, "speedracer", n.ActorUsername)
	assert.Empty(t, n.VehicleID)

	require.NoError(t, f.garage.UnfollowUser(ctx, "owner", "fan"))
	assertSilent(t, f.fan)
}

func TestActivityNotifier_UnknownActor(t *testing.T) {
	set := repository.NewMemorySet()
	garage := service.NewGarage(set.Vehicles, set.Notifications, nil)
	hook := NewActivityNotifier(lookupStub{}, garage, nil)

	err := hook.FollowChanged(context.Background(), "ghost", "someone", true)
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))

	// Through the Garage the hook error is logged and the follow still succeeds.
	garage.SetActivityHook(hook)
	assert.NoError(t, garage.FollowUser(context.Background(), "ghost", "someone"))
}

type failingSink struct{}

func (failingSink) AddNotification(context.Context, models.NotificationInput) (*models.Notification, error) {
	return nil, errors.New("disk full")
}

func TestActivityNotifier_SinkError(t *testing.T) {
	hook := NewActivityNotifier(lookupStub{"fan": "jdmlover"}, failingSink{}, nil)
	v := &models.Vehicle{ID: "v1", OwnerID: "owner", Make: "Honda", Model: "Civic Type R", Year: 2023}

	err := hook.VehicleLiked(context.Background(), v, "fan", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
