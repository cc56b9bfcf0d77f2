package notifications

import (
	"context"
	"encoding/json"
	"testing"

	"garagebook/internal/models"
	"garagebook/internal/repository"
	"garagebook/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeChange(t *testing.T, raw string) service.ChangeEvent {
	t.Helper()
	var frame struct {
		Type    string              `json:"type"`
		Payload service.ChangeEvent `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &frame))
	require.Equal(t, TypeChange, frame.Type)
	return frame.Payload
}

func TestRelay_ChangeFeed(t *testing.T) {
	set := repository.NewMemorySet()
	garage := service.NewGarage(set.Vehicles, set.Notifications, nil)
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	NewRelay(hub, nil).StartChangeFeed(ctx, garage)

	alice, err := hub.Register("alice", nil)
	require.NoError(t, err)
	bob, err := hub.Register("bob", nil)
	require.NoError(t, err)

	v, err := garage.AddVehicle(ctx, models.VehicleInput{OwnerID: "alice", Make: "Nissan", Model: "Skyline GT-R", Year: 1999})
	require.NoError(t, err)

	for _, c := range []*Client{alice, bob} {
		ev := decodeChange(t, recv(t, c))
		assert.Equal(t, service.VehicleCreated, ev.Kind)
		assert.Equal(t, v.ID, ev.ID)
		assert.Equal(t, "alice", ev.UserID)
	}

	n, err := garage.AddNotification(ctx, models.NotificationInput{
		RecipientID: "bob", Kind: models.NotificationFollow, ActorID: "alice", Message: "started following you",
	})
	require.NoError(t, err)

	ev := decodeChange(t, recv(t, bob))
	assert.Equal(t, service.NotificationAdded, ev.Kind)
	assert.Equal(t, n.ID, ev.ID)
	assertSilent(t, alice)
}

func TestRelay_ThroughRedis(t *testing.T) {
	rdb := newTestRedis(t)
	notifier := NewNotifier(rdb)
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.StartWiring(ctx, notifier))

	c, err := hub.Register("carol", nil)
	require.NoError(t, err)

	relay := NewRelay(hub, notifier)
	require.NoError(t, relay.ToUser(ctx, "carol", Message{Type: "ping", Payload: map[string]int{"n": 1}}))
	assert.JSONEq(t, `{"type":"ping","payload":{"n":1}}`, recv(t, c))

	require.NoError(t, relay.ToAll(ctx, Message{Type: "all", Payload: nil}))
	assert.JSONEq(t, `{"type":"all","payload":null}`, recv(t, c))
}

func TestRelay_StopsOnCancel(t *testing.T) {
	set := repository.NewMemorySet()
	garage := service.NewGarage(set.Vehicles, set.Notifications, nil)
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	NewRelay(hub, nil).StartChangeFeed(ctx, garage)
	c, err := hub.Register("dave", nil)
	require.NoError(t, err)
	cancel()

	assert.Eventually(t, func() bool {
		_, err := garage.AddVehicle(context.Background(), models.VehicleInput{OwnerID: "dave", Make: "Mazda", Model: "RX-7", Year: 1993})
		require.NoError(t, err)
		select {
		case <-c.Send:
			return false
		default:
			return true
		}
	}, testEventuallyTimeout, testPollInterval)
}
