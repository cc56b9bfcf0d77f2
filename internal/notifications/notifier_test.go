package notifications

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.PublishUser(context.Background(), "1", "payload"))
	assert.NoError(t, n.PublishBroadcast(context.Background(), "payload"))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(string, string) {
		t.Fatal("no subscriber expected")
	}))

	var nilNotifier *Notifier
	assert.False(t, nilNotifier.Enabled())
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		userID   string
		expected string
	}{
		{"1", "notifications:user:1"},
		{"0192f3a4-7c1e-7abc-9def-0123456789ab", "notifications:user:0192f3a4-7c1e-7abc-9def-0123456789ab"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, UserChannel(tt.userID))
		id, ok := UserFromChannel(tt.expected)
		assert.True(t, ok)
		assert.Equal(t, tt.userID, id)
	}

	_, ok := UserFromChannel("notifications:user:")
	assert.False(t, ok)
	_, ok = UserFromChannel("chat:conv:1")
	assert.False(t, ok)
}

func TestHub_StartWiringForwardsRedisMessages(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.StartWiring(ctx, n))

	alice, err := hub.Register("alice", nil)
	require.NoError(t, err)
	bob, err := hub.Register("bob", nil)
	require.NoError(t, err)

	require.NoError(t, n.PublishUser(ctx, "alice", `{"type":"ping"}`))
	assert.Equal(t, `{"type":"ping"}`, recv(t, alice))
	assertSilent(t, bob)

	require.NoError(t, n.PublishBroadcast(ctx, `{"type":"all"}`))
	assert.Equal(t, `{"type":"all"}`, recv(t, alice))
	assert.Equal(t, `{"type":"all"}`, recv(t, bob))
}
