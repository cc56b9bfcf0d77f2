package service

import (
	"slices"
	"sync"
	"time"
)

// ChangeKind names a mutation the Garage applied.
type ChangeKind string

const (
	VehicleCreated     ChangeKind = "vehicle.created"
	VehicleUpdated     ChangeKind = "vehicle.updated"
	VehicleDeleted     ChangeKind = "vehicle.deleted"
	VehicleLiked       ChangeKind = "vehicle.liked"
	VehicleUnliked     ChangeKind = "vehicle.unliked"
	CommentAdded       ChangeKind = "comment.added"
	NotificationAdded  ChangeKind = "notification.created"
	NotificationRead   ChangeKind = "notification.read"
	NotificationsClear ChangeKind = "notification.read_all"
)

// ChangeEvent tells subscribers which entity changed. UserID is the member
// the change concerns most: the owner of a vehicle or the recipient of a notification.
type ChangeEvent struct {
	Kind   ChangeKind `json:"kind"`
	ID     string     `json:"id"`
	UserID string     `json:"userId,omitempty"`
	At     time.Time  `json:"at"`
}

// broadcaster fans change events out to subscribers synchronously, in subscription order.
type broadcaster struct {
	mu   sync.RWMutex
	next int
	subs []subscriber
}

type subscriber struct {
	id int
	fn func(ChangeEvent)
}

func (b *broadcaster) subscribe(fn func(ChangeEvent)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	id := b.next
	b.subs = append(b.subs, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.subs = slices.DeleteFunc(b.subs, func(s subscriber) bool { return s.id == id })
		})
	}
}

func (b *broadcaster) publish(ev ChangeEvent) {
	b.mu.RLock()
	subs := slices.Clone(b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(ev)
	}
}
