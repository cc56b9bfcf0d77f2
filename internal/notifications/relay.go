package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"garagebook/internal/middleware"
	"garagebook/internal/observability"
	"garagebook/internal/service"
)

// Frame types written to websocket clients.
const (
	TypeNotification = "notification"
	TypeChange       = "change"
)

const (
	feedBuffer  = 256
	sendTimeout = 2 * time.Second
)

// Message is the JSON frame every client receives.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Relay delivers frames to clients. With Redis configured frames go through
// pub/sub so every instance's hub sees them; otherwise straight to the local hub.
type Relay struct {
	hub      *Hub
	notifier *Notifier
}

// NewRelay pairs a hub with a notifier. The notifier may be nil.
func NewRelay(hub *Hub, notifier *Notifier) *Relay {
	return &Relay{hub: hub, notifier: notifier}
}

// ToUser sends msg to every connection of userID.
func (r *Relay) ToUser(ctx context.Context, userID string, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if r.notifier.Enabled() {
		return r.notifier.PublishUser(ctx, userID, string(payload))
	}
	r.hub.Broadcast(userID, string(payload))
	return nil
}

// ToAll sends msg to every connection.
func (r *Relay) ToAll(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if r.notifier.Enabled() {
		return r.notifier.PublishBroadcast(ctx, string(payload))
	}
	r.hub.BroadcastAll(string(payload))
	return nil
}

// ChangeSource is the subscription side of *service.Garage.
type ChangeSource interface {
	Subscribe(fn func(service.ChangeEvent)) (cancel func())
}

// StartChangeFeed forwards every store change to clients until ctx is done.
// Vehicle and comment changes go to everyone; notification changes only to
// their recipient. Events are queued so the mutating goroutine never waits on
// delivery; a full queue drops the event.
func (r *Relay) StartChangeFeed(ctx context.Context, src ChangeSource) {
	queue := make(chan service.ChangeEvent, feedBuffer)
	cancel := src.Subscribe(func(ev service.ChangeEvent) {
		select {
		case queue <- ev:
		default:
			observability.WebSocketBackpressureDrops.WithLabelValues(r.hub.Name(), "feed_full").Inc()
		}
	})

	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-queue:
				r.forward(ctx, ev)
			}
		}
	}()
}

func (r *Relay) forward(ctx context.Context, ev service.ChangeEvent) {
	ctx, done := context.WithTimeout(ctx, sendTimeout)
	defer done()

	msg := Message{Type: TypeChange, Payload: ev}
	var err error
	if strings.HasPrefix(string(ev.Kind), "notification.") {
		if ev.UserID == "" {
			return
		}
		err = r.ToUser(ctx, ev.UserID, msg)
	} else {
		err = r.ToAll(ctx, msg)
	}
	if err != nil {
		middleware.Logger.WarnContext(ctx, "change feed delivery failed",
			slog.String("kind", string(ev.Kind)),
			slog.String("error", err.Error()),
		)
	}
}
