package notifications

import (
	"context"
	"fmt"

	"garagebook/internal/models"
	"garagebook/internal/service"
)

// UserLookup resolves the actor of an activity. *service.Directory satisfies it.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// NotificationSink stores a notification. *service.Garage satisfies it.
type NotificationSink interface {
	AddNotification(ctx context.Context, in models.NotificationInput) (*models.Notification, error)
}

// ActivityNotifier turns likes, comments and follows into notifications for
// the vehicle owner or followed member, then pushes them to that member.
// Acting on your own vehicle or yourself produces nothing, and neither do
// unlikes or unfollows.
type ActivityNotifier struct {
	users UserLookup
	sink  NotificationSink
	relay *Relay
}

var _ service.ActivityHook = (*ActivityNotifier)(nil)

// NewActivityNotifier builds the hook. relay may be nil to only store notifications.
func NewActivityNotifier(users UserLookup, sink NotificationSink, relay *Relay) *ActivityNotifier {
	return &ActivityNotifier{users: users, sink: sink, relay: relay}
}

func (a *ActivityNotifier) VehicleLiked(ctx context.Context, v *models.Vehicle, userID string, liked bool) error {
	if !liked || userID == v.OwnerID {
		return nil
	}
	actor, err := a.actorName(ctx, userID)
	if err != nil {
		return err
	}
	return a.notify(ctx, models.NotificationInput{
		RecipientID:   v.OwnerID,
		Kind:          models.NotificationLike,
		ActorID:       userID,
		ActorUsername: actor,
		VehicleID:     v.ID,
		VehicleName:   v.DisplayName(),
		Message:       "liked your " + v.DisplayName(),
	})
}

func (a *ActivityNotifier) CommentAdded(ctx context.Context, v *models.Vehicle, c *models.Comment) error {
	if c.AuthorID == v.OwnerID {
		return nil
	}
	return a.notify(ctx, models.NotificationInput{
		RecipientID:   v.OwnerID,
		Kind:          models.NotificationComment,
		ActorID:       c.AuthorID,
		ActorUsername: c.AuthorUsername,
		VehicleID:     v.ID,
		VehicleName:   v.DisplayName(),
		Message:       "commented on your " + v.DisplayName(),
	})
}

func (a *ActivityNotifier) FollowChanged(ctx context.Context, userID, targetID string, following bool) error {
	if !following || userID == targetID {
		return nil
	}
	actor, err := a.actorName(ctx, userID)
	if err != nil {
		return err
	}
	return a.notify(ctx, models.NotificationInput{
		RecipientID:   targetID,
		Kind:          models.NotificationFollow,
		ActorID:       userID,
		ActorUsername: actor,
		Message:       "started following you",
	})
}

func (a *ActivityNotifier) actorName(ctx context.Context, userID string) (string, error) {
	u, err := a.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("resolve actor %s: %w", userID, err)
	}
	return u.Username, nil
}

func (a *ActivityNotifier) notify(ctx context.Context, in models.NotificationInput) error {
	n, err := a.sink.AddNotification(ctx, in)
	if err != nil {
		return fmt.Errorf("store %s notification: %w", in.Kind, err)
	}
	if a.relay == nil {
		return nil
	}
	return a.relay.ToUser(ctx, n.RecipientID, Message{Type: TypeNotification, Payload: n})
}
