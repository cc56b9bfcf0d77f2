package repository

import (
	"context"

	"garagebook/internal/models"
	"garagebook/internal/observability"

	"gorm.io/gorm"
)

type notificationRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewNotificationRepository returns a GORM-backed NotificationRepository.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db, log: observability.NewRepoLogger("notifications")}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) (err error) {
	ctx, end := instrument(ctx, backendGorm, "notifications.create")
	defer func() { end(err) }()

	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, map[string]any{"id": n.ID, "recipient_id": n.RecipientID, "kind": string(n.Kind)})
	return nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string) ([]models.Notification, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if recipientID != "" {
		q = q.Where("recipient_id = ?", recipientID)
	}
	out := []models.Notification{}
	if err := q.Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id string) (found bool, err error) {
	ctx, end := instrument(ctx, backendGorm, "notifications.mark_read")
	defer func() { end(err) }()

	res := r.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", id).Update("read", true)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID string) (n int64, err error) {
	ctx, end := instrument(ctx, backendGorm, "notifications.mark_all_read")
	defer func() { end(err) }()

	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Update("read", true)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Count(&n).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
