package storage

import (
	"context"
	"fmt"

	"retiree-match/internal/model"
)

// FindUser 按 ID 查询用户，不存在时返回 sql.ErrNoRows。
func (s *Store) FindUser(ctx context.Context, id string) (model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return model.User{}, fmt.Errorf("find user %s: %w", id, notFound(err))
	}
	return u, nil
}

// AppendNotification 将通知写入用户收件箱，用户不存在时返回 sql.ErrNoRows。
func (s *Store) AppendNotification(ctx context.Context, userID string, payload model.NotificationPayload) (model.Notification, error) {
	if _, err := s.FindUser(ctx, userID); err != nil {
		return model.Notification{}, err
	}

	n := model.NewNotification(userID, payload)
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		return model.Notification{}, fmt.Errorf("append notification for %s: %w", userID, err)
	}
	return n, nil
}

// ListNotifications 按时间倒序返回用户通知。
func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []model.Notification
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list notifications for %s: %w", userID, err)
	}
	return out, nil
}
