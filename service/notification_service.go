package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/hemantmeena2005/chat/entity"
)

type NotificationService interface {
	Create(ctx context.Context, n *entity.Notification) error
	List(ctx context.Context, username string) ([]entity.Notification, error)
	MarkAllRead(ctx context.Context, username string) (int64, error)
}

type DBNotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *DBNotificationService {
	return &DBNotificationService{db: db}
}

func (s *DBNotificationService) Create(ctx context.Context, n *entity.Notification) error {
	n.Read = false
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// List returns the user's notifications, newest first.
func (s *DBNotificationService) List(ctx context.Context, username string) ([]entity.Notification, error) {
	out := []entity.Notification{}
	err := s.db.WithContext(ctx).Where("to_user = ?", username).Order("created_at DESC, id DESC").Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DBNotificationService) MarkAllRead(ctx context.Context, username string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&entity.Notification{}).
		Where("to_user = ? AND is_read = ?", username, false).
		Updates(map[string]interface{}{"is_read": true})
	return res.RowsAffected, res.Error
}
