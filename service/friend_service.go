package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hemantmeena2005/chat/entity"
)

var (
	ErrSelfRequest     = errors.New("cannot send friend request to yourself")
	ErrAlreadyFriends  = errors.New("already friends")
	ErrRequestPending  = errors.New("friend request already pending")
	ErrRequestCooldown = errors.New("friend request was rejected recently")
	ErrRequestNotFound = errors.New("friend request not found")
	ErrNotFriends      = errors.New("not friends")
)

type FriendService interface {
	SendRequest(ctx context.Context, from, to string) (*entity.FriendRequest, error)
	PendingRequests(ctx context.Context, username string) ([]string, error)
	Accept(ctx context.Context, username, from string) error
	Reject(ctx context.Context, username, from string) error
	Remove(ctx context.Context, username, friend string) error
	Friends(ctx context.Context, username string) ([]string, error)
}

type DBFriendService struct {
	db             *gorm.DB
	resendCooldown time.Duration
	now            func() time.Time
}

// NewFriendService builds the service. A rejected request may be sent again
// once resendCooldown has passed; zero allows it immediately.
func NewFriendService(db *gorm.DB, resendCooldown time.Duration) *DBFriendService {
	return &DBFriendService{db: db, resendCooldown: resendCooldown, now: time.Now}
}

func (s *DBFriendService) users(ctx context.Context, a, b string) (*entity.User, *entity.User, error) {
	var ua, ub entity.User
	if err := s.db.WithContext(ctx).Where("username = ?", a).First(&ua).Error; err != nil {
		return nil, nil, notFound(err)
	}
	if err := s.db.WithContext(ctx).Where("username = ?", b).First(&ub).Error; err != nil {
		return nil, nil, notFound(err)
	}
	return &ua, &ub, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}

func (s *DBFriendService) areFriends(tx *gorm.DB, a, b uint) (bool, error) {
	var cnt int64
	err := tx.Model(&entity.Friendship{}).Where("user_id = ? AND friend_id = ?", a, b).Count(&cnt).Error
	return cnt > 0, err
}

func (s *DBFriendService) SendRequest(ctx context.Context, from, to string) (*entity.FriendRequest, error) {
	if from == to {
		return nil, ErrSelfRequest
	}
	sender, target, err := s.users(ctx, from, to)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	friends, err := s.areFriends(db, sender.ID, target.ID)
	if err != nil {
		return nil, err
	}
	if friends {
		return nil, ErrAlreadyFriends
	}

	var pending int64
	err = db.Model(&entity.FriendRequest{}).
		Where("status = ?", entity.RequestPending).
		Where("((from_id = ? AND to_id = ?) OR (from_id = ? AND to_id = ?))", sender.ID, target.ID, target.ID, sender.ID).
		Count(&pending).Error
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, ErrRequestPending
	}

	if s.resendCooldown > 0 {
		var rejected int64
		err = db.Model(&entity.FriendRequest{}).
			Where("from_id = ? AND to_id = ? AND status = ? AND updated_at > ?",
				sender.ID, target.ID, entity.RequestRejected, s.now().Add(-s.resendCooldown)).
			Count(&rejected).Error
		if err != nil {
			return nil, err
		}
		if rejected > 0 {
			return nil, ErrRequestCooldown
		}
	}

	req := &entity.FriendRequest{FromID: sender.ID, ToID: target.ID, Status: entity.RequestPending}
	if err := db.Omit(clause.Associations).Create(req).Error; err != nil {
		return nil, fmt.Errorf("create friend request: %w", err)
	}
	return req, nil
}

// PendingRequests lists the usernames that have a pending request to username.
func (s *DBFriendService) PendingRequests(ctx context.Context, username string) ([]string, error) {
	names := []string{}
	err := s.db.WithContext(ctx).Table("friend_requests").
		Select("u.username").
		Joins("JOIN users u ON u.id = friend_requests.from_id").
		Joins("JOIN users me ON me.id = friend_requests.to_id").
		Where("me.username = ? AND friend_requests.status = ?", username, entity.RequestPending).
		Order("friend_requests.created_at ASC").
		Scan(&names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Accept marks the pending request from -> username accepted and records the
// friendship in both directions in one transaction.
func (s *DBFriendService) Accept(ctx context.Context, username, from string) error {
	me, requester, err := s.users(ctx, username, from)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.FriendRequest{}).
			Where("from_id = ? AND to_id = ? AND status = ?", requester.ID, me.ID, entity.RequestPending).
			Update("status", entity.RequestAccepted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRequestNotFound
		}
		rows := []entity.Friendship{
			{UserID: me.ID, FriendID: requester.ID},
			{UserID: requester.ID, FriendID: me.ID},
		}
		return tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}

func (s *DBFriendService) Reject(ctx context.Context, username, from string) error {
	me, requester, err := s.users(ctx, username, from)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&entity.FriendRequest{}).
		Where("from_id = ? AND to_id = ? AND status = ?", requester.ID, me.ID, entity.RequestPending).
		Update("status", entity.RequestRejected)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRequestNotFound
	}
	return nil
}

func (s *DBFriendService) Remove(ctx context.Context, username, friend string) error {
	me, other, err := s.users(ctx, username, friend)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)", me.ID, other.ID, other.ID, me.ID).
			Delete(&entity.Friendship{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFriends
		}
		return nil
	})
}

func (s *DBFriendService) Friends(ctx context.Context, username string) ([]string, error) {
	names := []string{}
	err := s.db.WithContext(ctx).Table("friendships").
		Select("f.username").
		Joins("JOIN users f ON f.id = friendships.friend_id").
		Joins("JOIN users me ON me.id = friendships.user_id").
		Where("me.username = ?", username).
		Order("friendships.created_at ASC").
		Scan(&names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}
