package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/hemantmeena2005/chat/entity"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrInvalidCreds = errors.New("invalid credentials")
	ErrUserNotFound = errors.New("user not found")
	ErrEmptyName    = errors.New("username is required")
)

// UserService interface abstracts user ops
type UserService interface {
	FindOrCreate(ctx context.Context, username string) (*entity.User, error)
	CreateUser(ctx context.Context, username, password string) (*entity.User, error)
	Authenticate(ctx context.Context, username, password string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	Search(ctx context.Context, query string, limit int) ([]string, error)
	SetProfilePic(ctx context.Context, username, ref string) error
}

type DBUserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *DBUserService {
	return &DBUserService{db: db}
}

// FindOrCreate returns the user record for username, creating a password-less
// one on first sight.
func (s *DBUserService) FindOrCreate(ctx context.Context, username string) (*entity.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrEmptyName
	}
	var u entity.User
	err := s.db.WithContext(ctx).Where(entity.User{Username: username}).FirstOrCreate(&u).Error
	if err != nil {
		// lost a race with a concurrent login for the same name
		if found, gerr := s.GetByUsername(ctx, username); gerr == nil {
			return found, nil
		}
		return nil, fmt.Errorf("find or create user: %w", err)
	}
	return &u, nil
}

func (s *DBUserService) CreateUser(ctx context.Context, username, password string) (*entity.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrEmptyName
	}
	var cnt int64
	if err := s.db.WithContext(ctx).Model(&entity.User{}).Where("username = ?", username).Count(&cnt).Error; err != nil {
		return nil, err
	}
	if cnt > 0 {
		return nil, ErrUserExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

func (s *DBUserService) Authenticate(ctx context.Context, username, password string) (*entity.User, error) {
	u, err := s.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCreds
		}
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, ErrInvalidCreds
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCreds
	}
	return u, nil
}

func (s *DBUserService) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	var u entity.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Search matches a case-insensitive substring of the username.
func (s *DBUserService) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	names := []string{}
	pattern := "%" + strings.ToLower(query) + "%"
	err := s.db.WithContext(ctx).Model(&entity.User{}).
		Where("LOWER(username) LIKE ?", pattern).
		Order("username ASC").
		Limit(limit).
		Pluck("username", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (s *DBUserService) SetProfilePic(ctx context.Context, username, ref string) error {
	res := s.db.WithContext(ctx).Model(&entity.User{}).Where("username = ?", username).Update("profile_pic", ref)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
