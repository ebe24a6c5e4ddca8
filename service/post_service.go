package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hemantmeena2005/chat/entity"
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrEmptyComment = errors.New("comment text is required")
	ErrEmptyPost    = errors.New("post needs an image or a caption")
)

type PostService interface {
	Create(ctx context.Context, author, caption, image string) (*entity.Post, error)
	List(ctx context.Context) ([]entity.Post, error)
	Get(ctx context.Context, id uint) (*entity.Post, error)
	// ToggleLike reports whether the user likes the post after the call.
	ToggleLike(ctx context.Context, id uint, username string) (*entity.Post, bool, error)
	Comment(ctx context.Context, id uint, username, text string) (*entity.Post, error)
}

type DBPostService struct {
	db *gorm.DB
}

func NewPostService(db *gorm.DB) *DBPostService {
	return &DBPostService{db: db}
}

func (s *DBPostService) Create(ctx context.Context, author, caption, image string) (*entity.Post, error) {
	if strings.TrimSpace(author) == "" {
		return nil, ErrEmptyName
	}
	if strings.TrimSpace(caption) == "" && image == "" {
		return nil, ErrEmptyPost
	}
	p := &entity.Post{Author: author, Caption: caption, Image: image}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	p.FillLikes()
	p.Comments = []entity.Comment{}
	return p, nil
}

func (s *DBPostService) withRelations(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Likes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("commented_at ASC, id ASC") })
}

// List returns posts newest first with likes and comments.
func (s *DBPostService) List(ctx context.Context) ([]entity.Post, error) {
	posts := []entity.Post{}
	if err := s.withRelations(ctx).Order("created_at DESC, id DESC").Find(&posts).Error; err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].FillLikes()
	}
	return posts, nil
}

func (s *DBPostService) Get(ctx context.Context, id uint) (*entity.Post, error) {
	var p entity.Post
	if err := s.withRelations(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	p.FillLikes()
	return &p, nil
}

func (s *DBPostService) ToggleLike(ctx context.Context, id uint, username string) (*entity.Post, bool, error) {
	if strings.TrimSpace(username) == "" {
		return nil, false, ErrEmptyName
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, false, err
	}
	liked := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND username = ?", id, username).Delete(&entity.PostLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		liked = true
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entity.PostLike{PostID: id, Username: username}).Error
	})
	if err != nil {
		return nil, false, fmt.Errorf("toggle like: %w", err)
	}
	p, err := s.Get(ctx, id)
	return p, liked, err
}

func (s *DBPostService) Comment(ctx context.Context, id uint, username, text string) (*entity.Post, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyComment
	}
	if strings.TrimSpace(username) == "" {
		return nil, ErrEmptyName
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	c := &entity.Comment{PostID: id, User: username, Text: strings.TrimSpace(text)}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return s.Get(ctx, id)
}
