package controller

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hemantmeena2005/chat/entity"
	"github.com/hemantmeena2005/chat/service"
	"github.com/hemantmeena2005/chat/storage"
)

// Notifier records and pushes like/comment notifications to the post author.
type Notifier interface {
	Liked(ctx context.Context, post *entity.Post, actor string) (*entity.Notification, error)
	Commented(ctx context.Context, post *entity.Post, actor, text string) (*entity.Notification, error)
}

type PostController struct {
	posts    service.PostService
	notifier Notifier
	blobs    storage.BlobStore
	log      *zap.Logger
}

func NewPostController(posts service.PostService, notifier Notifier, blobs storage.BlobStore, log *zap.Logger) *PostController {
	return &PostController{posts: posts, notifier: notifier, blobs: blobs, log: log}
}

// Create handles a multipart post: optional "image", "caption", "username".
func (p *PostController) Create(c *gin.Context) {
	username := c.PostForm("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errUsernameMissing.Error()})
		return
	}
	ctx := c.Request.Context()

	var image string
	fh, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	default:
		f, err := fh.Open()
		if err != nil {
			respondError(c, p.log, err)
			return
		}
		image, err = p.blobs.Put(ctx, fh.Filename, f)
		f.Close()
		if err != nil {
			respondError(c, p.log, err)
			return
		}
	}

	post, err := p.posts.Create(ctx, username, c.PostForm("caption"), image)
	if err != nil {
		respondError(c, p.log, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (p *PostController) List(c *gin.Context) {
	posts, err := p.posts.List(c.Request.Context())
	if err != nil {
		respondError(c, p.log, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// Like toggles the like of username; only a new like notifies the author.
func (p *PostController) Like(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req entity.LikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	post, liked, err := p.posts.ToggleLike(ctx, id, req.Username)
	if err != nil {
		respondError(c, p.log, err)
		return
	}
	if liked {
		if _, err := p.notifier.Liked(ctx, post, req.Username); err != nil {
			p.log.Error("like notification", zap.Uint("post", post.ID), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, post)
}

func (p *PostController) Comment(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req entity.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	post, err := p.posts.Comment(ctx, id, req.Username, req.Text)
	if err != nil {
		respondError(c, p.log, err)
		return
	}
	if _, err := p.notifier.Commented(ctx, post, req.Username, strings.TrimSpace(req.Text)); err != nil {
		p.log.Error("comment notification", zap.Uint("post", post.ID), zap.Error(err))
	}
	c.JSON(http.StatusOK, post)
}
