package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hemantmeena2005/chat/entity"
	"github.com/hemantmeena2005/chat/middleware"
	"github.com/hemantmeena2005/chat/service"
	"github.com/hemantmeena2005/chat/storage"
)

const searchLimit = 20

// Presence reports whether a user holds a live socket.
type Presence interface {
	IsOnline(username string) bool
}

type UserController struct {
	users    service.UserService
	friends  service.FriendService
	presence Presence
	blobs    storage.BlobStore
	log      *zap.Logger
}

func NewUserController(users service.UserService, friends service.FriendService, presence Presence, blobs storage.BlobStore, log *zap.Logger) *UserController {
	return &UserController{users: users, friends: friends, presence: presence, blobs: blobs, log: log}
}

// Search handles GET /users?q=.
func (u *UserController) Search(c *gin.Context) {
	names, err := u.users.Search(c.Request.Context(), c.Query("q"), searchLimit)
	if err != nil {
		respondError(c, u.log, err)
		return
	}
	c.JSON(http.StatusOK, names)
}

func (u *UserController) Profile(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := u.users.GetByUsername(ctx, c.Param("username"))
	if err != nil {
		respondError(c, u.log, err)
		return
	}
	friends, err := u.friends.Friends(ctx, user.Username)
	if err != nil {
		respondError(c, u.log, err)
		return
	}
	c.JSON(http.StatusOK, entity.Profile{
		Username:   user.Username,
		ProfilePic: user.ProfilePic,
		Friends:    friends,
		Online:     u.presence.IsOnline(user.Username),
	})
}

// SetProfilePic stores the multipart "image" file. Only the user named in the
// path may change it.
func (u *UserController) SetProfilePic(c *gin.Context) {
	username := c.Param("username")
	if middleware.Username(c) != username {
		c.JSON(http.StatusForbidden, gin.H{"error": errForbidden.Error()})
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, u.log, err)
		return
	}
	defer f.Close()

	ctx := c.Request.Context()
	ref, err := u.blobs.Put(ctx, fh.Filename, f)
	if err != nil {
		respondError(c, u.log, err)
		return
	}
	if err := u.users.SetProfilePic(ctx, username, ref); err != nil {
		respondError(c, u.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": username, "profilePic": ref})
}
