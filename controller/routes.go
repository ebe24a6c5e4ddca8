package controller

import "github.com/gin-gonic/gin"

type Controllers struct {
	Auth          *AuthController
	Users         *UserController
	Posts         *PostController
	Notifications *NotificationController
}

// Register mounts the REST surface on r. auth guards routes that act on
// behalf of the path user.
func (cs Controllers) Register(r gin.IRouter, auth gin.HandlerFunc) {
	r.POST("/signup", cs.Auth.SignUp)
	r.POST("/login", cs.Auth.Login)

	r.GET("/users", cs.Users.Search)
	user := r.Group("/user/:username")
	{
		user.GET("", cs.Users.Profile)
		user.POST("/profile-pic", auth, cs.Users.SetProfilePic)
	}

	posts := r.Group("/posts")
	{
		posts.POST("", cs.Posts.Create)
		posts.GET("", cs.Posts.List)
		posts.POST("/:id/like", cs.Posts.Like)
		posts.POST("/:id/comment", cs.Posts.Comment)
	}

	notes := r.Group("/notifications")
	{
		notes.GET("", cs.Notifications.List)
		notes.POST("/mark-read", cs.Notifications.MarkRead)
	}
}
