package entity

import "time"

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string    `json:"-" gorm:"size:191"`
	ProfilePic   string    `json:"profilePic" gorm:"size:512"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Friendship is stored once per direction so that listing the friends of a
// user is a single indexed lookup.
type Friendship struct {
	UserID    uint      `gorm:"primaryKey"`
	FriendID  uint      `gorm:"primaryKey"`
	Friend    User      `gorm:"foreignKey:FriendID"`
	CreatedAt time.Time
}

type SignUpRequest struct {
	Username string `json:"username" binding:"required,min=1,max=64"`
	Password string `json:"password" binding:"required,min=1"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type Profile struct {
	Username   string   `json:"username"`
	ProfilePic string   `json:"profilePic"`
	Friends    []string `json:"friends"`
	Online     bool     `json:"online"`
}
