package entity

import "time"

const (
	NotificationLike    = "like"
	NotificationComment = "comment"
)

type Notification struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Type      string    `json:"type" gorm:"size:16;not null"`
	PostID    uint      `json:"postId" gorm:"index;not null"`
	From      string    `json:"from" gorm:"column:from_user;size:64;not null"`
	To        string    `json:"to" gorm:"column:to_user;index;size:64;not null"`
	Text      string    `json:"text,omitempty" gorm:"type:text"`
	Read      bool      `json:"read" gorm:"column:is_read;index;default:false"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
}

type MarkReadRequest struct {
	Username string `json:"username" binding:"required"`
}
