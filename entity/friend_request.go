package entity

import "time"

const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

type FriendRequest struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	FromID    uint      `json:"fromId" gorm:"index;not null"`
	From      User      `json:"-" gorm:"foreignKey:FromID"`
	ToID      uint      `json:"toId" gorm:"index;not null"`
	To        User      `json:"-" gorm:"foreignKey:ToID"`
	Status    string    `json:"status" gorm:"index;size:16;default:pending"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
