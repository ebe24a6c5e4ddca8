package entity

import "time"

type Post struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	Author    string     `json:"author" gorm:"index;size:64;not null"`
	Image     string     `json:"image,omitempty" gorm:"size:512"`
	Caption   string     `json:"caption,omitempty" gorm:"type:text"`
	Likes     []PostLike `json:"-"`
	LikedBy   []string   `json:"likes" gorm:"-"`
	Comments  []Comment  `json:"comments"`
	CreatedAt time.Time  `json:"createdAt" gorm:"index"`
}

type PostLike struct {
	PostID    uint   `gorm:"primaryKey"`
	Username  string `gorm:"primaryKey;size:64"`
	CreatedAt time.Time
}

type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    uint      `json:"-" gorm:"index;not null"`
	User      string    `json:"user" gorm:"column:username;size:64;not null"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	Timestamp time.Time `json:"timestamp" gorm:"column:commented_at;autoCreateTime"`
}

// FillLikes copies the like rows into the usernames exposed on the wire.
func (p *Post) FillLikes() {
	p.LikedBy = make([]string, 0, len(p.Likes))
	for _, l := range p.Likes {
		p.LikedBy = append(p.LikedBy, l.Username)
	}
}

type LikeRequest struct {
	Username string `json:"username" binding:"required"`
}

type CommentRequest struct {
	Username string `json:"username" binding:"required"`
	Text     string `json:"text"`
}
