package entity

import "time"

// Message is a direct message between two users.
// Unread stays true until the recipient opens the conversation.
type Message struct {
	ID          uint      `gorm:"primaryKey"`
	SenderID    uint      `gorm:"index;not null"`
	Sender      User      `gorm:"foreignKey:SenderID"`
	RecipientID uint      `gorm:"index;not null"`
	Recipient   User      `gorm:"foreignKey:RecipientID"`
	Text        string    `gorm:"type:text"`
	ReplyToID   *uint     `gorm:"index"`
	ReplyTo     *Message  `gorm:"foreignKey:ReplyToID"`
	Unread      bool      `gorm:"index;default:true"`
	CreatedAt   time.Time `gorm:"index"`
}

// MessageHide records that a participant removed a message from their own view.
type MessageHide struct {
	MessageID uint `gorm:"primaryKey"`
	UserID    uint `gorm:"primaryKey"`
}

// MessageView is the wire shape of a message, with usernames resolved and the
// reply target's text inlined.
type MessageView struct {
	ID          uint      `json:"id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Text        string    `json:"text"`
	ReplyTo     *uint     `json:"replyTo"`
	ReplyToText string    `json:"replyToText,omitempty"`
	Unread      bool      `json:"unread"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (m *Message) View() MessageView {
	v := MessageView{
		ID:        m.ID,
		From:      m.Sender.Username,
		To:        m.Recipient.Username,
		Text:      m.Text,
		ReplyTo:   m.ReplyToID,
		Unread:    m.Unread,
		CreatedAt: m.CreatedAt,
	}
	if m.ReplyTo != nil {
		v.ReplyToText = m.ReplyTo.Text
	}
	return v
}
