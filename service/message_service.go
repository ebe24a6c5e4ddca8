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
	ErrEmptyText       = errors.New("message text is required")
	ErrMessageNotFound = errors.New("message not found")
	ErrReplyNotFound   = errors.New("reply target not in this conversation")
	ErrNotParticipant  = errors.New("not a participant of this conversation")
)

// Page selects a window of a conversation. Before is the id of the oldest
// message already seen; the page holds the messages created before it. Zero
// means "from the newest message".
type Page struct {
	Limit  int
	Before uint
}

type HistoryPage struct {
	Messages []entity.MessageView `json:"messages"`
	// NextBefore is the cursor for the next older page, zero when exhausted.
	NextBefore uint `json:"nextBefore"`
}

type DeleteResult struct {
	MessageID   uint
	ForEveryone bool
	From        string
	To          string
}

// MessageService defines operations for direct messages.
type MessageService interface {
	Send(ctx context.Context, from, to, text string, replyTo *uint) (*entity.MessageView, error)
	History(ctx context.Context, viewer, other string, page Page) (*HistoryPage, error)
	AllMessages(ctx context.Context, username string) (map[string][]entity.MessageView, error)
	MarkRead(ctx context.Context, reader, other string) (int64, error)
	UnreadCounts(ctx context.Context, username string) (map[string]int64, error)
	Delete(ctx context.Context, requester string, messageID uint) (*DeleteResult, error)
}

type DBMessageService struct {
	db           *gorm.DB
	defaultLimit int
	maxLimit     int
}

func NewMessageService(db *gorm.DB, defaultLimit, maxLimit int) *DBMessageService {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &DBMessageService{db: db, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

func (s *DBMessageService) user(ctx context.Context, username string) (*entity.User, error) {
	var u entity.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *DBMessageService) pair(ctx context.Context, a, b string) (*entity.User, *entity.User, error) {
	ua, err := s.user(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	ub, err := s.user(ctx, b)
	if err != nil {
		return nil, nil, err
	}
	return ua, ub, nil
}

func between(q *gorm.DB, a, b uint) *gorm.DB {
	return q.Where("((messages.sender_id = ? AND messages.recipient_id = ?) OR (messages.sender_id = ? AND messages.recipient_id = ?))", a, b, b, a)
}

func notHiddenFor(q *gorm.DB, userID uint) *gorm.DB {
	return q.Where("NOT EXISTS (SELECT 1 FROM message_hides h WHERE h.message_id = messages.id AND h.user_id = ?)", userID)
}

// Send persists the message and returns its populated view. Neither user is
// created here.
func (s *DBMessageService) Send(ctx context.Context, from, to, text string, replyTo *uint) (*entity.MessageView, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	sender, recipient, err := s.pair(ctx, from, to)
	if err != nil {
		return nil, err
	}

	m := &entity.Message{
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		Text:        text,
		Unread:      true,
	}
	if replyTo != nil {
		var target entity.Message
		err := between(s.db.WithContext(ctx).Model(&entity.Message{}), sender.ID, recipient.ID).
			Where("messages.id = ?", *replyTo).
			First(&target).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrReplyNotFound
			}
			return nil, err
		}
		m.ReplyToID = &target.ID
		m.ReplyTo = &target
	}

	// omit associations so the preloaded users are not upserted
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(m).Error; err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	m.Sender = *sender
	m.Recipient = *recipient
	v := m.View()
	return &v, nil
}

// History returns one page of the conversation in ascending creation order,
// without the messages the viewer has hidden.
func (s *DBMessageService) History(ctx context.Context, viewer, other string, page Page) (*HistoryPage, error) {
	me, them, err := s.pair(ctx, viewer, other)
	if err != nil {
		return nil, err
	}
	limit := page.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	q := s.db.WithContext(ctx).Model(&entity.Message{}).
		Preload("Sender").Preload("Recipient").Preload("ReplyTo")
	q = notHiddenFor(between(q, me.ID, them.ID), me.ID)
	if page.Before > 0 {
		// keyset on (created_at, id), the same key the page is sorted by
		var cursor entity.Message
		err := between(s.db.WithContext(ctx).Model(&entity.Message{}), me.ID, them.ID).
			Select("messages.id", "messages.created_at").
			Where("messages.id = ?", page.Before).
			First(&cursor).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrMessageNotFound
			}
			return nil, err
		}
		q = q.Where("(messages.created_at < ? OR (messages.created_at = ? AND messages.id < ?))",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var msgs []entity.Message
	if err := q.Order("messages.created_at DESC, messages.id DESC").Limit(limit + 1).Find(&msgs).Error; err != nil {
		return nil, err
	}

	out := &HistoryPage{Messages: make([]entity.MessageView, 0, len(msgs))}
	if len(msgs) > limit {
		msgs = msgs[:limit]
		out.NextBefore = msgs[limit-1].ID
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		out.Messages = append(out.Messages, msgs[i].View())
	}
	return out, nil
}

// AllMessages returns the newest page of every conversation the user takes
// part in, keyed by the other party's username.
func (s *DBMessageService) AllMessages(ctx context.Context, username string) (map[string][]entity.MessageView, error) {
	me, err := s.user(ctx, username)
	if err != nil {
		return nil, err
	}
	var partners []string
	err = s.db.WithContext(ctx).Raw(`
		SELECT DISTINCT u.username FROM messages m
		JOIN users u ON u.id = CASE WHEN m.sender_id = ? THEN m.recipient_id ELSE m.sender_id END
		WHERE m.sender_id = ? OR m.recipient_id = ?`, me.ID, me.ID, me.ID).
		Scan(&partners).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string][]entity.MessageView, len(partners))
	for _, p := range partners {
		page, err := s.History(ctx, username, p, Page{})
		if err != nil {
			return nil, err
		}
		if len(page.Messages) > 0 {
			out[p] = page.Messages
		}
	}
	return out, nil
}

// MarkRead flips every unread message other -> reader. Calling it again is a no-op.
func (s *DBMessageService) MarkRead(ctx context.Context, reader, other string) (int64, error) {
	me, them, err := s.pair(ctx, reader, other)
	if err != nil {
		return 0, err
	}
	res := s.db.WithContext(ctx).Model(&entity.Message{}).
		Where("sender_id = ? AND recipient_id = ? AND unread = ?", them.ID, me.ID, true).
		Updates(map[string]interface{}{"unread": false})
	return res.RowsAffected, res.Error
}

// UnreadCounts is recomputed from the store on every call.
func (s *DBMessageService) UnreadCounts(ctx context.Context, username string) (map[string]int64, error) {
	me, err := s.user(ctx, username)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Username string
		Count    int64
	}
	q := s.db.WithContext(ctx).Table("messages").
		Select("users.username AS username, COUNT(*) AS count").
		Joins("JOIN users ON users.id = messages.sender_id").
		Where("messages.recipient_id = ? AND messages.unread = ?", me.ID, true)
	if err := notHiddenFor(q, me.ID).Group("users.username").Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Username] = r.Count
	}
	return counts, nil
}

// Delete removes the message for everyone when the requester sent it, and
// only hides it from the requester otherwise.
func (s *DBMessageService) Delete(ctx context.Context, requester string, messageID uint) (*DeleteResult, error) {
	me, err := s.user(ctx, requester)
	if err != nil {
		return nil, err
	}
	var m entity.Message
	err = s.db.WithContext(ctx).Preload("Sender").Preload("Recipient").First(&m, messageID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}

	res := &DeleteResult{MessageID: m.ID, From: m.Sender.Username, To: m.Recipient.Username}
	switch me.ID {
	case m.SenderID:
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("message_id = ?", m.ID).Delete(&entity.MessageHide{}).Error; err != nil {
				return err
			}
			return tx.Delete(&entity.Message{}, m.ID).Error
		})
		res.ForEveryone = true
	case m.RecipientID:
		err = s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
			Create(&entity.MessageHide{MessageID: m.ID, UserID: me.ID}).Error
	default:
		return nil, ErrNotParticipant
	}
	if err != nil {
		return nil, fmt.Errorf("delete message %d: %w", m.ID, err)
	}
	return res, nil
}
