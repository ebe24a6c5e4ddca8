package ws

import (
	"context"

	"go.uber.org/zap"

	"github.com/hemantmeena2005/chat/entity"
	"github.com/hemantmeena2005/chat/service"
)

// Dispatcher records like/comment notifications and pushes them to the post
// author when they are connected.
type Dispatcher struct {
	hub   *Hub
	notes service.NotificationService
	log   *zap.Logger
}

func NewDispatcher(h *Hub, notes service.NotificationService, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{hub: h, notes: notes, log: log}
}

func (d *Dispatcher) Liked(ctx context.Context, post *entity.Post, actor string) (*entity.Notification, error) {
	return d.dispatch(ctx, &entity.Notification{
		Type:   entity.NotificationLike,
		PostID: post.ID,
		From:   actor,
		To:     post.Author,
	})
}

func (d *Dispatcher) Commented(ctx context.Context, post *entity.Post, actor, text string) (*entity.Notification, error) {
	return d.dispatch(ctx, &entity.Notification{
		Type:   entity.NotificationComment,
		PostID: post.ID,
		From:   actor,
		To:     post.Author,
		Text:   text,
	})
}

// dispatch returns a nil notification when the actor is the author.
func (d *Dispatcher) dispatch(ctx context.Context, n *entity.Notification) (*entity.Notification, error) {
	if n.From == n.To {
		return nil, nil
	}
	if err := d.notes.Create(ctx, n); err != nil {
		return nil, err
	}
	d.log.Debug("notification stored", zap.String("type", n.Type), zap.String("to", n.To), zap.Uint("post", n.PostID))
	d.hub.SendToUser(n.To, EventNotification, n)
	return n, nil
}
