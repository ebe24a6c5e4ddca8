package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hemantmeena2005/chat/service"
	"github.com/hemantmeena2005/chat/utils"
)

type RouterConfig struct {
	TokenSecret  []byte
	RequireToken bool
	ReadLimit    int64
	EventTimeout time.Duration
}

// Router turns socket events into store calls and fans the results out
// through the hub.
type Router struct {
	hub     *Hub
	users   service.UserService
	msgs    service.MessageService
	friends service.FriendService
	log     *zap.Logger
	routes  map[string]handlerFunc

	secret       []byte
	requireToken bool
	readLimit    int64
	eventTimeout time.Duration
}

func NewRouter(h *Hub, users service.UserService, msgs service.MessageService, friends service.FriendService, log *zap.Logger, cfg RouterConfig) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = 64 << 10
	}
	if cfg.EventTimeout <= 0 {
		cfg.EventTimeout = 10 * time.Second
	}
	r := &Router{
		hub:          h,
		users:        users,
		msgs:         msgs,
		friends:      friends,
		log:          log,
		secret:       cfg.TokenSecret,
		requireToken: cfg.RequireToken,
		readLimit:    cfg.ReadLimit,
		eventTimeout: cfg.EventTimeout,
	}
	r.routes = r.handlers()
	return r
}

type handlerFunc func(ctx context.Context, c *Client, data json.RawMessage) error

func (r *Router) handlers() map[string]handlerFunc {
	return map[string]handlerFunc{
		EventSendMessage:         r.sendMessage,
		EventGetMessages:         r.getMessages,
		EventGetAllMessages:      r.getAllMessages,
		EventMarkRead:            r.markRead,
		EventGetUnreadCounts:     r.getUnreadCounts,
		EventTyping:              r.typing(EventTyping),
		EventStopTyping:          r.typing(EventStopTyping),
		EventDeleteMessage:       r.deleteMessage,
		EventGetOnlineUsers:      r.getOnlineUsers,
		EventSendFriendRequest:   r.sendFriendRequest,
		EventGetFriendRequests:   r.getFriendRequests,
		EventAcceptFriendRequest: r.acceptFriendRequest,
		EventRejectFriendRequest: r.rejectFriendRequest,
		EventRemoveFriend:        r.removeFriend,
		EventGetFriends:          r.getFriends,
	}
}

// errNoop marks a missing precondition; the event is dropped without a reply.
var errNoop = errors.New("noop")

// Handle runs one event to completion. Events are processed in arrival order
// per connection.
func (r *Router) Handle(ctx context.Context, c *Client, env Envelope) {
	ctx, cancel := context.WithTimeout(ctx, r.eventTimeout)
	defer cancel()

	var err error
	if env.Event == EventLogin {
		err = r.login(ctx, c, env.Data)
	} else if h, ok := r.routes[env.Event]; !ok {
		r.hub.Reply(c, EventError, M{"error": "unsupported_event"})
		return
	} else if c.username == "" {
		err = errNoop
	} else {
		err = h(ctx, c, env.Data)
	}

	switch {
	case err == nil:
	case isNoop(err):
		r.log.Debug("event ignored", zap.String("event", env.Event), zap.String("user", c.username), zap.Error(err))
	default:
		r.log.Error("event failed", zap.String("event", env.Event), zap.String("user", c.username), zap.Error(err))
		r.hub.Reply(c, EventError, M{"error": "internal"})
	}
}

func isNoop(err error) bool {
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	return errors.Is(err, errNoop) ||
		errors.As(err, &syn) || errors.As(err, &typ) ||
		errors.Is(err, service.ErrUserNotFound) ||
		errors.Is(err, service.ErrEmptyName) ||
		errors.Is(err, service.ErrEmptyText) ||
		errors.Is(err, service.ErrReplyNotFound) ||
		errors.Is(err, service.ErrMessageNotFound) ||
		errors.Is(err, service.ErrNotParticipant) ||
		errors.Is(err, service.ErrSelfRequest) ||
		errors.Is(err, service.ErrAlreadyFriends) ||
		errors.Is(err, service.ErrRequestPending) ||
		errors.Is(err, service.ErrRequestCooldown) ||
		errors.Is(err, service.ErrRequestNotFound) ||
		errors.Is(err, service.ErrNotFriends)
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return errNoop
	}
	return json.Unmarshal(data, v)
}

// login moves the connection from Anonymous to Authenticated.
func (r *Router) login(ctx context.Context, c *Client, data json.RawMessage) error {
	if c.username != "" {
		return errNoop
	}
	var in loginData
	if err := decode(data, &in); err != nil {
		return err
	}
	if in.Username == "" {
		return errNoop
	}
	if r.requireToken {
		claims, err := utils.ValidateToken(r.secret, in.Token)
		if err != nil || claims.Subject != in.Username {
			return errNoop
		}
	}
	u, err := r.users.FindOrCreate(ctx, in.Username)
	if err != nil {
		return err
	}
	r.hub.Login(c, u.Username)
	r.hub.Reply(c, EventOnlineUsers, r.hub.Registry().Online())
	return nil
}

func (r *Router) sendMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	var in sendMessageData
	if err := decode(data, &in); err != nil {
		return err
	}
	if in.To == "" {
		return errNoop
	}
	msg, err := r.msgs.Send(ctx, c.username, in.To, in.Text, in.ReplyTo)
	if err != nil {
		return err
	}
	// stored before any delivery attempt; offline parties pull history later
	r.hub.SendToUser(msg.To, EventReceiveMessage, msg)
	if msg.From != msg.To {
		r.hub.SendToUser(msg.From, EventReceiveMessage, msg)
	}
	return nil
}

func (r *Router) getMessages(ctx context.Context, c *Client, data json.RawMessage) error {
	var in withUserData
	if err := decode(data, &in); err != nil {
		return err
	}
	if in.WithUser == "" {
		return errNoop
	}
	page, err := r.msgs.History(ctx, c.username, in.WithUser, service.Page{Limit: in.Limit, Before: in.Before})
	if err != nil {
		return err
	}
	r.hub.Reply(c, EventChatHistory, M{
		"withUser":   in.WithUser,
		"messages":   page.Messages,
		"nextBefore": page.NextBefore,
	})
	return nil
}

func (r *Router) getAllMessages(ctx context.Context, c *Client, _ json.RawMessage) error {
	all, err := r.msgs.AllMessages(ctx, c.username)
	if err != nil {
		return err
	}
	r.hub.Reply(c, EventAllMessages, all)
	return nil
}

func (r *Router) markRead(ctx context.Context, c *Client, data json.RawMessage) error {
	var in withUserData
	if err := decode(data, &in); err != nil {
		return err
	}
	if in.WithUser == "" {
		return errNoop
	}
	n, err := r.msgs.MarkRead(ctx, c.username, in.WithUser)
	if err != nil {
		return err
	}
	if n > 0 {
		r.hub.SendToUser(in.WithUser, EventMessagesRead, M{"by": c.username})
	}
	return nil
}

func (r *Router) getUnreadCounts(ctx context.Context, c *Client, _ json.RawMessage) error {
	counts, err := r.msgs.UnreadCounts(ctx, c.username)
	if err != nil {
		return err
	}
	r.hub.Reply(c, EventUnreadCounts, counts)
	return nil
}

// typing relays an indicator without touching the store.
func (r *Router) typing(event string) handlerFunc {
	return func(_ context.Context, c *Client, data json.RawMessage) error {
		var in toData
		if err := decode(data, &in); err != nil {
			return err
		}
		if in.To == "" || in.To == c.username {
			return errNoop
		}
		r.hub.SendToUser(in.To, event, M{"from": c.username})
		return nil
	}
}

func (r *Router) deleteMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	var in messageIDData
	if err := decode(data, &in); err != nil {
		return err
	}
	if in.MessageID == 0 {
		return errNoop
	}
	res, err := r.msgs.Delete(ctx, c.username, in.MessageID)
	if err != nil {
		return err
	}
	evt := M{"messageId": res.MessageID}
	if !res.ForEveryone {
		r.hub.Reply(c, EventMessageDeleted, evt)
		return nil
	}
	r.hub.SendToUser(res.From, EventMessageDeleted, evt)
	if res.To != res.From {
		r.hub.SendToUser(res.To, EventMessageDeleted, evt)
	}
	return nil
}

func (r *Router) getOnlineUsers(_ context.Context, c *Client, _ json.RawMessage) error {
	r.hub.Reply(c, EventOnlineUsers, r.hub.Registry().Online())
	return nil
}
