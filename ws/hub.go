package ws

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	userChannelPrefix = "chat:user:"
	broadcastChannel  = "chat:broadcast"
)

// Hub owns the live clients and the presence registry. All writes to a
// client's send channel happen on the run goroutine.
type Hub struct {
	ctx      context.Context
	rdb      *redis.Client
	log      *zap.Logger
	registry *Registry

	clients  map[*Client]bool
	attach   chan *Client
	detach   chan *Client
	login    chan loginRequest
	outbound chan *delivery
}

type loginRequest struct {
	client   *Client
	username string
	done     chan struct{}
}

// delivery targets exactly one of client, user or every client.
type delivery struct {
	client  *Client
	user    string
	all     bool
	except  string
	payload []byte
}

// relayed is what goes over Redis between instances.
type relayed struct {
	Except  string          `json:"except,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// NewHub starts the hub loop. A nil rdb keeps delivery local to this process.
func NewHub(ctx context.Context, rdb *redis.Client, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		ctx:      ctx,
		rdb:      rdb,
		log:      log,
		registry: NewRegistry(),
		clients:  make(map[*Client]bool),
		attach:   make(chan *Client),
		detach:   make(chan *Client),
		login:    make(chan loginRequest),
		outbound: make(chan *delivery, 256),
	}
	if rdb != nil {
		// subscribe before returning so nothing published after NewHub is missed
		pubsub := rdb.PSubscribe(ctx, userChannelPrefix+"*", broadcastChannel)
		if _, err := pubsub.Receive(ctx); err != nil {
			log.Error("redis subscribe failed", zap.Error(err))
		}
		go h.relay(pubsub)
	}
	go h.run()
	return h
}

func (h *Hub) Registry() *Registry { return h.registry }

func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case c := <-h.attach:
			h.clients[c] = true
		case c := <-h.detach:
			h.drop(c)
		case req := <-h.login:
			h.handleLogin(req)
		case d := <-h.outbound:
			h.deliver(d)
		}
	}
}

func (h *Hub) handleLogin(req loginRequest) {
	defer close(req.done)
	c := req.client
	if !h.clients[c] {
		return
	}
	c.username = req.username
	if prev := h.registry.Register(req.username, c); prev != nil {
		h.log.Info("session replaced", zap.String("user", req.username), zap.String("old", prev.id), zap.String("new", c.id))
		if h.clients[prev] {
			h.push(prev, mustEncode(EventSessionReplaced, M{"username": req.username}))
		}
		// push drops prev itself when its buffer is full
		if h.clients[prev] {
			delete(h.clients, prev)
			close(prev.send)
		}
	}
	h.log.Debug("client registered", zap.String("user", req.username), zap.String("conn", c.id))
	h.announce(mustEncode(EventUserOnline, req.username), req.username)
}

// drop forgets c and closes its send channel. The presence entry is removed
// only if it still belongs to c.
func (h *Hub) drop(c *Client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	close(c.send)
	if c.username != "" && h.registry.Unregister(c.username, c) {
		h.log.Debug("client unregistered", zap.String("user", c.username), zap.String("conn", c.id))
		h.announce(mustEncode(EventUserOffline, c.username), c.username)
	}
}

func (h *Hub) push(c *Client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		h.log.Warn("client send buffer full, dropping connection", zap.String("user", c.username), zap.String("conn", c.id))
		h.drop(c)
	}
}

func (h *Hub) deliver(d *delivery) {
	switch {
	case d.client != nil:
		if h.clients[d.client] {
			h.push(d.client, d.payload)
		}
	case d.user != "":
		if c, ok := h.registry.Lookup(d.user); ok && h.clients[c] {
			h.push(c, d.payload)
		}
	case d.all:
		h.fanOut(d.payload, d.except)
	}
}

// fanOut sends to every attached client except the one logged in as except.
func (h *Hub) fanOut(payload []byte, except string) {
	for c := range h.clients {
		if except != "" && c.username == except {
			continue
		}
		h.push(c, payload)
	}
}

// announce is the presence broadcast issued from inside the loop.
func (h *Hub) announce(payload []byte, except string) {
	if h.rdb != nil {
		h.publish(broadcastChannel, relayed{Except: except, Payload: payload})
		return
	}
	h.fanOut(payload, except)
}

func (h *Hub) enqueue(d *delivery) {
	select {
	case h.outbound <- d:
	case <-h.ctx.Done():
	}
}

// Attach tracks a freshly upgraded connection in the Anonymous state.
func (h *Hub) Attach(c *Client) {
	select {
	case h.attach <- c:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Detach(c *Client) {
	select {
	case h.detach <- c:
	case <-h.ctx.Done():
	}
}

// Login binds username to c and returns once presence is updated. A previous
// session for the same user is told it was replaced and closed.
func (h *Hub) Login(c *Client, username string) {
	req := loginRequest{client: c, username: username, done: make(chan struct{})}
	select {
	case h.login <- req:
	case <-h.ctx.Done():
		return
	}
	select {
	case <-req.done:
	case <-h.ctx.Done():
	}
}

// Reply sends an event to one connection, logged in or not.
func (h *Hub) Reply(c *Client, event string, data interface{}) {
	payload, err := encode(event, data)
	if err != nil {
		h.log.Error("encode event", zap.String("event", event), zap.Error(err))
		return
	}
	h.enqueue(&delivery{client: c, payload: payload})
}

// SendToUser delivers an event to username's live connection on whichever
// instance holds it. Offline users simply miss the push.
func (h *Hub) SendToUser(username, event string, data interface{}) {
	payload, err := encode(event, data)
	if err != nil {
		h.log.Error("encode event", zap.String("event", event), zap.Error(err))
		return
	}
	if h.rdb != nil {
		h.publish(userChannelPrefix+username, relayed{Payload: payload})
		return
	}
	h.enqueue(&delivery{user: username, payload: payload})
}

func (h *Hub) IsOnline(username string) bool {
	_, ok := h.registry.Lookup(username)
	return ok
}

func (h *Hub) publish(channel string, msg relayed) {
	b, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("encode relay", zap.Error(err))
		return
	}
	if err := h.rdb.Publish(h.ctx, channel, b).Err(); err != nil {
		h.log.Error("redis publish failed", zap.String("channel", channel), zap.Error(err))
	}
}

// relay feeds events published by any instance into the local loop.
func (h *Hub) relay(pubsub *redis.PubSub) {
	defer pubsub.Close()
	ch := pubsub.Channel()
	for {
		select {
		case <-h.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var r relayed
			if err := json.Unmarshal([]byte(msg.Payload), &r); err != nil {
				h.log.Warn("bad relay payload", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if msg.Channel == broadcastChannel {
				h.enqueue(&delivery{all: true, except: r.Except, payload: r.Payload})
				continue
			}
			h.enqueue(&delivery{user: strings.TrimPrefix(msg.Channel, userChannelPrefix), payload: r.Payload})
		}
	}
}
