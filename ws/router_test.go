package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hemantmeena2005/chat/config"
	"github.com/hemantmeena2005/chat/entity"
	"github.com/hemantmeena2005/chat/service"
	"github.com/hemantmeena2005/chat/store"
	"github.com/hemantmeena2005/chat/utils"
)

type testEnv struct {
	url     string
	hub     *Hub
	users   *service.DBUserService
	msgs    *service.DBMessageService
	friends *service.DBFriendService
}

func newTestEnv(t *testing.T, cfg RouterConfig) *testEnv {
	t.Helper()
	db, err := store.Open(config.DBConfig{Driver: "sqlite", DSN: ":memory:"}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())

	env := &testEnv{
		users:   service.NewUserService(db),
		msgs:    service.NewMessageService(db, 50, 200),
		friends: service.NewFriendService(db, 0),
	}
	env.hub = NewHub(ctx, nil, zap.NewNop())
	router := NewRouter(env.hub, env.users, env.msgs, env.friends, zap.NewNop(), cfg)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ServeWS(ctx, env.hub, router, c) })
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	env.url = "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	return env
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(e.url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func emit(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	t.Helper()
	raw, _ := json.Marshal(data)
	if err := conn.WriteJSON(Envelope{Event: event, Data: raw}); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

// until reads frames up to and including event and returns everything seen.
func until(t *testing.T, conn *websocket.Conn, event string) []Envelope {
	t.Helper()
	var seen []Envelope
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("waiting for %s: %v (seen %v)", event, err, seen)
		}
		seen = append(seen, env)
		if env.Event == event {
			return seen
		}
	}
}

func last(envs []Envelope) Envelope { return envs[len(envs)-1] }

func count(envs []Envelope, event string) int {
	n := 0
	for _, e := range envs {
		if e.Event == event {
			n++
		}
	}
	return n
}

// roundTrip round-trips get_online_users so every earlier push has been read.
func roundTrip(t *testing.T, conn *websocket.Conn) []Envelope {
	t.Helper()
	emit(t, conn, EventGetOnlineUsers, nil)
	return until(t, conn, EventOnlineUsers)
}

func (e *testEnv) login(t *testing.T, name string) *websocket.Conn {
	t.Helper()
	conn := e.dial(t)
	emit(t, conn, EventLogin, name)
	until(t, conn, EventOnlineUsers)
	return conn
}

func TestSendMessageDeliversOnceToEachParty(t *testing.T) {
	env := newTestEnv(t, RouterConfig{})
	alice := env.login(t, "alice")
	bob := env.login(t, "bob")
	until(t, alice, EventUserOnline)

	emit(t, alice, EventSendMessage, M{"to": "bob", "text": "hi", "replyTo": nil})

	got := until(t, bob, EventReceiveMessage)
	var msg entity.MessageView
	if err := json.Unmarshal(last(got).Data, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.From != "alice" || msg.To != "bob" || msg.Text != "hi" || msg.ReplyTo != nil {
		t.Fatalf("Unexpected delivery %+v", msg)
	}
	until(t, alice, EventReceiveMessage)

	if n := count(roundTrip(t, bob), EventReceiveMessage); n != 0 {
		t.Errorf("Bob got %d duplicate deliveries", n)
	}
	if n := count(roundTrip(t, alice), EventReceiveMessage); n != 0 {
		t.Errorf("Alice got %d duplicate deliveries", n)
	}

	emit(t, bob, EventGetMessages, M{"withUser": "alice"})
	hist := last(until(t, bob, EventChatHistory))
	var page struct {
		WithUser   string               `json:"withUser"`
		Messages   []entity.MessageView `json:"messages"`
		NextBefore uint                 `json:"nextBefore"`
	}
	if err := json.Unmarshal(hist.Data, &page); err != nil {
		t.Fatal(err)
	}
	if len(page.Messages) != 1 || page.Messages[0].ID != msg.ID || page.WithUser != "alice" {
		t.Errorf("Unexpected history %+v", page)
	}
}

func TestSendToOfflineUserIsStoredOnly(t *testing.T) {
	env := newTestEnv(t, RouterConfig{})
	if _, err := env.users.FindOrCreate(context.Background(), "bob"); err != nil {
		t.Fatal(err)
	}
	alice := env.login(t, "alice")

	emit(t, alice, EventSendMessage, M{"to": "bob", "text": "are you there?"})
	until(t, alice, EventReceiveMessage)

	counts, err := env.msgs.UnreadCounts(context.Background(), "bob")
	if err != nil || counts["alice"] != 1 {
		t.Fatalf("Expected one unread for bob, got %v (%v)", counts, err)
	}

	bob := env.login(t, "bob")
	emit(t, bob, EventGetUnreadCounts, nil)
	var got map[string]int64
	json.Unmarshal(last(until(t, bob, EventUnreadCounts)).Data, &got)
	if got["alice"] != 1 {
		t.Errorf("Expected unread_counts {alice:1}, got %v", got)
	}

	emit(t, bob, EventMarkRead, M{"withUser": "alice"})
	until(t, alice, EventMessagesRead)
	emit(t, bob, EventMarkRead, M{"withUser": "alice"})
	emit(t, bob, EventGetUnreadCounts, nil)
	got = nil
	json.Unmarshal(last(until(t, bob, EventUnreadCounts)).Data, &got)
	if len(got) != 0 {
		t.Errorf("Expected no unread after mark_read, got %v", got)
	}
}

func TestSendToUnknownUserIsSilent(t *testing.T) {
	env := newTestEnv(t, RouterConfig{})
	alice := env.login(t, "alice")

	emit(t, alice, EventSendMessage, M{"to": "ghost", "text": "hello"})
	if seen := roundTrip(t, alice); count(seen, EventReceiveMessage)+count(seen, EventError) != 0 {
		t.Errorf("Expected silent no-op, got %v", seen)
	}
	if _, err := env.users.GetByUsername(context.Background(), "ghost"); err == nil {
		t.Error("Sending must not create the recipient")
	}
}

// barrier works on anonymous connections, where every routed event is dropped.
func barrier(t *testing.T, conn *websocket.Conn) []Envelope {
	t.Helper()
	emit(t, conn, "ping_barrier", nil)
	return until(t, conn, EventError)
}

func TestAnonymousEventsAreIgnored(t *testing.T) {
	env := newTestEnv(t, RouterConfig{})
	conn := env.dial(t)

	emit(t, conn, EventGetFriends, nil)
	emit(t, conn, EventSendMessage, M{"to": "bob", "text": "x"})
	emit(t, conn, EventGetOnlineUsers, nil)
	seen := barrier(t, conn)
	if len(seen) != 1 || !strings.Contains(string(seen[0].Data), "unsupported_event") {
		t.Errorf("Expected only the unsupported_event reply, got %v", seen)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if e := last(until(t, conn, EventError)); !strings.Contains(string(e.Data), "invalid_json") {
		t.Errorf("Expected invalid_json, got %s", e.Data)
	}
}

func TestDeleteMessageScopes(t *testing.T) {
	env := newTestEnv(t, RouterConfig{})
	alice := env.login(t, "alice")
	bob := env.login(t, "bob")
	carol := env.login(t, "carol")

	emit(t, alice, EventSendMessage, M{"to": "bob", "text": "oops"})
	var oops entity.MessageView
	json.Unmarshal(last(until(t, bob, EventReceiveMessage)).Data, &oops)
	emit(t, alice, EventSendMessage, M{"to": "bob", "text": "keep"})
	var keep entity.MessageView
	json.Unmarshal(last(until(t, bob, EventReceiveMessage)).Data, &keep)

	// sender deletes for both participants
	emit(t, alice, EventDeleteMessage, M{"messageId": oops.ID})
	until(t, alice, EventMessageDeleted)
	until(t, bob, EventMessageDeleted)
	if n := count(roundTrip(t, carol), EventMessageDeleted); n != 0 {
		t.Errorf("Bystander received %d deletion events", n)
	}

	// recipient only hides
	emit(t, bob, EventDeleteMessage, M{"messageId": keep.ID})
	until(t, bob, EventMessageDeleted)
	if n := count(roundTrip(t, alice), EventMessageDeleted); n != 0 {
		t.Errorf("Alice must not see bob's hide, got %d events", n)
	}

	ctx := context.Background()
	ah, _ := env.msgs.History(ctx, "alice", "bob", service.Page{})
	bh, _ := env.msgs.History(ctx, "bob", "alice", service.Page{})
	if len(ah.Messages) != 1 || ah.Messages[0].ID != keep.ID {
		t.Errorf("Alice history %+v", ah.Messages)
	}
	if len(bh.Messages) != 0 {
		t.Errorf("Bob history %+v", bh.Messages)
	}
}

func TestFriendRequestEvents(t *testing.T) {
	env := newTestEnv(t, RouterConfig{})
	alice := env.login(t, "alice")
	bob := env.login(t, "bob")

	emit(t, alice, EventSendFriendRequest, M{"to": "bob"})
	if e := last(until(t, bob, EventFriendRequestReceived)); !strings.Contains(string(e.Data), "alice") {
		t.Errorf("Unexpected request payload %s", e.Data)
	}
	// repeated while pending is a no-op
	emit(t, alice, EventSendFriendRequest, M{"to": "bob"})
	if n := count(roundTrip(t, bob), EventFriendRequestReceived); n != 0 {
		t.Errorf("Expected no duplicate request, got %d", n)
	}

	emit(t, bob, EventGetFriendRequests, nil)
	var pending []string
	json.Unmarshal(last(until(t, bob, EventFriendRequests)).Data, &pending)
	if len(pending) != 1 || pending[0] != "alice" {
		t.Fatalf("Expected [alice], got %v", pending)
	}

	emit(t, bob, EventAcceptFriendRequest, M{"from": "alice"})
	var bobs, alices []string
	json.Unmarshal(last(until(t, bob, EventFriendsUpdated)).Data, &bobs)
	json.Unmarshal(last(until(t, alice, EventFriendsUpdated)).Data, &alices)
	if len(bobs) != 1 || bobs[0] != "alice" || len(alices) != 1 || alices[0] != "bob" {
		t.Errorf("Unexpected friend lists bob=%v alice=%v", bobs, alices)
	}

	emit(t, alice, EventRemoveFriend, M{"friend": "bob"})
	json.Unmarshal(last(until(t, bob, EventFriendsUpdated)).Data, &bobs)
	if len(bobs) != 0 {
		t.Errorf("Expected empty list after removal, got %v", bobs)
	}
}

func TestRejectFriendRequestEvent(t *testing.T) {
	env := newTestEnv(t, RouterConfig{})
	alice := env.login(t, "alice")
	bob := env.login(t, "bob")

	emit(t, alice, EventSendFriendRequest, M{"to": "bob"})
	until(t, bob, EventFriendRequestReceived)
	emit(t, bob, EventRejectFriendRequest, M{"from": "alice"})
	var pending []string
	json.Unmarshal(last(until(t, bob, EventFriendRequests)).Data, &pending)
	if len(pending) != 0 {
		t.Errorf("Expected no pending after reject, got %v", pending)
	}

	emit(t, bob, EventGetFriends, nil)
	var friends []string
	json.Unmarshal(last(until(t, bob, EventFriends)).Data, &friends)
	if len(friends) != 0 {
		t.Errorf("Expected no friends, got %v", friends)
	}
}

func TestTypingRelay(t *testing.T) {
	env := newTestEnv(t, RouterConfig{})
	alice := env.login(t, "alice")
	bob := env.login(t, "bob")

	emit(t, alice, EventTyping, M{"to": "bob"})
	if e := last(until(t, bob, EventTyping)); !strings.Contains(string(e.Data), `"alice"`) {
		t.Errorf("Unexpected typing payload %s", e.Data)
	}
	emit(t, alice, EventStopTyping, M{"to": "bob"})
	until(t, bob, EventStopTyping)
}

func TestSecondLoginClosesOldConnection(t *testing.T) {
	env := newTestEnv(t, RouterConfig{})
	old := env.login(t, "alice")
	fresh := env.login(t, "alice")

	until(t, old, EventSessionReplaced)
	_ = old.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := old.ReadMessage(); err == nil {
		t.Error("Expected the replaced connection to be closed")
	}

	bob := env.login(t, "bob")
	emit(t, bob, EventSendMessage, M{"to": "alice", "text": "which one?"})
	until(t, fresh, EventReceiveMessage)
}

func TestLoginRequiresToken(t *testing.T) {
	secret := []byte("k")
	env := newTestEnv(t, RouterConfig{TokenSecret: secret, RequireToken: true})

	conn := env.dial(t)
	emit(t, conn, EventLogin, "alice")
	barrier(t, conn)
	if env.hub.IsOnline("alice") {
		t.Fatal("Login without token must be ignored")
	}

	tok, _ := utils.GenerateToken(secret, "alice", time.Minute)
	emit(t, conn, EventLogin, M{"username": "alice", "token": tok})
	until(t, conn, EventOnlineUsers)
	if !env.hub.IsOnline("alice") {
		t.Fatal("Expected token login to succeed")
	}
}
