package ws

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// newRelayedHubs starts two hubs sharing one in-process Redis, as two
// service instances would.
func newRelayedHubs(t *testing.T) (*Hub, *Hub) {
	t.Helper()
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := func() *Hub {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { rdb.Close() })
		return NewHub(ctx, rdb, zap.NewNop())
	}
	return hub(), hub()
}

func TestSendToUserCrossesInstances(t *testing.T) {
	a, b := newRelayedHubs(t)
	bob := attachFake(b, "b", 8)
	b.Login(bob, "bob")

	a.SendToUser("bob", EventTyping, M{"from": "alice"})
	env := waitFor(t, bob, EventTyping)
	if string(env.Data) != `{"from":"alice"}` {
		t.Errorf("Unexpected relayed payload %s", env.Data)
	}

	if a.IsOnline("bob") {
		t.Error("Presence is per instance; hub a must not list bob")
	}
}

func TestPresenceBroadcastSkipsSelfAcrossInstances(t *testing.T) {
	a, b := newRelayedHubs(t)
	bob := attachFake(b, "b", 8)
	alice := attachFake(a, "a", 8)

	a.Login(alice, "alice")
	env := waitFor(t, bob, EventUserOnline)
	if string(env.Data) != `"alice"` {
		t.Fatalf("Expected user_online alice on the other instance, got %s", env.Data)
	}

	// the marker travels the same relay after the broadcast
	a.SendToUser("alice", EventOnlineUsers, []string{"alice"})
	for {
		env, ok := nextEvent(t, alice)
		if !ok {
			t.Fatal("alice's channel closed")
		}
		if env.Event == EventUserOnline && string(env.Data) == `"alice"` {
			t.Fatal("user_online for alice reached alice itself")
		}
		if env.Event == EventOnlineUsers {
			break
		}
	}
}
