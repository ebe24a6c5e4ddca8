package ws

import (
	"sort"
	"sync"
)

// Registry maps a logged-in username to its single live client.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string]*Client)}
}

// Register points username at c and returns the client it replaced, if any.
func (r *Registry) Register(username string, c *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.byUser[username]
	r.byUser[username] = c
	if prev == c {
		return nil
	}
	return prev
}

func (r *Registry) Lookup(username string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[username]
	return c, ok
}

// Unregister removes the entry only while it still points at c, so a late
// disconnect of a replaced session leaves the newer login in place.
func (r *Registry) Unregister(username string, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.byUser[username]; ok && cur == c {
		delete(r.byUser, username)
		return true
	}
	return false
}

func (r *Registry) Online() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.byUser))
	for name := range r.byUser {
		out = append(out, name)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
