package ws

import (
	"context"
	"encoding/json"
)

func (r *Router) sendFriendRequest(ctx context.Context, c *Client, data json.RawMessage) error {
	var in toData
	if err := decode(data, &in); err != nil {
		return err
	}
	if in.To == "" {
		return errNoop
	}
	if _, err := r.friends.SendRequest(ctx, c.username, in.To); err != nil {
		return err
	}
	r.hub.SendToUser(in.To, EventFriendRequestReceived, M{"from": c.username})
	return nil
}

func (r *Router) getFriendRequests(ctx context.Context, c *Client, _ json.RawMessage) error {
	return r.replyRequests(ctx, c)
}

func (r *Router) replyRequests(ctx context.Context, c *Client) error {
	names, err := r.friends.PendingRequests(ctx, c.username)
	if err != nil {
		return err
	}
	r.hub.Reply(c, EventFriendRequests, names)
	return nil
}

func (r *Router) acceptFriendRequest(ctx context.Context, c *Client, data json.RawMessage) error {
	var in fromData
	if err := decode(data, &in); err != nil {
		return err
	}
	if in.From == "" {
		return errNoop
	}
	if err := r.friends.Accept(ctx, c.username, in.From); err != nil {
		return err
	}
	return r.friendsChanged(ctx, c, in.From)
}

func (r *Router) rejectFriendRequest(ctx context.Context, c *Client, data json.RawMessage) error {
	var in fromData
	if err := decode(data, &in); err != nil {
		return err
	}
	if in.From == "" {
		return errNoop
	}
	if err := r.friends.Reject(ctx, c.username, in.From); err != nil {
		return err
	}
	return r.replyRequests(ctx, c)
}

func (r *Router) removeFriend(ctx context.Context, c *Client, data json.RawMessage) error {
	var in friendData
	if err := decode(data, &in); err != nil {
		return err
	}
	if in.Friend == "" {
		return errNoop
	}
	if err := r.friends.Remove(ctx, c.username, in.Friend); err != nil {
		return err
	}
	return r.friendsChanged(ctx, c, in.Friend)
}

// friendsChanged refreshes the friend list of both sides of a friendship.
func (r *Router) friendsChanged(ctx context.Context, c *Client, other string) error {
	mine, err := r.friends.Friends(ctx, c.username)
	if err != nil {
		return err
	}
	r.hub.Reply(c, EventFriendsUpdated, mine)

	theirs, err := r.friends.Friends(ctx, other)
	if err != nil {
		return err
	}
	r.hub.SendToUser(other, EventFriendsUpdated, theirs)
	return nil
}

func (r *Router) getFriends(ctx context.Context, c *Client, _ json.RawMessage) error {
	names, err := r.friends.Friends(ctx, c.username)
	if err != nil {
		return err
	}
	r.hub.Reply(c, EventFriends, names)
	return nil
}
