package ws

import "encoding/json"

// Client -> server events.
const (
	EventLogin               = "login"
	EventSendMessage         = "send_message"
	EventGetMessages         = "get_messages"
	EventGetAllMessages      = "get_all_messages"
	EventMarkRead            = "mark_read"
	EventGetUnreadCounts     = "get_unread_counts"
	EventTyping              = "typing"
	EventStopTyping          = "stop_typing"
	EventSendFriendRequest   = "send_friend_request"
	EventGetFriendRequests   = "get_friend_requests"
	EventAcceptFriendRequest = "accept_friend_request"
	EventRejectFriendRequest = "reject_friend_request"
	EventRemoveFriend        = "remove_friend"
	EventGetFriends          = "get_friends"
	EventDeleteMessage       = "delete_message"
	EventGetOnlineUsers      = "get_online_users"
)

// Server -> client events.
const (
	EventReceiveMessage        = "receive_message"
	EventChatHistory           = "chat_history"
	EventAllMessages           = "all_messages"
	EventUnreadCounts          = "unread_counts"
	EventFriendRequestReceived = "friend_request_received"
	EventFriendRequests        = "friend_requests"
	EventFriends               = "friends"
	EventFriendsUpdated        = "friends_updated"
	EventMessageDeleted        = "message_deleted"
	EventMessagesRead          = "messages_read"
	EventUserOnline            = "user_online"
	EventUserOffline           = "user_offline"
	EventOnlineUsers           = "online_users"
	EventNotification          = "notification"
	EventSessionReplaced       = "session_replaced"
	EventError                 = "error"
)

type M map[string]interface{}

// Envelope is the frame shape in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encode(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// mustEncode is for payloads built from plain strings and maps.
func mustEncode(event string, data interface{}) []byte {
	b, err := encode(event, data)
	if err != nil {
		panic(err)
	}
	return b
}

type loginData struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// UnmarshalJSON accepts either a bare username string or an object.
func (l *loginData) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		l.Username = name
		return nil
	}
	type plain loginData
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*l = loginData(p)
	return nil
}

type sendMessageData struct {
	To      string `json:"to"`
	Text    string `json:"text"`
	ReplyTo *uint  `json:"replyTo"`
}

type withUserData struct {
	WithUser string `json:"withUser"`
	Limit    int    `json:"limit"`
	Before   uint   `json:"before"`
}

type toData struct {
	To string `json:"to"`
}

type fromData struct {
	From string `json:"from"`
}

type friendData struct {
	Friend string `json:"friend"`
}

type messageIDData struct {
	MessageID uint `json:"messageId"`
}
