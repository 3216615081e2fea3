package models

import (
	"strings"
	"time"
)

// ChatType tells whether a conversation is one-to-one or a group room.
type ChatType string

const (
	ChatTypeDirect ChatType = "direct"
	ChatTypeRoom   ChatType = "room"
)

// ParseChatType normalises a wire value. "user" is the legacy name for direct chats.
func ParseChatType(s string) (ChatType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "direct", "user":
		return ChatTypeDirect, true
	case "room":
		return ChatTypeRoom, true
	}
	return "", false
}

func (t ChatType) Valid() bool {
	return t == ChatTypeDirect || t == ChatTypeRoom
}

// UnmarshalText accepts the legacy alias and leaves unknown values as-is so that
// validation, not decoding, rejects them.
func (t *ChatType) UnmarshalText(b []byte) error {
	if ct, ok := ParseChatType(string(b)); ok {
		*t = ct
		return nil
	}
	*t = ChatType(b)
	return nil
}

type Message struct {
	ID        string    `json:"id"`
	Type      ChatType  `json:"type"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Body      string    `json:"body"`
	Readers   []string  `json:"readers"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	// Failed is set on a local send whose transmission was reported as failed.
	Failed bool `json:"failed,omitempty"`
}

// HasReader reports whether id is in the message's readers.
func (m Message) HasReader(id string) bool {
	for _, r := range m.Readers {
		if r == id {
			return true
		}
	}
	return false
}

// MessageEvent is a real-time "new message" notification.
type MessageEvent struct {
	ID       string   `json:"id" validate:"required"`
	Type     ChatType `json:"type" validate:"required,oneof=direct room"`
	Sender   string   `json:"sender" validate:"required"`
	Receiver string   `json:"receiver" validate:"required"`
	Body     string   `json:"body"`
}

// Message converts the event into a store record read by readers.
func (e MessageEvent) Message(readers ...string) Message {
	return Message{
		ID:       e.ID,
		Type:     e.Type,
		Sender:   e.Sender,
		Receiver: e.Receiver,
		Body:     e.Body,
		Readers:  append([]string(nil), readers...),
	}
}

// ReadEvent is a real-time read-status notification. ToID is the room id, or the
// id of the user whose messages were read for direct chats.
type ReadEvent struct {
	Type     ChatType `json:"type" validate:"required,oneof=direct room"`
	ReaderID string   `json:"readerId" validate:"required"`
	ToID     string   `json:"toId" validate:"required"`
}

// Event is one inbound real-time event. Exactly one field is set.
type Event struct {
	Message *MessageEvent
	Read    *ReadEvent
}

// WebSocket frame events
const (
	EventConnected = "connected"
	EventChat      = "chat"
	EventRead      = "read"
	EventError     = "error"
)

// Frame is the websocket envelope used in both directions.
type Frame struct {
	Event     string   `json:"event"`
	ID        string   `json:"id,omitempty"`
	Type      ChatType `json:"type,omitempty"`
	Sender    string   `json:"sender,omitempty"`
	Receiver  string   `json:"receiver,omitempty"`
	Body      string   `json:"body,omitempty"`
	ReaderID  string   `json:"readerId,omitempty"`
	ToID      string   `json:"toId,omitempty"`
	Message   string   `json:"message,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"`
}

func (f Frame) MessageEvent() MessageEvent {
	return MessageEvent{ID: f.ID, Type: f.Type, Sender: f.Sender, Receiver: f.Receiver, Body: f.Body}
}

func (f Frame) ReadEvent() ReadEvent {
	return ReadEvent{Type: f.Type, ReaderID: f.ReaderID, ToID: f.ToID}
}

// HistoryRequest identifies the conversation whose history is fetched.
type HistoryRequest struct {
	UserID         string
	ConversationID string
	Type           ChatType
}

type HistoryResponse struct {
	Data []Message `json:"data"`
}

// UserInfo holds basic user profile info for listings
type UserInfo struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status"`
}
