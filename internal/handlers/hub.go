package handlers

import (
	"sync"

	"chatroom/internal/utils"
)

// Session is one authenticated websocket connection.
type Session struct {
	ConnID   string
	UserID   string
	Username string

	mu   sync.Mutex
	conn utils.JSONWriter
}

func NewSession(connID, userID, username string, conn utils.JSONWriter) *Session {
	return &Session{ConnID: connID, UserID: userID, Username: username, conn: conn}
}

// Send writes one frame. Writes to the same connection are serialized.
func (s *Session) Send(payload interface{}) error {
	if s.conn == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return utils.SendJSON(s.conn, payload)
}

// Hub tracks live sessions per user.
type Hub struct {
	mu sync.RWMutex
	// userID -> connID -> session
	users map[string]map[string]*Session
	// connID -> session
	conns map[string]*Session
}

func NewHub() *Hub {
	return &Hub{
		users: make(map[string]map[string]*Session),
		conns: make(map[string]*Session),
	}
}

// Register stores a new session.
// Returns true if this is the first connection for this user (user just came online)
func (h *Hub) Register(s *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessions, online := h.users[s.UserID]
	if !online {
		sessions = make(map[string]*Session)
		h.users[s.UserID] = sessions
	}
	sessions[s.ConnID] = s
	h.conns[s.ConnID] = s
	return !online
}

// Unregister removes a session.
// Returns true if this was the last connection for the user (user is now offline)
func (h *Hub) Unregister(connID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.conns[connID]
	if !ok {
		return false
	}
	delete(h.conns, connID)

	sessions := h.users[s.UserID]
	delete(sessions, connID)
	if len(sessions) == 0 {
		delete(h.users, s.UserID)
		return true
	}
	return false
}

// IsUserOnline checks if any active connection belongs to the given user
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.users[userID]
	return ok
}

// CountUserConnections returns the number of active connections for a user
func (h *Hub) CountUserConnections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// SendToUser sends a message to all connections of a specific user except excludeConnID.
func (h *Hub) SendToUser(userID string, message interface{}, excludeConnID string) {
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.users[userID]))
	for id, s := range h.users[userID] {
		if id != excludeConnID {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	// writes happen outside the hub lock
	for _, s := range targets {
		if err := s.Send(message); err != nil {
			utils.LogError(err, "SendToUser")
		}
	}
}

// SendToUsers sends a message to all connections of multiple users
func (h *Hub) SendToUsers(userIDs []string, message interface{}, excludeConnID string) {
	for _, userID := range userIDs {
		h.SendToUser(userID, message, excludeConnID)
	}
}
