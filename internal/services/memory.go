package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"chatroom/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// MemoryStore keeps users, rooms and messages in process. It mirrors the
// Postgres services and backs `chatserver serve --memory` and tests.
type MemoryStore struct {
	tokens *Tokens
	now    func() time.Time

	mu       sync.RWMutex
	users    map[string]models.User
	byName   map[string]string
	rooms    map[string]models.Room
	members  map[string]map[string]bool
	messages []models.Message
	msgIndex map[string]int
}

func NewMemoryStore(tokens *Tokens) *MemoryStore {
	return &MemoryStore{
		tokens:   tokens,
		now:      time.Now,
		users:    make(map[string]models.User),
		byName:   make(map[string]string),
		rooms:    make(map[string]models.Room),
		members:  make(map[string]map[string]bool),
		msgIndex: make(map[string]int),
	}
}

func (s *MemoryStore) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[req.Username]; ok {
		return nil, ErrUserExists
	}
	u := models.User{ID: uuid.New().String(), Username: req.Username, PasswordHash: string(hash), CreatedAt: s.now()}
	s.users[u.ID] = u
	s.byName[u.Username] = u.ID
	return &u, nil
}

func (s *MemoryStore) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	s.mu.RLock()
	u, ok := s.users[s.byName[req.Username]]
	s.mu.RUnlock()
	if !ok || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.authResponse(u.ID, u.Username)
}

func (s *MemoryStore) Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	_, ok := s.users[claims.UserID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidToken
	}
	return s.authResponse(claims.UserID, claims.Username)
}

func (s *MemoryStore) authResponse(userID, username string) (*models.AuthResponse, error) {
	token, refresh, err := s.tokens.Issue(userID, username)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, RefreshToken: refresh, Username: username, UserID: userID}, nil
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		u.PasswordHash = ""
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *MemoryStore) SaveMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.msgIndex[msg.ID]; ok {
		return ErrDuplicateMessage
	}
	msg.CreatedAt = s.now()
	stored := *msg
	stored.Readers = append([]string{}, msg.Readers...)
	s.msgIndex[msg.ID] = len(s.messages)
	s.messages = append(s.messages, stored)
	return nil
}

func (s *MemoryStore) GetMessages(ctx context.Context, userID, chatID string, t models.ChatType, limit int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t == models.ChatTypeRoom && !s.members[chatID][userID] {
		return nil, ErrNotMember
	}

	var out []models.Message
	for i := len(s.messages) - 1; i >= 0 && len(out) < limit; i-- {
		m := s.messages[i]
		if m.Type != t {
			continue
		}
		switch {
		case t == models.ChatTypeRoom && m.Receiver == chatID,
			t == models.ChatTypeDirect && m.Sender == userID && m.Receiver == chatID,
			t == models.ChatTypeDirect && m.Sender == chatID && m.Receiver == userID:
			m.Readers = append([]string{}, m.Readers...)
			out = append(out, m)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *MemoryStore) MarkRead(ctx context.Context, readerID, toID string, t models.ChatType) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.messages {
		m := &s.messages[i]
		if m.Type != t || m.HasReader(readerID) {
			continue
		}
		match := m.Sender == toID && m.Receiver == readerID
		if t == models.ChatTypeRoom {
			match = m.Receiver == toID && m.Sender != readerID
		}
		if match {
			m.Readers = append(m.Readers, readerID)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CreateRoom(ctx context.Context, name, creatorID string, memberIDs []string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room := models.Room{ID: uuid.New().String(), Name: name, CreatedAt: s.now()}
	set := make(map[string]bool)
	for _, id := range append([]string{creatorID}, memberIDs...) {
		if set[id] {
			continue
		}
		set[id] = true
		room.Members = append(room.Members, id)
	}
	s.rooms[room.ID] = models.Room{ID: room.ID, Name: name, CreatedAt: room.CreatedAt}
	s.members[room.ID] = set
	return &room, nil
}

func (s *MemoryStore) JoinRoom(ctx context.Context, roomID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; !ok {
		return ErrRoomNotFound
	}
	s.members[roomID][userID] = true
	return nil
}

func (s *MemoryStore) GetUserRooms(ctx context.Context, userID string) ([]models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rooms []models.Room
	for id, set := range s.members {
		if set[userID] {
			rooms = append(rooms, s.rooms[id])
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].CreatedAt.Before(rooms[j].CreatedAt) })
	return rooms, nil
}

func (s *MemoryStore) GetRoomParticipants(ctx context.Context, roomID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.members[roomID]))
	for id := range s.members[roomID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
