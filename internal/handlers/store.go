package handlers

import (
	"context"

	"chatroom/internal/models"
	"chatroom/internal/services"
)

// MessageStore is the persistence the realtime and history paths need.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg *models.Message) error
	GetMessages(ctx context.Context, userID, chatID string, t models.ChatType, limit int) ([]models.Message, error)
	MarkRead(ctx context.Context, readerID, toID string, t models.ChatType) (int64, error)
	GetRoomParticipants(ctx context.Context, roomID string) ([]string, error)
}

type RoomStore interface {
	CreateRoom(ctx context.Context, name, creatorID string, memberIDs []string) (*models.Room, error)
	JoinRoom(ctx context.Context, roomID, userID string) error
	GetUserRooms(ctx context.Context, userID string) ([]models.Room, error)
}

// ChatStore is implemented by services.ChatService.
type ChatStore interface {
	MessageStore
	RoomStore
}

type UserStore interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

type TokenValidator interface {
	Validate(token string) (*services.Claims, error)
}

var (
	_ ChatStore      = (*services.ChatService)(nil)
	_ UserStore      = (*services.UserService)(nil)
	_ TokenValidator = (*services.Tokens)(nil)
	_ ChatStore      = (*services.MemoryStore)(nil)
	_ UserStore      = (*services.MemoryStore)(nil)
)
