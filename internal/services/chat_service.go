package services

import (
	"context"

	"chatroom/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type ChatService struct {
	pool *pgxpool.Pool
}

func NewChatService(pool *pgxpool.Pool) *ChatService {
	return &ChatService{pool: pool}
}

// SaveMessage stores msg under its client-assigned id. A second save of the
// same id returns ErrDuplicateMessage.
func (s *ChatService) SaveMessage(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, type, sender, receiver, body, readers)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at
	`
	readers := msg.Readers
	if readers == nil {
		readers = []string{}
	}
	err := s.pool.QueryRow(ctx, query, msg.ID, string(msg.Type), msg.Sender, msg.Receiver, msg.Body, readers).Scan(&msg.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicateMessage
	}
	return errors.Wrap(err, "insert message")
}

// GetMessages returns the most recent limit messages of a conversation as
// seen by userID, oldest first. For direct chats chatID is the counterpart.
func (s *ChatService) GetMessages(ctx context.Context, userID, chatID string, t models.ChatType, limit int) ([]models.Message, error) {
	if t == models.ChatTypeRoom {
		member, err := s.IsRoomMember(ctx, chatID, userID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, ErrNotMember
		}
	}

	query := `
		SELECT id, type, sender, receiver, body, readers, created_at
		FROM messages
		WHERE type = 'direct'
		AND ((sender = $1 AND receiver = $2) OR (sender = $2 AND receiver = $1))
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`
	args := []interface{}{userID, chatID, limit}
	if t == models.ChatTypeRoom {
		query = `
			SELECT id, type, sender, receiver, body, readers, created_at
			FROM messages
			WHERE type = 'room' AND receiver = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`
		args = []interface{}{chatID, limit}
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query messages")
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var (
			msg  models.Message
			kind string
		)
		if err := rows.Scan(&msg.ID, &kind, &msg.Sender, &msg.Receiver, &msg.Body, &msg.Readers, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.Type = models.ChatType(kind)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to show oldest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// MarkRead adds readerID to every message of the conversation that readerID
// did not send. For direct chats toID is the counterpart, for rooms the room.
func (s *ChatService) MarkRead(ctx context.Context, readerID, toID string, t models.ChatType) (int64, error) {
	query := `
		UPDATE messages SET readers = array_append(readers, $1)
		WHERE type = 'direct' AND sender = $2 AND receiver = $1
		AND NOT ($1 = ANY(readers))
	`
	if t == models.ChatTypeRoom {
		query = `
			UPDATE messages SET readers = array_append(readers, $1)
			WHERE type = 'room' AND receiver = $2 AND sender <> $1
			AND NOT ($1 = ANY(readers))
		`
	}
	tag, err := s.pool.Exec(ctx, query, readerID, toID)
	if err != nil {
		return 0, errors.Wrap(err, "mark read")
	}
	return tag.RowsAffected(), nil
}

// CreateRoom creates a room holding the creator and memberIDs.
func (s *ChatService) CreateRoom(ctx context.Context, name, creatorID string, memberIDs []string) (*models.Room, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	room := models.Room{ID: uuid.New().String(), Name: name}
	err = tx.QueryRow(ctx, "INSERT INTO rooms (id, name) VALUES ($1, $2) RETURNING created_at", room.ID, name).Scan(&room.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert room")
	}

	members := append([]string{creatorID}, memberIDs...)
	seen := make(map[string]bool, len(members))
	for _, id := range members {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := tx.Exec(ctx, "INSERT INTO room_participants (room_id, user_id) VALUES ($1, $2)", room.ID, id); err != nil {
			return nil, errors.Wrapf(err, "add participant %s", id)
		}
		room.Members = append(room.Members, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *ChatService) JoinRoom(ctx context.Context, roomID, userID string) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)`, roomID).Scan(&exists); err != nil {
		return errors.Wrap(err, "lookup room")
	}
	if !exists {
		return ErrRoomNotFound
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO room_participants (room_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, roomID, userID)
	return errors.Wrap(err, "join room")
}

func (s *ChatService) GetUserRooms(ctx context.Context, userID string) ([]models.Room, error) {
	query := `
		SELECT r.id, r.name, r.created_at
		FROM rooms r
		JOIN room_participants p ON r.id = p.room_id
		WHERE p.user_id = $1
		ORDER BY r.created_at
	`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list rooms")
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		var r models.Room
		if err := rows.Scan(&r.ID, &r.Name, &r.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

func (s *ChatService) GetRoomParticipants(ctx context.Context, roomID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT user_id FROM room_participants WHERE room_id = $1`, roomID)
	if err != nil {
		return nil, errors.Wrap(err, "list participants")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *ChatService) IsRoomMember(ctx context.Context, roomID, userID string) (bool, error) {
	var member bool
	query := `SELECT EXISTS (SELECT 1 FROM room_participants WHERE room_id = $1 AND user_id = $2)`
	if err := s.pool.QueryRow(ctx, query, roomID, userID).Scan(&member); err != nil {
		return false, errors.Wrap(err, "check membership")
	}
	return member, nil
}
