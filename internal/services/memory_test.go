package services

import (
	"context"
	"testing"

	"chatroom/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreUsers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(NewTokens("k"))

	u, err := s.Register(ctx, models.RegisterRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	_, err = s.Register(ctx, models.RegisterRequest{Username: "alice", Password: "other12"})
	assert.ErrorIs(t, err, ErrUserExists)

	res, err := s.Login(ctx, models.LoginRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.UserID)

	_, err = s.Login(ctx, models.LoginRequest{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	refreshed, err := s.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, refreshed.UserID)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Empty(t, users[0].PasswordHash)
}

func TestMemoryStoreDirectHistoryAndRead(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(NewTokens("k"))

	for _, m := range []models.Message{
		{ID: "1", Type: models.ChatTypeDirect, Sender: "a", Receiver: "b", Body: "hi", Readers: []string{"a"}},
		{ID: "2", Type: models.ChatTypeDirect, Sender: "b", Receiver: "a", Body: "yo", Readers: []string{"b"}},
		{ID: "3", Type: models.ChatTypeDirect, Sender: "a", Receiver: "c", Body: "other", Readers: []string{"a"}},
	} {
		m := m
		require.NoError(t, s.SaveMessage(ctx, &m))
	}
	dup := models.Message{ID: "1"}
	assert.ErrorIs(t, s.SaveMessage(ctx, &dup), ErrDuplicateMessage)

	msgs, err := s.GetMessages(ctx, "b", "a", models.ChatTypeDirect, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "1", msgs[0].ID)
	assert.Equal(t, "2", msgs[1].ID)

	n, err := s.MarkRead(ctx, "b", "a", models.ChatTypeDirect)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = s.MarkRead(ctx, "b", "a", models.ChatTypeDirect)
	require.NoError(t, err)
	assert.Zero(t, n)

	msgs, err = s.GetMessages(ctx, "a", "b", models.ChatTypeDirect, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "2", msgs[0].ID, "limit keeps the newest")
}

func TestMemoryStoreRooms(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(NewTokens("k"))

	room, err := s.CreateRoom(ctx, "general", "a", []string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, room.Members)

	_, err = s.GetMessages(ctx, "c", room.ID, models.ChatTypeRoom, 10)
	assert.ErrorIs(t, err, ErrNotMember)
	require.NoError(t, s.JoinRoom(ctx, room.ID, "c"))
	assert.ErrorIs(t, s.JoinRoom(ctx, "nope", "c"), ErrRoomNotFound)

	ids, err := s.GetRoomParticipants(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	m := models.Message{ID: "r1", Type: models.ChatTypeRoom, Sender: "a", Receiver: room.ID, Body: "hey", Readers: []string{"a"}}
	require.NoError(t, s.SaveMessage(ctx, &m))
	n, err := s.MarkRead(ctx, "a", room.ID, models.ChatTypeRoom)
	require.NoError(t, err)
	assert.Zero(t, n, "own messages are not marked")
	n, err = s.MarkRead(ctx, "c", room.ID, models.ChatTypeRoom)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	msgs, err := s.GetMessages(ctx, "c", room.ID, models.ChatTypeRoom, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"a", "c"}, msgs[0].Readers)

	rooms, err := s.GetUserRooms(ctx, "c")
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "general", rooms[0].Name)
}
