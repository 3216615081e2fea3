package conversation

import (
	"testing"

	"chatroom/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestBelongs(t *testing.T) {
	cases := []struct {
		name   string
		ev     models.MessageEvent
		active string
		want   bool
	}{
		{"direct from counterpart", models.MessageEvent{Type: models.ChatTypeDirect, Sender: "u2", Receiver: "u1"}, "u2", true},
		{"direct from someone else", models.MessageEvent{Type: models.ChatTypeDirect, Sender: "u3", Receiver: "u1"}, "u2", false},
		{"direct matched on receiver only", models.MessageEvent{Type: models.ChatTypeDirect, Sender: "u3", Receiver: "u2"}, "u2", false},
		{"room match", models.MessageEvent{Type: models.ChatTypeRoom, Sender: "u2", Receiver: "room-1"}, "room-1", true},
		{"room other", models.MessageEvent{Type: models.ChatTypeRoom, Sender: "u2", Receiver: "room-2"}, "room-1", false},
		{"room matched on sender only", models.MessageEvent{Type: models.ChatTypeRoom, Sender: "room-1", Receiver: "room-2"}, "room-1", false},
		{"unknown type", models.MessageEvent{Type: "broadcast", Sender: "u2", Receiver: "u2"}, "u2", false},
		{"missing fields", models.MessageEvent{Type: models.ChatTypeRoom}, "", false},
		{"no active conversation", models.MessageEvent{Type: models.ChatTypeDirect}, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Belongs(tc.ev, tc.active))
		})
	}
}

func TestReceiptBelongs(t *testing.T) {
	assert.True(t, ReceiptBelongs(models.ReadEvent{Type: models.ChatTypeDirect, ReaderID: "u2", ToID: "u1"}, "u2"))
	assert.False(t, ReceiptBelongs(models.ReadEvent{Type: models.ChatTypeDirect, ReaderID: "u3", ToID: "u2"}, "u2"))
	assert.True(t, ReceiptBelongs(models.ReadEvent{Type: models.ChatTypeRoom, ReaderID: "u3", ToID: "room-1"}, "room-1"))
	assert.False(t, ReceiptBelongs(models.ReadEvent{Type: models.ChatTypeRoom, ReaderID: "room-1", ToID: "room-2"}, "room-1"))
	assert.False(t, ReceiptBelongs(models.ReadEvent{}, ""))
}

func TestAckTarget(t *testing.T) {
	assert.Equal(t, "room-1", AckTarget(models.MessageEvent{Type: models.ChatTypeRoom, Sender: "u2", Receiver: "room-1"}))
	assert.Equal(t, "u2", AckTarget(models.MessageEvent{Type: models.ChatTypeDirect, Sender: "u2", Receiver: "u1"}))
}

func TestWellFormed(t *testing.T) {
	assert.True(t, wellFormed(models.MessageEvent{ID: "m1", Type: models.ChatTypeRoom, Sender: "u2", Receiver: "room-1"}))
	assert.False(t, wellFormed(models.MessageEvent{ID: "m1", Type: models.ChatTypeRoom, Sender: "u2"}))
	assert.False(t, wellFormed(models.MessageEvent{ID: "m1", Type: "group", Sender: "u2", Receiver: "x"}))
	assert.True(t, wellFormed(models.ReadEvent{Type: models.ChatTypeDirect, ReaderID: "u2", ToID: "u1"}))
	assert.False(t, wellFormed(models.ReadEvent{Type: models.ChatTypeDirect, ToID: "u1"}))
}
