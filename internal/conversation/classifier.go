package conversation

import (
	"chatroom/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Belongs reports whether an inbound message event is addressed to the open
// conversation: direct events by their sender, room events by their room.
// Events that cannot be classified are foreign.
func Belongs(ev models.MessageEvent, active string) bool {
	if active == "" {
		return false
	}
	switch ev.Type {
	case models.ChatTypeDirect:
		return ev.Sender == active
	case models.ChatTypeRoom:
		return ev.Receiver == active
	}
	return false
}

// ReceiptBelongs applies the same addressing rule to read-status events: direct
// receipts by their reader, room receipts by their room.
func ReceiptBelongs(ev models.ReadEvent, active string) bool {
	if active == "" {
		return false
	}
	switch ev.Type {
	case models.ChatTypeDirect:
		return ev.ReaderID == active
	case models.ChatTypeRoom:
		return ev.ToID == active
	}
	return false
}

// AckTarget is where the read acknowledgement for a message goes: the room, or
// the direct counterpart.
func AckTarget(ev models.MessageEvent) string {
	if ev.Type == models.ChatTypeRoom {
		return ev.Receiver
	}
	return ev.Sender
}

func wellFormed(ev interface{}) bool {
	return validate.Struct(ev) == nil
}
