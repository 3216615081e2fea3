package client

import (
	"encoding/json"

	"chatroom/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = validator.New()

// ErrMalformedFrame is returned for frames that are not JSON or lack the
// fields needed to classify them.
var ErrMalformedFrame = errors.New("malformed frame")

// DecodeEvent turns a server frame into an inbound event. ok is false for
// control frames (connected, error) which carry no event.
func DecodeEvent(data []byte) (ev models.Event, f models.Frame, ok bool, err error) {
	if err := json.Unmarshal(data, &f); err != nil {
		return ev, f, false, errors.Wrapf(ErrMalformedFrame, "decode: %v", err)
	}
	switch f.Event {
	case models.EventChat:
		me := f.MessageEvent()
		if err := validate.Struct(me); err != nil {
			return ev, f, false, errors.Wrapf(ErrMalformedFrame, "chat: %v", err)
		}
		ev.Message = &me
		return ev, f, true, nil
	case models.EventRead:
		re := f.ReadEvent()
		if err := validate.Struct(re); err != nil {
			return ev, f, false, errors.Wrapf(ErrMalformedFrame, "read: %v", err)
		}
		ev.Read = &re
		return ev, f, true, nil
	case models.EventConnected, models.EventError:
		return ev, f, false, nil
	}
	return ev, f, false, errors.Wrapf(ErrMalformedFrame, "unknown event %q", f.Event)
}

func chatFrame(m models.Message) models.Frame {
	return models.Frame{
		Event:     models.EventChat,
		ID:        m.ID,
		Type:      m.Type,
		Receiver:  m.Receiver,
		Body:      m.Body,
		Timestamp: m.CreatedAt.UnixMilli(),
	}
}

func readFrame(toID string, t models.ChatType) models.Frame {
	return models.Frame{Event: models.EventRead, Type: t, ToID: toID}
}
