package handlers

import (
	"context"
	"strings"
	"time"

	"chatroom/internal/logger"
	"chatroom/internal/metrics"
	"chatroom/internal/models"
	"chatroom/internal/services"
	"chatroom/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var validate = validator.New()

// Router dispatches inbound websocket frames: it persists them and fans them
// out to the other participants.
type Router struct {
	hub   *Hub
	store MessageStore
	now   func() time.Time
}

func NewRouter(hub *Hub, store MessageStore) *Router {
	return &Router{hub: hub, store: store, now: time.Now}
}

func (r *Router) HandleMessage(ctx context.Context, s *Session, msgType int, msg []byte) {
	if msgType != websocket.TextMessage {
		return
	}

	var frame models.Frame
	if err := utils.SafeJSONParse(msg, &frame); err != nil {
		utils.LogError(err, "JSON Parse")
		r.reply(s, errorFrame("", "invalid json"))
		return
	}

	switch frame.Event {
	case models.EventChat:
		r.handleChat(ctx, s, frame)
	case models.EventRead:
		r.handleRead(ctx, s, frame)
	default:
		logger.Debug("unknown_event", "event", frame.Event, "user", s.UserID)
		r.reply(s, errorFrame("", "unknown event"))
	}
}

func (r *Router) handleChat(ctx context.Context, s *Session, frame models.Frame) {
	if frame.ID == "" {
		frame.ID = uuid.New().String()
	}
	ev := frame.MessageEvent()
	ev.Sender = s.UserID
	if err := validate.Struct(ev); err != nil || strings.TrimSpace(ev.Body) == "" {
		r.reply(s, errorFrame(frame.ID, "invalid message"))
		return
	}

	msg := ev.Message(s.UserID)
	msg.CreatedAt = r.now()

	recipients, err := r.participants(ctx, msg.Type, msg.Receiver, s.UserID)
	if err != nil {
		utils.LogError(err, "chat recipients")
		r.reply(s, errorFrame(msg.ID, publicError(err)))
		return
	}

	if err := r.store.SaveMessage(ctx, &msg); err != nil {
		if errors.Is(err, services.ErrDuplicateMessage) {
			// a resend of a message we already delivered
			logger.Debug("message_duplicate", "id", msg.ID, "user", s.UserID)
			return
		}
		utils.LogError(err, "SaveMessage")
		r.reply(s, errorFrame(msg.ID, "failed to save message"))
		return
	}
	metrics.MessagesStored.Inc()

	r.hub.SendToUsers(recipients, models.Frame{
		Event:     models.EventChat,
		ID:        msg.ID,
		Type:      msg.Type,
		Sender:    msg.Sender,
		Receiver:  msg.Receiver,
		Body:      msg.Body,
		Timestamp: msg.CreatedAt.UnixMilli(),
	}, s.ConnID)
}

func (r *Router) handleRead(ctx context.Context, s *Session, frame models.Frame) {
	ev := frame.ReadEvent()
	ev.ReaderID = s.UserID
	if err := validate.Struct(ev); err != nil {
		r.reply(s, errorFrame("", "invalid read"))
		return
	}

	recipients, err := r.participants(ctx, ev.Type, ev.ToID, s.UserID)
	if err != nil {
		utils.LogError(err, "read recipients")
		r.reply(s, errorFrame("", publicError(err)))
		return
	}

	n, err := r.store.MarkRead(ctx, s.UserID, ev.ToID, ev.Type)
	if err != nil {
		utils.LogError(err, "MarkRead")
		r.reply(s, errorFrame("", "failed to mark read"))
		return
	}
	metrics.ReadsApplied.Inc()
	logger.Debug("read_applied", "reader", s.UserID, "to", ev.ToID, "rows", n)

	r.hub.SendToUsers(recipients, models.Frame{
		Event:    models.EventRead,
		Type:     ev.Type,
		ReaderID: s.UserID,
		ToID:     ev.ToID,
	}, s.ConnID)
}

// participants returns who besides self must see an event addressed to
// target: the counterpart of a direct chat, or the other room members.
func (r *Router) participants(ctx context.Context, t models.ChatType, target, self string) ([]string, error) {
	if t == models.ChatTypeDirect {
		if target == self {
			return nil, nil
		}
		return []string{target}, nil
	}

	members, err := r.store.GetRoomParticipants(ctx, target)
	if err != nil {
		return nil, err
	}
	others := make([]string, 0, len(members))
	member := false
	for _, id := range members {
		if id == self {
			member = true
			continue
		}
		others = append(others, id)
	}
	if !member {
		return nil, services.ErrNotMember
	}
	return others, nil
}

func (r *Router) reply(s *Session, frame models.Frame) {
	utils.LogError(s.Send(frame), "reply")
}

func errorFrame(id, message string) models.Frame {
	return models.Frame{Event: models.EventError, ID: id, Message: message}
}

func publicError(err error) string {
	if errors.Is(err, services.ErrNotMember) {
		return services.ErrNotMember.Error()
	}
	return "internal error"
}
