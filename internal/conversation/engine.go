package conversation

import (
	"context"
	"sync"
	"time"

	"chatroom/internal/logger"
	"chatroom/internal/metrics"
	"chatroom/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Acknowledger delivers "I have read up to now" to a room or direct counterpart.
type Acknowledger interface {
	AckRead(ctx context.Context, toID string, chatType models.ChatType) error
}

// Sender transmits a locally composed message.
type Sender interface {
	Send(ctx context.Context, msg models.Message) error
}

type Options struct {
	SelfID  string
	History HistoryFetcher
	Acks    Acknowledger
	Outbox  Sender
	Logger  *zerolog.Logger
	NewID   func() string
	Now     func() time.Time
}

// Snapshot is a consistent view of the open conversation.
type Snapshot struct {
	ConversationID string
	Type           models.ChatType
	State          State
	Err            error
	Messages       []models.Message
}

func (s Snapshot) Loading() bool { return s.State == StateLoading }

type pendingOp struct {
	ctx   context.Context
	local *models.Message
	event models.Event
}

// Engine reconciles history, local sends and real-time events into the Store
// of the open conversation. Every operation runs to completion under one lock.
type Engine struct {
	self   string
	loader *Loader
	acks   Acknowledger
	outbox Sender
	log    zerolog.Logger
	newID  func() string
	now    func() time.Time
	store  *Store

	mu       sync.Mutex
	active   string
	chatType models.ChatType
	state    State
	gen      uint64
	err      error
	pending  []pendingOp
	subs     map[int]chan Snapshot
	nextSub  int
}

func NewEngine(opts Options) *Engine {
	e := &Engine{
		self:   opts.SelfID,
		loader: NewLoader(opts.History),
		acks:   opts.Acks,
		outbox: opts.Outbox,
		newID:  opts.NewID,
		now:    opts.Now,
		store:  NewStore(),
		subs:   make(map[int]chan Snapshot),
	}
	if opts.Logger != nil {
		e.log = *opts.Logger
	} else {
		e.log = logger.Log
	}
	e.log = e.log.With().Str("component", "conversation").Str("self", opts.SelfID).Logger()
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Open makes conversationID the active conversation and starts loading its
// history. Opening the conversation that is already loading or loaded is a
// no-op; opening a failed one retries.
func (e *Engine) Open(ctx context.Context, conversationID string, chatType models.ChatType) error {
	if conversationID == "" || !chatType.Valid() {
		return ErrInvalidConversation
	}
	if e.loader.fetcher == nil {
		return ErrNoHistory
	}

	e.mu.Lock()
	if e.active == conversationID && e.chatType == chatType &&
		(e.state == StateLoading || e.state == StateReady) {
		e.mu.Unlock()
		return nil
	}
	e.gen++
	gen := e.gen
	e.active = conversationID
	e.chatType = chatType
	e.state = StateLoading
	e.err = nil
	e.pending = nil
	e.store.Reset()
	e.notifyLocked()
	e.mu.Unlock()

	e.log.Debug().Str("conversation", conversationID).Str("type", string(chatType)).Msg("conversation_open")
	req := models.HistoryRequest{UserID: e.self, ConversationID: conversationID, Type: chatType}
	go e.load(ctx, req, gen)
	return nil
}

// Close leaves the active conversation. A load still in flight is discarded
// when it resolves.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.gen++
	e.active = ""
	e.chatType = ""
	e.state = StateIdle
	e.err = nil
	e.pending = nil
	e.store.Reset()
	e.notifyLocked()
}

func (e *Engine) load(ctx context.Context, req models.HistoryRequest, gen uint64) {
	msgs, err := e.loader.Load(ctx, req)

	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.gen || req.ConversationID != e.active {
		metrics.HistoryLoads.WithLabelValues(metrics.OutcomeStale).Inc()
		e.log.Debug().Str("conversation", req.ConversationID).Msg("history_discarded_stale")
		return
	}

	if err != nil {
		metrics.HistoryLoads.WithLabelValues("error").Inc()
		e.log.Warn().Err(err).Str("conversation", req.ConversationID).Msg("history_load_failed")
		e.state = StateFailed
		e.err = err
	} else {
		metrics.HistoryLoads.WithLabelValues("ok").Inc()
		e.store.ReplaceAll(msgs)
		e.state = StateReady
		e.log.Debug().Str("conversation", req.ConversationID).Int("count", e.store.Len()).Msg("history_loaded")
	}

	pending := e.pending
	e.pending = nil
	for _, op := range pending {
		e.applyLocked(op)
	}
	e.notifyLocked()
}

// Send appends a locally composed message, read by self, and hands it to the
// outbox. The store update does not wait for transmission; a transmission
// error marks the message failed.
func (e *Engine) Send(ctx context.Context, body string) (models.Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == "" {
		return models.Message{}, ErrNoConversation
	}
	msg := models.Message{
		ID:        e.newID(),
		Type:      e.chatType,
		Sender:    e.self,
		Receiver:  e.active,
		Body:      body,
		Readers:   []string{e.self},
		CreatedAt: e.now(),
	}
	if e.outbox != nil {
		if err := e.outbox.Send(ctx, msg); err != nil {
			e.log.Warn().Err(err).Str("id", msg.ID).Msg("send_failed")
			msg.Failed = true
		}
	}

	op := pendingOp{ctx: ctx, local: &msg}
	if e.state == StateLoading {
		e.pending = append(e.pending, op)
		metrics.ConversationEvents.WithLabelValues(metrics.KindLocal, metrics.OutcomeQueued).Inc()
		return msg, nil
	}
	if e.applyLocked(op) {
		e.notifyLocked()
	}
	return msg, nil
}

// SendFailed records an eventual transmission failure reported by the outbox.
func (e *Engine) SendFailed(id string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.log.Warn().Err(err).Str("id", id).Msg("send_failed")
	for _, op := range e.pending {
		if op.local != nil && op.local.ID == id {
			op.local.Failed = true
			return
		}
	}
	if e.store.MarkFailed(id) {
		e.notifyLocked()
	}
}

// Handle processes one inbound real-time event. Malformed events return
// ErrMalformedEvent; foreign and duplicate events are absorbed.
func (e *Engine) Handle(ctx context.Context, ev models.Event) error {
	kind := metrics.KindMessage
	switch {
	case ev.Message != nil && ev.Read == nil:
		if !wellFormed(ev.Message) {
			metrics.ConversationEvents.WithLabelValues(kind, metrics.OutcomeMalformed).Inc()
			return ErrMalformedEvent
		}
	case ev.Read != nil && ev.Message == nil:
		kind = metrics.KindReceipt
		if !wellFormed(ev.Read) {
			metrics.ConversationEvents.WithLabelValues(kind, metrics.OutcomeMalformed).Inc()
			return ErrMalformedEvent
		}
	default:
		return ErrMalformedEvent
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	op := pendingOp{ctx: ctx, event: ev}
	if e.state == StateLoading {
		e.pending = append(e.pending, op)
		metrics.ConversationEvents.WithLabelValues(kind, metrics.OutcomeQueued).Inc()
		return nil
	}
	if e.applyLocked(op) {
		e.notifyLocked()
	}
	return nil
}

// Run feeds events through Handle one at a time until ctx ends or events closes.
func (e *Engine) Run(ctx context.Context, events <-chan models.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := e.Handle(ctx, ev); err != nil {
				e.log.Debug().Err(err).Msg("event_dropped")
			}
		}
	}
}

func (e *Engine) applyLocked(op pendingOp) bool {
	switch {
	case op.local != nil:
		if !e.store.Append(*op.local) {
			metrics.ConversationEvents.WithLabelValues(metrics.KindLocal, metrics.OutcomeDuplicate).Inc()
			return false
		}
		metrics.ConversationEvents.WithLabelValues(metrics.KindLocal, metrics.OutcomeApplied).Inc()
		return true
	case op.event.Message != nil:
		return e.applyMessageLocked(op.ctx, *op.event.Message)
	case op.event.Read != nil:
		return e.applyReceiptLocked(*op.event.Read)
	}
	return false
}

func (e *Engine) applyMessageLocked(ctx context.Context, ev models.MessageEvent) bool {
	if ev.Type != e.chatType || !Belongs(ev, e.active) {
		metrics.ConversationEvents.WithLabelValues(metrics.KindMessage, metrics.OutcomeForeign).Inc()
		return false
	}
	if !e.store.Append(ev.Message(e.self)) {
		metrics.ConversationEvents.WithLabelValues(metrics.KindMessage, metrics.OutcomeDuplicate).Inc()
		e.log.Debug().Str("id", ev.ID).Err(ErrDuplicateMessage).Msg("message_absorbed")
		return false
	}
	metrics.ConversationEvents.WithLabelValues(metrics.KindMessage, metrics.OutcomeApplied).Inc()

	if e.acks != nil {
		target := AckTarget(ev)
		if err := e.acks.AckRead(ctx, target, ev.Type); err != nil {
			e.log.Warn().Err(err).Str("to", target).Msg("read_ack_failed")
		}
		metrics.ReadAcks.Inc()
	}
	return true
}

func (e *Engine) applyReceiptLocked(ev models.ReadEvent) bool {
	if ev.Type != e.chatType || !ReceiptBelongs(ev, e.active) {
		metrics.ConversationEvents.WithLabelValues(metrics.KindReceipt, metrics.OutcomeForeign).Inc()
		return false
	}
	n := e.store.MarkRead(ev.ReaderID)
	metrics.ConversationEvents.WithLabelValues(metrics.KindReceipt, metrics.OutcomeApplied).Inc()
	return n > 0
}

// Snapshot returns the current view.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		ConversationID: e.active,
		Type:           e.chatType,
		State:          e.state,
		Err:            e.err,
		Messages:       e.store.Snapshot(),
	}
}

// InFlight reports whether a history fetch is running, including a stale one.
func (e *Engine) InFlight() bool {
	return e.loader.InFlight()
}

// Subscribe returns a channel that receives the latest snapshot after every
// change. Slow readers only see the most recent one. The returned func
// unsubscribes and closes the channel.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	e.mu.Unlock()

	return ch, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if c, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(c)
		}
	}
}

func (e *Engine) notifyLocked() {
	if len(e.subs) == 0 {
		return
	}
	snap := e.snapshotLocked()
	for _, ch := range e.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		// replace the unread snapshot with the newer one
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
