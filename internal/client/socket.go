package client

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"chatroom/internal/logger"
	"chatroom/internal/models"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var (
	ErrSocketClosed = errors.New("socket closed")
	ErrQueueFull    = errors.New("send queue full")
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type DialOptions struct {
	URL   string
	Token string
	// Queue bounds outbound frames waiting to be written.
	Queue int
	// NetDialContext overrides the network dialer.
	NetDialContext func(ctx context.Context, network, addr string) (net.Conn, error)
	Logger         *zerolog.Logger
}

// Socket is the real-time channel to the server. Inbound chat and read frames
// are delivered on Events; Send and AckRead enqueue outbound frames without
// blocking.
type Socket struct {
	conn   *websocket.Conn
	events chan models.Event
	out    chan models.Frame
	done   chan struct{}
	log    zerolog.Logger

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
	onFailed  func(id string, err error)

	// outMu orders enqueue against the final drain of out.
	outMu     sync.Mutex
	outClosed bool
}

func Dial(ctx context.Context, opts DialOptions) (*Socket, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, errors.Wrap(err, "parse socket url")
	}
	q := u.Query()
	q.Set("access_token", opts.Token)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{
		HandshakeTimeout: writeWait,
		NetDialContext:   opts.NetDialContext,
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+opts.Token)

	conn, resp, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "dial socket: status %d", resp.StatusCode)
		}
		return nil, errors.Wrap(err, "dial socket")
	}

	queue := opts.Queue
	if queue <= 0 {
		queue = 64
	}
	log := logger.Log
	if opts.Logger != nil {
		log = *opts.Logger
	}
	s := &Socket{
		conn:   conn,
		events: make(chan models.Event, queue),
		out:    make(chan models.Frame, queue),
		done:   make(chan struct{}),
		log:    log.With().Str("component", "socket").Logger(),
	}
	go s.readPump()
	go s.writePump()
	return s, nil
}

// Events is closed when the connection ends.
func (s *Socket) Events() <-chan models.Event { return s.events }

// OnSendFailed registers fn to hear about chat frames that could not be written.
func (s *Socket) OnSendFailed(fn func(id string, err error)) {
	s.mu.Lock()
	s.onFailed = fn
	s.mu.Unlock()
}

func (s *Socket) Send(_ context.Context, m models.Message) error {
	return s.enqueue(chatFrame(m))
}

func (s *Socket) AckRead(_ context.Context, toID string, t models.ChatType) error {
	return s.enqueue(readFrame(toID, t))
}

func (s *Socket) enqueue(f models.Frame) error {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.outClosed {
		return ErrSocketClosed
	}
	select {
	case <-s.done:
		return ErrSocketClosed
	default:
	}
	select {
	case s.out <- f:
		return nil
	default:
		return ErrQueueFull
	}
}

// failQueued stops further enqueues and reports every chat frame that was
// accepted but never written.
func (s *Socket) failQueued() {
	s.outMu.Lock()
	s.outClosed = true
	var pending []models.Frame
drain:
	for {
		select {
		case f := <-s.out:
			pending = append(pending, f)
		default:
			break drain
		}
	}
	s.outMu.Unlock()

	err := s.Err()
	if err == nil {
		err = ErrSocketClosed
	}
	for _, f := range pending {
		if f.Event == models.EventChat {
			s.notifyFailed(f.ID, err)
		}
	}
}

// Err returns the error that ended the connection, if any.
func (s *Socket) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Socket) Close() error {
	s.shutdown(nil)
	return nil
}

func (s *Socket) shutdown(err error) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = s.conn.Close()
	})
}

func (s *Socket) readPump() {
	defer close(s.events)

	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("socket_read_failed")
				s.shutdown(err)
			} else {
				s.shutdown(nil)
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))

		ev, f, ok, err := DecodeEvent(data)
		if err != nil {
			s.log.Debug().Err(err).Msg("frame_dropped")
			continue
		}
		if !ok {
			if f.Event == models.EventError {
				s.log.Warn().Str("id", f.ID).Str("error", f.Message).Msg("server_error_frame")
				if f.ID != "" {
					s.notifyFailed(f.ID, errors.New(f.Message))
				}
			}
			continue
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

func (s *Socket) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer s.failQueued()

	for {
		select {
		case <-s.done:
			return
		case f := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(f); err != nil {
				s.log.Warn().Err(err).Str("event", f.Event).Msg("socket_write_failed")
				if f.Event == models.EventChat {
					s.notifyFailed(f.ID, err)
				}
				s.shutdown(err)
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.shutdown(err)
				return
			}
		}
	}
}

func (s *Socket) notifyFailed(id string, err error) {
	s.mu.Lock()
	fn := s.onFailed
	s.mu.Unlock()
	if fn != nil {
		fn(id, err)
	}
}
