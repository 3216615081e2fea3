package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"chatroom/internal/client"
	"chatroom/internal/config"
	"chatroom/internal/conversation"
	"chatroom/internal/logger"
	"chatroom/internal/models"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

// ClientOptions configure an interactive session.
type ClientOptions struct {
	Config *config.ClientConfig
	ChatID string
	Type   models.ChatType
	In     io.Reader
	Out    io.Writer
	// HTTP overrides the fasthttp client, for tests.
	HTTP *fasthttp.Client
	// Dial overrides DialOptions.NetDialContext, for tests.
	Dial client.DialOptions
}

// RunClient opens one conversation and mirrors it to Out. Lines read from In
// are sent as messages; "/open <id> [direct|room]" switches conversation and
// "/quit" ends the session.
func RunClient(ctx context.Context, opts ClientOptions) error {
	cfg := opts.Config
	if cfg.Token == "" || cfg.UserID == "" {
		return errors.New("not logged in: set CHATROOM_TOKEN and CHATROOM_USER_ID (see `chatclient login`)")
	}

	httpc := opts.HTTP
	if httpc == nil {
		httpc = &fasthttp.Client{Name: "chatclient"}
	}
	history := client.NewHistoryClient(httpc, cfg.ServerURL, cfg.Token, cfg.RequestTimeout)

	dial := opts.Dial
	dial.URL = cfg.WebSocketURL()
	dial.Token = cfg.Token
	dial.Queue = cfg.SendQueue
	sock, err := client.Dial(ctx, dial)
	if err != nil {
		return err
	}
	defer sock.Close()

	engine := conversation.NewEngine(conversation.Options{
		SelfID:  cfg.UserID,
		History: history,
		Acks:    sock,
		Outbox:  sock,
	})
	sock.OnSendFailed(engine.SendFailed)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	snaps, unsubscribe := engine.Subscribe()
	defer unsubscribe()
	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		r := newRenderer(opts.Out, cfg.UserID)
		for snap := range snaps {
			r.render(snap)
		}
	}()

	runDone := make(chan error, 1)
	go func() { runDone <- engine.Run(ctx, sock.Events()) }()

	if err := engine.Open(ctx, opts.ChatID, opts.Type); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(opts.In)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	defer func() {
		unsubscribe()
		<-rendered
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-runDone:
			if err == nil {
				err = sock.Err()
			}
			return errors.Wrap(err, "connection closed")
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := handleLine(ctx, engine, line)
			if err != nil {
				fmt.Fprintf(opts.Out, "! %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func handleLine(ctx context.Context, engine *conversation.Engine, line string) (bool, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false, nil
	case line == "/quit":
		return true, nil
	case strings.HasPrefix(line, "/open"):
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return false, errors.New("usage: /open <id> [direct|room]")
		}
		t := models.ChatTypeDirect
		if len(fields) > 2 {
			var ok bool
			if t, ok = models.ParseChatType(fields[2]); !ok {
				return false, errors.Errorf("unknown chat type %q", fields[2])
			}
		}
		return false, engine.Open(ctx, fields[1], t)
	case line == "/close":
		engine.Close()
		return false, nil
	}
	msg, err := engine.Send(ctx, line)
	if err != nil {
		return false, err
	}
	logger.Debug("message_sent", "id", msg.ID)
	return false, nil
}

// renderer prints what changed between snapshots.
type renderer struct {
	out     io.Writer
	self    string
	conv    string
	state   conversation.State
	readers map[string]int
	failed  map[string]bool
}

func newRenderer(out io.Writer, self string) *renderer {
	return &renderer{out: out, self: self, readers: make(map[string]int), failed: make(map[string]bool)}
}

func (r *renderer) render(s conversation.Snapshot) {
	if s.ConversationID != r.conv || s.State != r.state {
		if s.ConversationID != r.conv {
			r.readers = make(map[string]int)
			r.failed = make(map[string]bool)
		}
		r.conv, r.state = s.ConversationID, s.State
		switch {
		case s.ConversationID == "":
			fmt.Fprintln(r.out, "-- no conversation")
		case s.Err != nil:
			fmt.Fprintf(r.out, "-- %s %s: %v\n", s.ConversationID, s.State, s.Err)
		default:
			fmt.Fprintf(r.out, "-- %s (%s) %s\n", s.ConversationID, s.Type, s.State)
		}
	}

	for _, m := range s.Messages {
		n, seen := r.readers[m.ID]
		switch {
		case !seen:
			fmt.Fprintf(r.out, "[%s] %s: %s\n", m.ID, m.Sender, m.Body)
		case len(m.Readers) > n:
			fmt.Fprintf(r.out, "[%s] read by %s\n", m.ID, strings.Join(others(m.Readers, m.Sender), ", "))
		}
		r.readers[m.ID] = len(m.Readers)
		if m.Failed && !r.failed[m.ID] {
			r.failed[m.ID] = true
			fmt.Fprintf(r.out, "[%s] not delivered\n", m.ID)
		}
	}
}

func others(ids []string, skip string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != skip {
			out = append(out, id)
		}
	}
	return out
}
