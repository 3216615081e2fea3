package app

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"chatroom/internal/client"
	"chatroom/internal/config"
	"chatroom/internal/conversation"
	"chatroom/internal/models"
	"chatroom/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

const baseURL = "http://chat.test"

type testServer struct {
	store *services.MemoryStore
	ln    *fasthttputil.InmemoryListener
	http  *fasthttp.Client
}

func startServer(t *testing.T) *testServer {
	t.Helper()
	tokens := services.NewTokens("test-secret")
	s := &testServer{store: services.NewMemoryStore(tokens), ln: fasthttputil.NewInmemoryListener()}

	app := NewServer(Deps{Users: s.store, Chats: s.store, Tokens: tokens})
	go func() { _ = app.Listener(s.ln) }()
	t.Cleanup(func() {
		_ = app.Shutdown()
		_ = s.ln.Close()
	})

	s.http = &fasthttp.Client{Dial: func(addr string) (net.Conn, error) { return s.ln.Dial() }}
	return s
}

func (s *testServer) dialer() client.DialOptions {
	return client.DialOptions{
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return s.ln.Dial()
		},
	}
}

func (s *testServer) login(t *testing.T, name string) *models.AuthResponse {
	t.Helper()
	ctx := testContext(t)
	auth := client.NewAuthClient(s.http, baseURL, time.Second)
	_, err := auth.Register(ctx, name, "password")
	require.NoError(t, err)
	res, err := auth.Login(ctx, name, "password")
	require.NoError(t, err)
	return res
}

func (s *testServer) engine(t *testing.T, who *models.AuthResponse) *conversation.Engine {
	t.Helper()
	opts := s.dialer()
	opts.URL = "ws://chat.test/ws"
	opts.Token = who.Token
	opts.Queue = 8
	sock, err := client.Dial(testContext(t), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sock.Close() })

	e := conversation.NewEngine(conversation.Options{
		SelfID:  who.UserID,
		History: client.NewHistoryClient(s.http, baseURL, who.Token, time.Second),
		Acks:    sock,
		Outbox:  sock,
	})
	sock.OnSendFailed(e.SendFailed)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = e.Run(ctx, sock.Events()) }()
	return e
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func waitReady(t *testing.T, e *conversation.Engine) {
	t.Helper()
	require.Eventually(t, func() bool {
		return e.Snapshot().State == conversation.StateReady
	}, 3*time.Second, 10*time.Millisecond)
}

func find(s conversation.Snapshot, id string) (models.Message, bool) {
	for _, m := range s.Messages {
		if m.ID == id {
			return m, true
		}
	}
	return models.Message{}, false
}

func TestDirectConversationRoundTrip(t *testing.T) {
	srv := startServer(t)
	alice, bob := srv.login(t, "alice"), srv.login(t, "bob")
	ea, eb := srv.engine(t, alice), srv.engine(t, bob)
	ctx := context.Background()

	require.NoError(t, ea.Open(ctx, bob.UserID, models.ChatTypeDirect))
	require.NoError(t, eb.Open(ctx, alice.UserID, models.ChatTypeDirect))
	waitReady(t, ea)
	waitReady(t, eb)

	sent, err := ea.Send(ctx, "hello bob")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		m, ok := find(eb.Snapshot(), sent.ID)
		return ok && m.Body == "hello bob" && m.HasReader(bob.UserID)
	}, 3*time.Second, 10*time.Millisecond, "bob receives the message")

	require.Eventually(t, func() bool {
		m, ok := find(ea.Snapshot(), sent.ID)
		return ok && m.HasReader(bob.UserID)
	}, 3*time.Second, 10*time.Millisecond, "alice sees bob's receipt")

	hist, err := srv.store.GetMessages(ctx, alice.UserID, bob.UserID, models.ChatTypeDirect, 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.ElementsMatch(t, []string{alice.UserID, bob.UserID}, hist[0].Readers)

	// a fresh load agrees with the live view
	ea.Close()
	require.NoError(t, ea.Open(ctx, bob.UserID, models.ChatTypeDirect))
	waitReady(t, ea)
	m, ok := find(ea.Snapshot(), sent.ID)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{alice.UserID, bob.UserID}, m.Readers)
}

func TestRoomConversationRoundTrip(t *testing.T) {
	srv := startServer(t)
	alice, bob, carol := srv.login(t, "alice"), srv.login(t, "bob"), srv.login(t, "carol")
	ctx := context.Background()
	room, err := srv.store.CreateRoom(ctx, "general", alice.UserID, []string{bob.UserID, carol.UserID})
	require.NoError(t, err)

	ea, eb, ec := srv.engine(t, alice), srv.engine(t, bob), srv.engine(t, carol)
	for _, e := range []*conversation.Engine{ea, eb, ec} {
		require.NoError(t, e.Open(ctx, room.ID, models.ChatTypeRoom))
		waitReady(t, e)
	}

	sent, err := ea.Send(ctx, "hi all")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		m, ok := find(ea.Snapshot(), sent.ID)
		return ok && m.HasReader(bob.UserID) && m.HasReader(carol.UserID)
	}, 3*time.Second, 10*time.Millisecond, "both members read it")

	require.Eventually(t, func() bool {
		m, ok := find(eb.Snapshot(), sent.ID)
		return ok && m.HasReader(carol.UserID)
	}, 3*time.Second, 10*time.Millisecond, "bob sees carol's receipt")
}

func TestNonMemberSendIsMarkedFailed(t *testing.T) {
	srv := startServer(t)
	alice, bob := srv.login(t, "alice"), srv.login(t, "bob")
	ctx := context.Background()
	room, err := srv.store.CreateRoom(ctx, "private", alice.UserID, nil)
	require.NoError(t, err)

	eb := srv.engine(t, bob)
	require.NoError(t, eb.Open(ctx, room.ID, models.ChatTypeRoom))
	require.Eventually(t, func() bool {
		return eb.Snapshot().State == conversation.StateFailed
	}, 3*time.Second, 10*time.Millisecond, "history is forbidden")

	sent, err := eb.Send(ctx, "let me in")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		m, ok := find(eb.Snapshot(), sent.ID)
		return ok && m.Failed
	}, 3*time.Second, 10*time.Millisecond)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunClient(t *testing.T) {
	srv := startServer(t)
	alice, bob := srv.login(t, "alice"), srv.login(t, "bob")

	in, w := io.Pipe()
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- RunClient(context.Background(), ClientOptions{
			Config: &config.ClientConfig{
				ServerURL:      baseURL,
				Token:          alice.Token,
				UserID:         alice.UserID,
				RequestTimeout: time.Second,
				SendQueue:      8,
			},
			ChatID: bob.UserID,
			Type:   models.ChatTypeDirect,
			In:     in,
			Out:    out,
			HTTP:   srv.http,
			Dial:   srv.dialer(),
		})
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "ready")
	}, 3*time.Second, 10*time.Millisecond)

	_, err := io.WriteString(w, "hello there\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		msgs, err := srv.store.GetMessages(context.Background(), bob.UserID, alice.UserID, models.ChatTypeDirect, 10)
		return err == nil && len(msgs) == 1 && msgs[0].Body == "hello there"
	}, 3*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "hello there")
	}, 3*time.Second, 10*time.Millisecond)

	_, err = io.WriteString(w, "/quit\n")
	require.NoError(t, err)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("client did not quit")
	}
}

func TestRunClientRequiresLogin(t *testing.T) {
	err := RunClient(context.Background(), ClientOptions{Config: &config.ClientConfig{}})
	assert.ErrorContains(t, err, "not logged in")
}

func TestHealthAndMetrics(t *testing.T) {
	srv := startServer(t)
	for _, path := range []string{"/health", "/metrics"} {
		req, resp := fasthttp.AcquireRequest(), fasthttp.AcquireResponse()
		req.SetRequestURI(baseURL + path)
		require.NoError(t, srv.http.DoTimeout(req, resp, time.Second))
		assert.Equal(t, fasthttp.StatusOK, resp.StatusCode(), path)
		if path == "/metrics" {
			assert.Contains(t, string(resp.Body()), "chatroom_server_ws_connections")
		}
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}
}
