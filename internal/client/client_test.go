package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

// serve runs handler on an in-memory listener and returns a client dialing it.
func serve(t *testing.T, handler fasthttp.RequestHandler) (*fasthttp.Client, *fasthttputil.InmemoryListener) {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		_ = srv.Shutdown()
		_ = ln.Close()
	})
	c := &fasthttp.Client{Dial: func(addr string) (net.Conn, error) { return ln.Dial() }}
	return c, ln
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func requireStatus(t *testing.T, err error, code int) {
	t.Helper()
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, code, se.Code)
}
