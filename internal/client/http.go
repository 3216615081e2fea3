package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

type httpClient struct {
	client  *fasthttp.Client
	baseURL string
	timeout time.Duration
}

func newHTTPClient(c *fasthttp.Client, baseURL string, timeout time.Duration) httpClient {
	if c == nil {
		c = &fasthttp.Client{Name: "chatroom-client"}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return httpClient{client: c, baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

// doJSON sends body (if any) as JSON and decodes a 2xx answer into out. The
// request is bounded by the smaller of the client timeout and ctx's deadline.
func (h httpClient) doJSON(ctx context.Context, method, path, token string, body, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := h.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(h.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if token != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+token)
	}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		req.Header.SetContentType("application/json")
		req.SetBody(b)
	}

	if err := h.client.DoTimeout(req, resp, timeout); err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}

	code := resp.StatusCode()
	if code < 200 || code > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(resp.Body(), &e)
		return &StatusError{Code: code, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return errors.Wrapf(err, "decode %s %s", method, path)
	}
	return nil
}
