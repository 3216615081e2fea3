package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"chatroom/internal/models"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

// HistoryClient fetches conversation history from the server's REST API.
type HistoryClient struct {
	http  httpClient
	token string
}

// NewHistoryClient builds a client for baseURL. c may be nil.
func NewHistoryClient(c *fasthttp.Client, baseURL, token string, timeout time.Duration) *HistoryClient {
	return &HistoryClient{http: newHTTPClient(c, baseURL, timeout), token: token}
}

func (h *HistoryClient) FetchHistory(ctx context.Context, req models.HistoryRequest) ([]models.Message, error) {
	q := url.Values{}
	q.Set("userId", req.UserID)
	q.Set("type", string(req.Type))
	path := fmt.Sprintf("/api/messages/%s?%s", url.PathEscape(req.ConversationID), q.Encode())

	var out models.HistoryResponse
	if err := h.http.doJSON(ctx, fasthttp.MethodGet, path, h.token, nil, &out); err != nil {
		return nil, errors.Wrap(err, "fetch history")
	}
	if out.Data == nil {
		out.Data = []models.Message{}
	}
	return out.Data, nil
}
