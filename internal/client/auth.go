package client

import (
	"context"
	"time"

	"chatroom/internal/models"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

type AuthClient struct {
	http httpClient
}

func NewAuthClient(c *fasthttp.Client, baseURL string, timeout time.Duration) *AuthClient {
	return &AuthClient{http: newHTTPClient(c, baseURL, timeout)}
}

func (a *AuthClient) Login(ctx context.Context, username, password string) (*models.AuthResponse, error) {
	var out models.AuthResponse
	body := models.LoginRequest{Username: username, Password: password}
	if err := a.http.doJSON(ctx, fasthttp.MethodPost, "/api/login", "", body, &out); err != nil {
		return nil, errors.Wrap(err, "login")
	}
	if out.Token == "" || out.UserID == "" {
		return nil, errors.New("login: server returned no token")
	}
	return &out, nil
}

func (a *AuthClient) Register(ctx context.Context, username, password string) (*models.User, error) {
	var out models.User
	body := models.RegisterRequest{Username: username, Password: password}
	if err := a.http.doJSON(ctx, fasthttp.MethodPost, "/api/register", "", body, &out); err != nil {
		return nil, errors.Wrap(err, "register")
	}
	return &out, nil
}
